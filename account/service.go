// Package account implements the login, registration and logout flows on
// top of the session store and the API client.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhubert/quill/api"
	"github.com/zhubert/quill/logger"
	"github.com/zhubert/quill/session"
	"github.com/zhubert/quill/storage"
)

// Messages shown when the server gives no reason of its own.
const (
	LoginFailedMessage    = "Login failed, please try again later"
	RegisterFailedMessage = "Registration failed, please try again later"
)

// ErrNotLoggedIn is returned by RequireLogin when no identity is present.
var ErrNotLoggedIn = errors.New("you must be logged in")

// Authenticator is the part of the API client the flows need.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResponse, error)
	Register(ctx context.Context, reg api.Registration) (*api.AuthResponse, error)
}

// Service runs account flows against one session store.
type Service struct {
	store   *session.Store
	storage storage.Storage
	auth    Authenticator
}

// NewService creates a Service. st must be the storage store was built on:
// the credential is written there directly, never through the store.
func NewService(store *session.Store, st storage.Storage, auth Authenticator) *Service {
	return &Service{store: store, storage: st, auth: auth}
}

// Store returns the session store the service updates.
func (s *Service) Store() *session.Store {
	return s.store
}

// Login authenticates and records the identity. On a domain failure the
// message is written to the session's last error and also returned.
func (s *Service) Login(ctx context.Context, email, password string) error {
	log := logger.WithComponent("account")

	resp, err := s.auth.Login(ctx, api.Credentials{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		log.Info("login failed", "error", err)
		return s.Report(err, LoginFailedMessage)
	}

	if err := s.establish(ctx, resp, resp.Email, resp.Name, LoginFailedMessage); err != nil {
		return err
	}
	log.Info("logged in", "email", resp.Email)
	return nil
}

// Register creates an account and logs it in. The server may omit the
// identity from its response; the submitted values are used instead.
func (s *Service) Register(ctx context.Context, email, password, name string) error {
	log := logger.WithComponent("account")

	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	resp, err := s.auth.Register(ctx, api.Registration{Email: email, Password: password, Name: name})
	if err != nil {
		log.Info("registration failed", "error", err)
		return s.Report(err, RegisterFailedMessage)
	}

	if resp.Email != "" {
		email = resp.Email
	}
	if resp.Name != "" {
		name = resp.Name
	}
	if err := s.establish(ctx, resp, email, name, RegisterFailedMessage); err != nil {
		return err
	}
	log.Info("registered", "email", email)
	return nil
}

// establish writes the credential and identity and clears the last error.
// An incomplete response is reported with fallback.
func (s *Service) establish(ctx context.Context, resp *api.AuthResponse, email, name, fallback string) error {
	if resp.Token == "" || email == "" {
		return s.Report(errors.New("incomplete authentication response"), fallback)
	}

	if err := s.storage.Set(ctx, storage.KeyCredential, resp.Token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	if err := s.store.SetEmail(ctx, email); err != nil {
		return err
	}
	if err := s.store.SetName(ctx, name); err != nil {
		return err
	}
	s.store.SetError("")
	return nil
}

// Logout clears the identity everywhere.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.Logout(ctx)
}

// Report records a domain failure as the session's last error and returns
// an error carrying the same message. The server's message is preferred
// over fallback.
func (s *Service) Report(err error, fallback string) error {
	msg, ok := api.MessageOf(err)
	if !ok {
		var verrs api.ValidationErrors
		if errors.As(err, &verrs) {
			msg, ok = verrs.Error(), true
		}
	}
	if !ok {
		msg = fallback
	}
	s.store.SetError(msg)
	return &Failure{Message: msg, Err: err}
}

// DismissError clears the last error.
func (s *Service) DismissError() {
	s.store.SetError("")
}

// RequireLogin returns ErrNotLoggedIn unless an identity is present.
func (s *Service) RequireLogin() error {
	if !s.store.LoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

// Failure is a domain failure already recorded in the session. Message is
// what the user was shown; Err is the underlying cause.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}
