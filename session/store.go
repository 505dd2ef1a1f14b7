package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zhubert/quill/logger"
	"github.com/zhubert/quill/storage"
)

// State is a point-in-time copy of the session. Empty strings mean absent.
type State struct {
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	LoggedIn bool   `json:"logged_in" yaml:"logged_in"`
}

// Store is the in-memory session, mirrored in durable storage.
//
// Thread Safety:
// Change notices arrive on the listener's goroutine, so all methods are safe
// for concurrent use. opMu serializes mutations so that a storage write and
// the matching in-memory update are never interleaved with another mutation;
// mu guards the fields themselves. Observers are called with no lock held.
type Store struct {
	storage storage.Storage

	opMu sync.Mutex

	mu      sync.RWMutex
	email   string
	name    string
	lastErr string

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// New reads the session from st. A storage failure is returned as is: an
// unusable medium is fatal at startup.
func New(ctx context.Context, st storage.Storage) (*Store, error) {
	s := &Store{
		storage:   st,
		observers: make(map[int]func(State)),
	}

	email, name, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.email, s.name = email, name

	logger.WithComponent("session").Debug("session loaded", "logged_in", email != "")
	return s, nil
}

// read returns the identity held in storage, or empties when the credential
// or the email is missing.
func (s *Store) read(ctx context.Context) (email, name string, err error) {
	_, hasToken, err := s.storage.Get(ctx, storage.KeyCredential)
	if err != nil {
		return "", "", err
	}
	email, hasEmail, err := s.storage.Get(ctx, storage.KeyEmail)
	if err != nil {
		return "", "", err
	}
	name, _, err = s.storage.Get(ctx, storage.KeyName)
	if err != nil {
		return "", "", err
	}

	if !hasToken || !hasEmail || email == "" {
		return "", "", nil
	}
	return email, name, nil
}

// SetEmail stores the identity email, or removes it when value is empty.
func (s *Store) SetEmail(ctx context.Context, value string) error {
	return s.setSlot(ctx, storage.KeyEmail, value, &s.email)
}

// SetName stores the display name, or removes it when value is empty.
func (s *Store) SetName(ctx context.Context, value string) error {
	return s.setSlot(ctx, storage.KeyName, value, &s.name)
}

func (s *Store) setSlot(ctx context.Context, key storage.Key, value string, field *string) error {
	s.opMu.Lock()

	var err error
	if value == "" {
		err = s.storage.Remove(ctx, key)
	} else {
		err = s.storage.Set(ctx, key, value)
	}
	if err != nil {
		s.opMu.Unlock()
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}

	s.mu.Lock()
	changed := *field != value
	*field = value
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.opMu.Unlock()

	if changed {
		s.publish(st)
	}
	return nil
}

// SetError replaces the last error. An empty value clears it.
func (s *Store) SetError(value string) {
	s.opMu.Lock()
	s.mu.Lock()
	changed := s.lastErr != value
	s.lastErr = value
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.opMu.Unlock()

	if changed {
		s.publish(st)
	}
}

// Logout removes the credential, email and name from storage and clears
// the identity in memory. The last error is left as is. Every removal is
// attempted; failures are joined into the returned error and the matching
// in-memory field is kept.
func (s *Store) Logout(ctx context.Context) error {
	s.opMu.Lock()

	var errs []error
	removed := make(map[storage.Key]bool, len(storage.Keys))
	for _, key := range storage.Keys {
		if err := s.storage.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", key, err))
			continue
		}
		removed[key] = true
	}

	s.mu.Lock()
	before := s.snapshotLocked()
	if removed[storage.KeyEmail] {
		s.email = ""
	}
	if removed[storage.KeyName] {
		s.name = ""
	}
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.opMu.Unlock()

	logger.WithComponent("session").Info("logged out", "failures", len(errs))
	if st != before {
		s.publish(st)
	}
	return errors.Join(errs...)
}

// ExternalSyncCheck re-reads storage and overwrites the in-memory identity
// to match. A missing credential or email yields the logged-out state
// whatever the store held before.
func (s *Store) ExternalSyncCheck(ctx context.Context) error {
	s.opMu.Lock()

	email, name, err := s.read(ctx)
	if err != nil {
		s.opMu.Unlock()
		return fmt.Errorf("failed to sync session: %w", err)
	}

	s.mu.Lock()
	changed := s.email != email || s.name != name
	s.email, s.name = email, name
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.opMu.Unlock()

	if changed {
		logger.WithComponent("session").Info("session changed externally", "logged_in", st.LoggedIn)
		s.publish(st)
	}
	return nil
}

// Email returns the identity email and whether it is present.
func (s *Store) Email() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email, s.email != ""
}

// Name returns the display name and whether it is present.
func (s *Store) Name() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name, s.name != ""
}

// Error returns the last error and whether one is set.
func (s *Store) Error() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr, s.lastErr != ""
}

// LoggedIn reports whether an identity email is present.
func (s *Store) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email != ""
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	return State{
		Email:    s.email,
		Name:     s.name,
		Error:    s.lastErr,
		LoggedIn: s.email != "",
	}
}

// Subscribe registers fn to be called with the new state after every
// operation that changes it. The returned function unregisters fn.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *Store) publish(st State) {
	s.obsMu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
