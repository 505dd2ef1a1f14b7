// Package doctor checks that quill can reach everything it depends on.
package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zhubert/quill/api"
	"github.com/zhubert/quill/config"
	"github.com/zhubert/quill/session"
	"github.com/zhubert/quill/storage"
)

// Check is one named diagnostic.
type Check struct {
	Name        string
	Description string
	Required    bool // whether quill is unusable when this fails
	Run         func(ctx context.Context) (detail string, err error)
}

// Result is the outcome of running a Check.
type Result struct {
	Check  Check
	OK     bool
	Detail string // shown next to the name, e.g. a path or a version
	Err    error
}

// Run executes every check in order.
func Run(ctx context.Context, checks []Check) []Result {
	results := make([]Result, len(checks))
	for i, c := range checks {
		detail, err := c.Run(ctx)
		results[i] = Result{Check: c, OK: err == nil, Detail: detail, Err: err}
	}
	return results
}

// ValidateRequired returns an error listing the required checks that
// failed, or nil.
func ValidateRequired(results []Result) error {
	var failed []string
	for _, r := range results {
		if r.OK || !r.Check.Required {
			continue
		}
		failed = append(failed, fmt.Sprintf("  - %s: %v", r.Check.Name, r.Err))
	}
	if len(failed) > 0 {
		return fmt.Errorf("required checks failed:\n%s", strings.Join(failed, "\n"))
	}
	return nil
}

// FormatResults renders results for the terminal.
func FormatResults(results []Result) string {
	var sb strings.Builder

	sb.WriteString("quill doctor:\n")
	for _, r := range results {
		status := "✓"
		if !r.OK {
			if r.Check.Required {
				status = "✗"
			} else {
				status = "○"
			}
		}

		fmt.Fprintf(&sb, "  %s %s", status, r.Check.Name)
		switch {
		case r.OK && r.Detail != "":
			fmt.Fprintf(&sb, " (%s)", r.Detail)
		case !r.OK:
			fmt.Fprintf(&sb, ": %v", r.Err)
			if r.Check.Required {
				sb.WriteString(" [REQUIRED]")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// ConfigCheck reports the loaded config file and any invalid settings.
func ConfigCheck(cfg *config.Config) Check {
	return Check{
		Name:        "config",
		Description: "settings file and environment",
		Required:    true,
		Run: func(ctx context.Context) (string, error) {
			if errs := cfg.Validate(); len(errs) > 0 {
				msgs := make([]string, len(errs))
				for i, e := range errs {
					msgs[i] = e.Error()
				}
				return "", fmt.Errorf("%s", strings.Join(msgs, "; "))
			}
			return cfg.FilePath(), nil
		},
	}
}

// StorageCheck reads one slot to prove the session medium answers.
func StorageCheck(b *storage.Backend) Check {
	return Check{
		Name:        "storage",
		Description: "session storage backend",
		Required:    true,
		Run: func(ctx context.Context) (string, error) {
			if _, _, err := b.Storage.Get(ctx, storage.KeyEmail); err != nil {
				return "", err
			}
			return b.Name, nil
		},
	}
}

// CategoryLister is the API call the reachability check makes.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]api.Category, error)
}

// APICheck makes an anonymous request against the blog API.
func APICheck(baseURL string, client CategoryLister, timeout time.Duration) Check {
	return Check{
		Name:        "api",
		Description: "blog API at " + baseURL,
		Required:    true,
		Run: func(ctx context.Context) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			if _, err := client.ListCategories(ctx); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s, %s", baseURL, time.Since(start).Round(time.Millisecond)), nil
		},
	}
}

// SessionCheck reports who is logged in and whether the stored credential
// has expired. Being logged out is not a failure of the setup.
func SessionCheck(store *session.Store, st storage.Storage, now func() time.Time) Check {
	return Check{
		Name:        "session",
		Description: "login state",
		Run: func(ctx context.Context) (string, error) {
			snap := store.Snapshot()
			if !snap.LoggedIn {
				return "", fmt.Errorf("not logged in")
			}

			token, _, err := st.Get(ctx, storage.KeyCredential)
			if err != nil {
				return "", err
			}
			claims, err := api.ParseTokenClaims(token)
			if err != nil || claims.ExpiresAt.IsZero() {
				// opaque credentials carry no expiry to report
				return snap.Email, nil
			}
			if claims.Expired(now()) {
				return "", fmt.Errorf("credential for %s expired %s", snap.Email, claims.ExpiresAt.Format(time.RFC1123))
			}
			return fmt.Sprintf("%s, expires %s", snap.Email, claims.ExpiresAt.Format(time.RFC1123)), nil
		},
	}
}
