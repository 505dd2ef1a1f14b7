package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zhubert/quill/account"
	"github.com/zhubert/quill/api"
	"github.com/zhubert/quill/config"
	"github.com/zhubert/quill/editor"
	"github.com/zhubert/quill/logger"
	"github.com/zhubert/quill/paths"
	"github.com/zhubert/quill/session"
	"github.com/zhubert/quill/storage"
	"github.com/zhubert/quill/view"
)

// rootOptions holds the persistent flags of one command tree. The shell
// builds a fresh tree per line, so these never leak between lines.
type rootOptions struct {
	configPath string
	apiURL     string
	storage    string
	output     string
	debug      bool
}

// app is everything a command needs. It is built once per process; the
// shell shares one app across all the lines it runs.
type app struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	backend *storage.Backend
	store   *session.Store
	client  *api.Client
	account *account.Service
	editor  *editor.Editor

	// markdownStyle overrides the glamour style; tests pin it.
	markdownStyle string
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: bufio.NewReader(in), out: out, errOut: errOut, editor: editor.New(nil)}
}

// ready reports whether setup has already run.
func (a *app) ready() bool {
	return a.store != nil
}

// setup loads configuration, applies flag overrides and opens the session.
func (a *app) setup(ctx context.Context, opts *rootOptions) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		// the .env file stays in the config dir whichever file is used
		envPath, perr := paths.EnvFilePath()
		if perr != nil {
			return perr
		}
		cfg, err = config.LoadFrom(opts.configPath, envPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if opts.apiURL != "" {
		cfg.SetAPIURL(strings.TrimRight(opts.apiURL, "/"))
	}
	if opts.storage != "" {
		cfg.SetStorageBackend(opts.storage)
	}
	if opts.output != "" {
		cfg.SetOutput(opts.output)
	}
	if opts.debug {
		cfg.SetDebug(true)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return fmt.Errorf("invalid settings: %w", errors.Join(joined...))
	}

	logger.SetDebug(cfg.GetDebug())
	if path, err := logger.DefaultLogPath(); err == nil {
		if err := logger.Init(path); err != nil {
			fmt.Fprintf(a.errOut, "Warning: %v\n", err)
		}
	}
	log := logger.WithComponent("cli")

	backend, err := storage.Open(ctx, cfg.GetStorage())
	if err != nil {
		return err
	}
	store, err := session.New(ctx, backend.Storage)
	if err != nil {
		backend.Close()
		return err
	}

	a.cfg = cfg
	a.backend = backend
	a.store = store
	a.client = api.NewClient(cfg.GetAPIURL(), backend.Storage, cfg.GetHTTPTimeout())
	a.account = account.NewService(store, backend.Storage, a.client)

	log.Debug("session ready", "api", cfg.GetAPIURL(), "storage", backend.Name, "logged_in", store.LoggedIn())
	return nil
}

// close releases the storage backend.
func (a *app) close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			logger.WithComponent("cli").Warn("failed to close storage", "error", err)
		}
		a.backend = nil
	}
}

// renderer returns a view for the -o flag of this command tree, falling
// back to the configured format.
func (a *app) renderer(opts *rootOptions) (*view.Renderer, error) {
	format := opts.output
	if format == "" {
		format = a.cfg.GetOutput()
	}
	return view.New(a.out, format, view.Options{MarkdownStyle: a.markdownStyle})
}

// prompt asks for a value on the app's input when flag is empty.
func (a *app) prompt(label, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprintf(a.errOut, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// reportFailure prints the session's last error as a banner, or err itself
// when the failure never reached the session.
func (a *app) reportFailure(err error) {
	var failure *account.Failure
	if a.store != nil && errors.As(err, &failure) {
		if msg, ok := a.store.Error(); ok {
			view.ErrorBanner(a.errOut, msg)
			return
		}
	}
	view.ErrorBanner(a.errOut, err.Error())
}

// configFilePath is the file --config names, or the default config file.
func configFilePath(opts *rootOptions) (string, error) {
	if opts.configPath != "" {
		return opts.configPath, nil
	}
	return paths.ConfigFilePath()
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	return string(data), err
}
