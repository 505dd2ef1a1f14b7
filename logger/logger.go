// Package logger owns quill's structured log file.
//
// Rendered output goes to stdout, so log records never do: they are
// written to <state dir>/logs/quill.log. The format is text unless
// QUILL_LOG_FORMAT=json.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zhubert/quill/paths"
)

const logFileName = "quill.log"

var (
	root     *slog.Logger
	levelVar = new(slog.LevelVar)
	logFile  *os.File
	mu       sync.Mutex
	initDone bool
)

// DefaultLogPath returns the default log file path.
func DefaultLogPath() (string, error) {
	dir, err := paths.LogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logFileName), nil
}

// SetDebug enables or disables debug level logging
func SetDebug(enabled bool) {
	if enabled {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
}

// Init opens the log file at path. Calling it again after a successful
// Init is a no-op; call Reset first to switch files.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return nil
	}
	return open(path)
}

// open creates the log file and installs the root logger. Caller must hold mu.
func open(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	logFile = f
	root = slog.New(newHandler(f))
	initDone = true

	root.Debug("logger initialized", "path", path)
	return nil
}

func newHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: levelVar}
	if strings.EqualFold(os.Getenv("QUILL_LOG_FORMAT"), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ensureInit falls back to the default log path. Caller must hold mu.
func ensureInit() {
	if initDone {
		return
	}

	defaultPath, err := DefaultLogPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to get default log path: %v\n", err)
		return
	}
	if err := open(defaultPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// Get returns the root logger.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	ensureInit()

	if root == nil {
		return slog.Default()
	}
	return root
}

// WithComponent returns a logger tagged with component=name.
//
// Example:
//
//	log := logger.WithComponent("api")
//	log.Info("request sent", "path", "/api/v1/posts")
//	// Output: level=INFO msg="request sent" component=api path=/api/v1/posts
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

// WithRequest returns a logger tagged with the X-Request-ID of an API call.
func WithRequest(requestID string) *slog.Logger {
	return Get().With("requestID", requestID)
}

// Close closes the log file
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	root = nil
}

// Reset closes the log file and forgets all state so Init can run again.
// Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	initDone = false
	root = nil
	levelVar = new(slog.LevelVar)
}

// ClearLogs removes quill log files (including rotated copies such as
// quill.log.1) from the logs directory and reports how many were removed.
func ClearLogs() (int, error) {
	dir, err := paths.LogsDir()
	if err != nil {
		return 0, fmt.Errorf("failed to get logs directory: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, logFileName+"*"))
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range matches {
		if err := os.Remove(p); err == nil {
			count++
		} else if !os.IsNotExist(err) {
			return count, err
		}
	}
	return count, nil
}
