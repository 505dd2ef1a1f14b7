// Package paths resolves where quill keeps its files on disk.
//
// Three kinds of files are kept apart when the XDG Base Directory
// variables are in use:
//
//   - Config (XDG_CONFIG_HOME): config.yaml and an optional .env
//   - Data (XDG_DATA_HOME): storage.json, the durable session slots
//   - State (XDG_STATE_HOME): logs/
//
// Resolution order:
//  1. If ~/.quill/ exists, everything lives there (home layout)
//  2. If any XDG variable is set, use the XDG layout, defaulting unset ones
//  3. Otherwise fall back to ~/.quill/
//
// QUILL_HOME, when set, wins over all of the above and is used as a flat
// home layout. Tests and side-by-side profiles rely on it.
package paths

import (
	"os"
	"path/filepath"
	"sync"
)

const appName = "quill"

var (
	mu       sync.Mutex
	resolved *layout
)

type layout struct {
	configDir string
	dataDir   string
	stateDir  string
	flat      bool
}

func flatLayout(dir string) *layout {
	return &layout{configDir: dir, dataDir: dir, stateDir: dir, flat: true}
}

func resolve() (*layout, error) {
	mu.Lock()
	defer mu.Unlock()

	if resolved != nil {
		return resolved, nil
	}

	if dir := os.Getenv("QUILL_HOME"); dir != "" {
		resolved = flatLayout(dir)
		return resolved, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	homeDir := filepath.Join(home, "."+appName)

	if info, err := os.Stat(homeDir); err == nil && info.IsDir() {
		resolved = flatLayout(homeDir)
		return resolved, nil
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	xdgData := os.Getenv("XDG_DATA_HOME")
	xdgState := os.Getenv("XDG_STATE_HOME")
	if xdgConfig == "" && xdgData == "" && xdgState == "" {
		resolved = flatLayout(homeDir)
		return resolved, nil
	}

	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	if xdgData == "" {
		xdgData = filepath.Join(home, ".local", "share")
	}
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}
	resolved = &layout{
		configDir: filepath.Join(xdgConfig, appName),
		dataDir:   filepath.Join(xdgData, appName),
		stateDir:  filepath.Join(xdgState, appName),
	}
	return resolved, nil
}

// ConfigDir returns the directory holding config.yaml and .env.
func ConfigDir() (string, error) {
	l, err := resolve()
	if err != nil {
		return "", err
	}
	return l.configDir, nil
}

// DataDir returns the directory holding the durable session storage.
func DataDir() (string, error) {
	l, err := resolve()
	if err != nil {
		return "", err
	}
	return l.dataDir, nil
}

// StateDir returns the directory for logs and other transient files.
func StateDir() (string, error) {
	l, err := resolve()
	if err != nil {
		return "", err
	}
	return l.stateDir, nil
}

// ConfigFilePath returns the full path to config.yaml.
func ConfigFilePath() (string, error) {
	return join(ConfigDir, "config.yaml")
}

// EnvFilePath returns the full path to the optional .env file.
func EnvFilePath() (string, error) {
	return join(ConfigDir, ".env")
}

// StorageFilePath returns the full path to storage.json, the file-backed
// durable storage shared by every quill process of the same user.
func StorageFilePath() (string, error) {
	return join(DataDir, "storage.json")
}

// LogsDir returns the directory for log files.
func LogsDir() (string, error) {
	return join(StateDir, "logs")
}

func join(dir func() (string, error), name string) (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

// IsFlatLayout reports whether all files live in a single directory
// (~/.quill or QUILL_HOME) rather than the split XDG layout.
func IsFlatLayout() bool {
	l, err := resolve()
	if err != nil {
		return true
	}
	return l.flat
}

// Reset clears the cached resolution. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resolved = nil
}
