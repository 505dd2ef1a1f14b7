package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File keeps the slots in a flat JSON object on disk. Every operation
// re-reads the file, so writes made by other processes are always visible,
// and writes replace the file atomically via rename.
//
// Two processes writing different keys at the same instant can lose one of
// the writes; the same is true of the medium this replaces and the session
// store does not try to resolve it.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns file-backed storage at path. The file and its directory
// are created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Get returns the value stored under key.
func (f *File) Get(ctx context.Context, key Key) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[string(key)]
	return v, ok, nil
}

// Set stores value under key. Writing the value already stored is a no-op
// so watchers in other processes are not woken for nothing.
func (f *File) Set(ctx context.Context, key Key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return err
	}
	if cur, ok := m[string(key)]; ok && cur == value {
		return nil
	}
	m[string(key)] = value
	return f.save(m)
}

// Remove deletes key.
func (f *File) Remove(ctx context.Context, key Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := m[string(key)]; !ok {
		return nil
	}
	delete(m, string(key))
	return f.save(m)
}

// load reads the file. A missing, empty or null file is empty storage.
// Caller must hold mu.
func (f *File) load() (map[string]string, error) {
	m := make(map[string]string)

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse storage %s: %w", f.path, err)
	}
	// a literal null decodes to a nil map
	if m == nil {
		m = make(map[string]string)
	}
	return m, nil
}

// save writes m to a temp file beside the target and renames it into
// place. Caller must hold mu.
func (f *File) save(m map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".storage-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace storage %s: %w", f.path, err)
	}
	return nil
}
