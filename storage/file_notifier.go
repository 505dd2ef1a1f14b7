package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zhubert/quill/logger"
)

// FileNotifier reports changes to a File's backing file using fsnotify.
//
// The parent directory is watched rather than the file itself: writes
// replace the file by rename, which would silently end a watch placed on
// the old inode. Bursts of events are coalesced into one notification
// per debounce window.
type FileNotifier struct {
	path     string
	debounce time.Duration
}

// NewFileNotifier watches the file at path. A non-positive debounce
// notifies on every event.
func NewFileNotifier(path string, debounce time.Duration) *FileNotifier {
	return &FileNotifier{path: path, debounce: debounce}
}

// Watch blocks until ctx is done, calling onChange once the watch is in
// place and again after the storage file is created, written, removed or
// renamed.
func (n *FileNotifier) Watch(ctx context.Context, onChange func()) error {
	log := logger.WithComponent("storage").With("path", n.path)

	dir := filepath.Dir(n.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Debug("watching storage file")
	onChange()

	name := filepath.Base(n.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug("storage watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("storage file event", "op", event.Op.String())

			if n.debounce <= 0 {
				onChange()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(n.debounce)
			} else {
				timer.Reset(n.debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("storage watcher error", "error", err)

		case <-fire:
			fire = nil
			onChange()
		}
	}
}
