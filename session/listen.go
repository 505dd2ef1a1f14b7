package session

import (
	"context"
	"fmt"

	"github.com/zhubert/quill/logger"
	"github.com/zhubert/quill/storage"
)

// Listen keeps s in step with changes other processes make to storage. It
// runs ExternalSyncCheck as soon as n has attached its watch, which catches
// changes made before the listener existed, and again on every notice until
// ctx is done.
//
// A failure of that first check means the medium is unusable and is returned.
// Later failures are logged and listening continues.
func Listen(ctx context.Context, s *Store, n storage.Notifier) error {
	log := logger.WithComponent("session")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		first    = true
		firstErr error
	)
	err := n.Watch(ctx, func() {
		err := s.ExternalSyncCheck(ctx)
		if first {
			first = false
			if err != nil {
				firstErr = err
				cancel()
			}
			return
		}
		if err != nil {
			log.Warn("session sync failed", "error", err)
		}
	})
	if firstErr != nil {
		return fmt.Errorf("initial session sync failed: %w", firstErr)
	}
	if err != nil {
		return fmt.Errorf("session listener stopped: %w", err)
	}
	log.Debug("session listener stopped")
	return nil
}
