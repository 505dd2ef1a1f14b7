// Package storage provides the durable key-value medium that the session
// store persists identity into, together with the change-notification
// sources that tell a running process when another process has modified it.
//
// Storage is shared by every quill process of the same user, the way local
// storage is shared between tabs of a browser. There is no transactional
// guarantee across keys: each Get, Set and Remove stands alone.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zhubert/quill/config"
	"github.com/zhubert/quill/logger"
	"github.com/zhubert/quill/paths"
)

// Key names one of the durable slots.
type Key string

// The three slots the session lives in.
const (
	KeyCredential Key = "token"
	KeyEmail      Key = "userEmail"
	KeyName       Key = "userName"
)

// Keys lists every slot, in the order they are reported and removed.
var Keys = []Key{KeyCredential, KeyEmail, KeyName}

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Storage is a durable string key-value medium.
type Storage interface {
	// Get returns the value of key and whether it is present.
	Get(ctx context.Context, key Key) (string, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key Key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key Key) error
}

// Notifier is a source of external-change notifications.
type Notifier interface {
	// Watch calls onChange once as soon as the watch is in place, then
	// whenever the storage may have been modified, until ctx is done. The
	// first call covers changes made before the watch existed. Watch
	// returns nil on cancellation and an error only if the notification
	// source itself fails. onChange runs on Watch's goroutine, one call
	// at a time.
	Watch(ctx context.Context, onChange func()) error
}

// Backend bundles a Storage with its matching Notifier.
type Backend struct {
	Name     string
	Storage  Storage
	Notifier Notifier

	close func() error
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open builds the backend selected by cfg. For redis the server is pinged
// so an unreachable medium fails here rather than at first use.
func Open(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	log := logger.WithComponent("storage")

	switch cfg.Backend {
	case config.BackendFile, "":
		path := cfg.Path
		if path == "" {
			p, err := paths.StorageFilePath()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve storage path: %w", err)
			}
			path = p
		}
		log.Debug("opening file storage", "path", path)
		return &Backend{
			Name:     config.BackendFile,
			Storage:  NewFile(path),
			Notifier: NewFileNotifier(path, cfg.Debounce.Duration),
		}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Debug("opened redis storage", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB, "prefix", cfg.Redis.Prefix)
		store := NewRedis(client, cfg.Redis.Prefix)
		return &Backend{
			Name:     config.BackendRedis,
			Storage:  store,
			Notifier: NewRedisNotifier(client, store.Channel()),
			close:    client.Close,
		}, nil

	case config.BackendMemory:
		mem := NewMemory()
		return &Backend{Name: config.BackendMemory, Storage: mem, Notifier: mem}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
