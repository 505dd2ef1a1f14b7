package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zhubert/quill/logger"
)

// Redis keeps the slots as plain string keys under a prefix. Every Set and
// Remove also publishes the slot name on Channel() so other processes
// sharing the server can reconcile.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis returns redis-backed storage using client. Keys are stored as
// prefix+key (for example "quill:token").
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel change notices are published on.
func (r *Redis) Channel() string {
	return r.prefix + "changes"
}

func (r *Redis) key(k Key) string {
	return r.prefix + string(k)
}

// Get returns the value stored under key.
func (r *Redis) Get(ctx context.Context, key Key) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key and announces the change.
func (r *Redis) Set(ctx context.Context, key Key, value string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(key), value, 0)
		pipe.Publish(ctx, r.Channel(), string(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	logger.WithComponent("storage").Debug("redis key set", "key", key)
	return nil
}

// Remove deletes key and announces the change.
func (r *Redis) Remove(ctx context.Context, key Key) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(key))
		pipe.Publish(ctx, r.Channel(), string(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	logger.WithComponent("storage").Debug("redis key removed", "key", key)
	return nil
}

// RedisNotifier subscribes to the change channel of a Redis storage.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier returns a notifier for channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// Watch subscribes to the change channel and calls onChange once
// subscribed, then for every message until ctx is done. A failure to
// subscribe is returned immediately.
func (n *RedisNotifier) Watch(ctx context.Context, onChange func()) error {
	log := logger.WithComponent("storage").With("channel", n.channel)

	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}
	log.Debug("subscribed to storage changes")
	onChange()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Debug("storage subscription stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			log.Debug("storage change notice", "key", msg.Payload)
			onChange()
		}
	}
}
