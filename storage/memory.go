package storage

import (
	"context"
	"sync"
)

// Memory is process-local storage that is also its own Notifier. Several
// session stores sharing one Memory behave like processes sharing a file.
type Memory struct {
	mu   sync.Mutex
	data map[Key]string
	subs map[int]chan struct{}
	next int
	err  error
}

// NewMemory returns empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[Key]string),
		subs: make(map[int]chan struct{}),
	}
}

// Fail makes every subsequent operation return err, simulating an
// unavailable medium. Fail(nil) restores normal behavior.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Get returns the value stored under key.
func (m *Memory) Get(ctx context.Context, key Key) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key and notifies watchers.
func (m *Memory) Set(ctx context.Context, key Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if cur, ok := m.data[key]; ok && cur == value {
		return nil
	}
	m.data[key] = value
	m.notifyLocked()
	return nil
}

// Remove deletes key and notifies watchers.
func (m *Memory) Remove(ctx context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if _, ok := m.data[key]; !ok {
		return nil
	}
	delete(m.data, key)
	m.notifyLocked()
	return nil
}

// notifyLocked wakes every watcher without blocking. A watcher that has
// not yet consumed its previous wake-up gets only one. Caller must hold mu.
func (m *Memory) notifyLocked() {
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch calls onChange once registered, then after every mutation until
// ctx is done.
func (m *Memory) Watch(ctx context.Context, onChange func()) error {
	ch := make(chan struct{}, 1)

	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}()

	onChange()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			onChange()
		}
	}
}

// Watchers reports how many Watch calls are currently active.
func (m *Memory) Watchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
