package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhubert/quill/storage"
)

func newStore(t *testing.T, st storage.Storage) *Store {
	t.Helper()
	s, err := New(context.Background(), st)
	require.NoError(t, err)
	return s
}

// login writes a complete identity directly into storage, the way another
// process would.
func login(t *testing.T, st storage.Storage, email, name string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, storage.KeyCredential, "tok"))
	require.NoError(t, st.Set(ctx, storage.KeyEmail, email))
	if name != "" {
		require.NoError(t, st.Set(ctx, storage.KeyName, name))
	}
}

func TestNew_FreshStorage(t *testing.T) {
	s := newStore(t, storage.NewMemory())

	_, ok := s.Email()
	assert.False(t, ok)
	_, ok = s.Name()
	assert.False(t, ok)
	_, ok = s.Error()
	assert.False(t, ok)
	assert.False(t, s.LoggedIn())
}

func TestNew_LoggedInFromStorage(t *testing.T) {
	mem := storage.NewMemory()
	login(t, mem, "a@b.com", "Alice")

	s := newStore(t, mem)
	assert.Equal(t, State{Email: "a@b.com", Name: "Alice", LoggedIn: true}, s.Snapshot())
}

func TestNew_PartialStorageIsLoggedOut(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		slots map[storage.Key]string
	}{
		{"email without credential", map[storage.Key]string{storage.KeyEmail: "a@b.com", storage.KeyName: "Alice"}},
		{"credential without email", map[storage.Key]string{storage.KeyCredential: "tok", storage.KeyName: "Alice"}},
		{"name only", map[storage.Key]string{storage.KeyName: "Alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storage.NewMemory()
			for k, v := range tt.slots {
				require.NoError(t, mem.Set(ctx, k, v))
			}

			s := newStore(t, mem)
			assert.Equal(t, State{}, s.Snapshot())

			// storage is reported, never repaired
			v, ok, err := mem.Get(ctx, storage.KeyName)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "Alice", v)
		})
	}
}

func TestNew_StorageFailure(t *testing.T) {
	mem := storage.NewMemory()
	boom := errors.New("disk gone")
	mem.Fail(boom)

	s, err := New(context.Background(), mem)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, boom)
}

func TestSetEmail_PersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, email := range []string{"a@b.com", "üñí@cödé.example", "x"} {
		t.Run(email, func(t *testing.T) {
			mem := storage.NewMemory()
			require.NoError(t, mem.Set(ctx, storage.KeyCredential, "tok"))

			s := newStore(t, mem)
			require.NoError(t, s.SetEmail(ctx, email))
			got, ok := s.Email()
			assert.True(t, ok)
			assert.Equal(t, email, got)

			fresh := newStore(t, mem)
			got, ok = fresh.Email()
			assert.True(t, ok)
			assert.Equal(t, email, got)
		})
	}
}

func TestSetEmail_ClearRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	login(t, mem, "a@b.com", "Alice")

	s := newStore(t, mem)
	require.NoError(t, s.SetEmail(ctx, ""))
	assert.False(t, s.LoggedIn())

	_, ok, err := mem.Get(ctx, storage.KeyEmail)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh := newStore(t, mem)
	_, ok = fresh.Email()
	assert.False(t, ok)
}

func TestSetName_Idempotent(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newStore(t, mem)

	require.NoError(t, s.SetName(ctx, "Alice"))
	once := s.Snapshot()
	stored, _, _ := mem.Get(ctx, storage.KeyName)

	require.NoError(t, s.SetName(ctx, "Alice"))
	assert.Equal(t, once, s.Snapshot())
	again, _, _ := mem.Get(ctx, storage.KeyName)
	assert.Equal(t, stored, again)
}

func TestSetEmail_StorageFailureLeavesMemory(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newStore(t, mem)
	require.NoError(t, s.SetEmail(ctx, "a@b.com"))

	boom := errors.New("read-only")
	mem.Fail(boom)

	err := s.SetEmail(ctx, "c@d.com")
	assert.ErrorIs(t, err, boom)
	got, _ := s.Email()
	assert.Equal(t, "a@b.com", got)

	assert.ErrorIs(t, s.SetName(ctx, ""), boom)
}

func TestSetError_NotPersisted(t *testing.T) {
	mem := storage.NewMemory()
	s := newStore(t, mem)

	s.SetError("login failed")
	got, ok := s.Error()
	assert.True(t, ok)
	assert.Equal(t, "login failed", got)

	// works regardless of the medium
	mem.Fail(errors.New("down"))
	s.SetError("second")
	got, _ = s.Error()
	assert.Equal(t, "second", got)

	mem.Fail(nil)
	fresh := newStore(t, mem)
	_, ok = fresh.Error()
	assert.False(t, ok)

	s.SetError("")
	_, ok = s.Error()
	assert.False(t, ok)
}

func TestLogout_Completeness(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	login(t, mem, "a@b.com", "Alice")
	s := newStore(t, mem)
	s.SetError("x")

	require.NoError(t, s.Logout(ctx))

	for _, key := range storage.Keys {
		_, ok, err := mem.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "slot %s should be removed", key)
	}
	assert.Equal(t, State{Error: "x"}, s.Snapshot())
}

func TestLogout_WhenLoggedOut(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, storage.NewMemory())

	require.NoError(t, s.Logout(ctx))
	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.LoggedIn())
}

func TestLogout_StorageFailure(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	login(t, mem, "a@b.com", "Alice")
	s := newStore(t, mem)

	boom := errors.New("locked")
	mem.Fail(boom)

	err := s.Logout(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, s.LoggedIn(), "identity stays while storage still holds it")
}

func TestErrorIndependence(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newStore(t, mem)

	s.SetError("x")
	require.NoError(t, s.Logout(ctx))

	got, ok := s.Error()
	assert.True(t, ok)
	assert.Equal(t, "x", got)

	login(t, mem, "a@b.com", "")
	require.NoError(t, s.ExternalSyncCheck(ctx))
	got, _ = s.Error()
	assert.Equal(t, "x", got)
}

func TestExternalSyncCheck_ReflectsExternalWrite(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newStore(t, mem)

	login(t, mem, "a@b.com", "Alice")
	assert.False(t, s.LoggedIn(), "no sync has happened yet")

	require.NoError(t, s.ExternalSyncCheck(ctx))
	assert.Equal(t, State{Email: "a@b.com", Name: "Alice", LoggedIn: true}, s.Snapshot())
}

func TestExternalSyncCheck_MissingCredentialLogsOut(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	login(t, mem, "a@b.com", "Alice")
	s := newStore(t, mem)

	require.NoError(t, mem.Remove(ctx, storage.KeyCredential))
	require.NoError(t, s.ExternalSyncCheck(ctx))

	assert.False(t, s.LoggedIn())
	_, ok := s.Name()
	assert.False(t, ok)
}

func TestExternalSyncCheck_StorageFailure(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	login(t, mem, "a@b.com", "Alice")
	s := newStore(t, mem)

	boom := errors.New("gone")
	mem.Fail(boom)
	assert.ErrorIs(t, s.ExternalSyncCheck(ctx), boom)
	assert.True(t, s.LoggedIn())
}

// Two stores over one medium, the second reacting to a change made
// outside it.
func TestScenario_ExternalLogout(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	s := newStore(t, mem)
	_, ok := s.Email()
	require.False(t, ok)

	require.NoError(t, mem.Set(ctx, storage.KeyCredential, "tok"))
	require.NoError(t, s.SetEmail(ctx, "a@b.com"))
	require.NoError(t, s.SetName(ctx, "Alice"))

	email, _, _ := mem.Get(ctx, storage.KeyEmail)
	name, _, _ := mem.Get(ctx, storage.KeyName)
	assert.Equal(t, "a@b.com", email)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, State{Email: "a@b.com", Name: "Alice", LoggedIn: true}, s.Snapshot())

	// another context removes the credential and email
	require.NoError(t, mem.Remove(ctx, storage.KeyCredential))
	require.NoError(t, mem.Remove(ctx, storage.KeyEmail))

	require.NoError(t, s.ExternalSyncCheck(ctx))
	_, ok = s.Email()
	assert.False(t, ok)
	_, ok = s.Name()
	assert.False(t, ok)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, storage.NewMemory())

	var (
		mu  sync.Mutex
		got []State
	)
	cancel := s.Subscribe(func(st State) {
		mu.Lock()
		got = append(got, st)
		mu.Unlock()
	})

	require.NoError(t, s.SetEmail(ctx, "a@b.com"))
	require.NoError(t, s.SetEmail(ctx, "a@b.com")) // unchanged, not published
	s.SetError("boom")

	cancel()
	cancel()
	s.SetError("")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, State{Email: "a@b.com", LoggedIn: true}, got[0])
	assert.Equal(t, State{Email: "a@b.com", Error: "boom", LoggedIn: true}, got[1])
}

func TestSubscribe_ObserverMayCallStore(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, storage.NewMemory())

	done := make(chan State, 1)
	s.Subscribe(func(st State) {
		// reading from inside a callback must not deadlock
		done <- s.Snapshot()
	})

	require.NoError(t, s.SetName(ctx, "Alice"))
	select {
	case st := <-done:
		assert.Equal(t, "Alice", st.Name)
	case <-time.After(time.Second):
		t.Fatal("observer was not called")
	}
}

func TestStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newStore(t, mem)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = s.SetEmail(ctx, "a@b.com")
		}()
		go func() {
			defer wg.Done()
			_ = s.ExternalSyncCheck(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			s.SetError("e")
		}()
	}
	wg.Wait()

	got, _ := s.Error()
	assert.Equal(t, "e", got)
}
