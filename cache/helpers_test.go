package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/graphcache/storage"
)

// fakeAdapter is an in-memory storage.Adapter with injectable failures and
// gates that hold calls until the test releases them.
type fakeAdapter struct {
	mu        sync.Mutex
	items     map[string]string
	sets      []string
	getErr    error
	setErr    error
	removeErr error
	getGate   chan struct{}
	setGate   chan struct{}
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{items: make(map[string]string)}
}

func (f *fakeAdapter) GetItem(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	gate := f.getGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, storage.Unavailable(storage.OpGet, key, f.getErr)
	}
	v, ok := f.items[key]
	return v, ok, nil
}

func (f *fakeAdapter) SetItem(_ context.Context, key, data string) error {
	f.mu.Lock()
	gate := f.setGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return storage.Unavailable(storage.OpSet, key, f.setErr)
	}
	f.items[key] = data
	f.sets = append(f.sets, data)
	return nil
}

func (f *fakeAdapter) RemoveItem(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return storage.Unavailable(storage.OpRemove, key, f.removeErr)
	}
	delete(f.items, key)
	return nil
}

func (f *fakeAdapter) item(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	return v, ok
}

func (f *fakeAdapter) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sets)
}

func (f *fakeAdapter) setLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sets...)
}

func (f *fakeAdapter) fail(get, set, remove error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr, f.setErr, f.removeErr = get, set, remove
}

// newTestCache creates a hydrated cache over a.
func newTestCache(t *testing.T, a storage.Adapter, policy PersistPolicy) *GraphCache {
	t.Helper()
	c, err := New(context.Background(), Options{Storage: a, Persist: policy})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitHydrated(ctx); err != nil {
		t.Fatalf("WaitHydrated() error = %v", err)
	}
	return c
}

// settle gives goroutines started just before it time to queue on the lock.
func settle() { time.Sleep(30 * time.Millisecond) }
