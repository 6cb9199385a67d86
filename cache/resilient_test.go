package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/graphcache/resilience"
	"github.com/jonwraymond/graphcache/storage"
)

// lateWriteAdapter makes its first slow SetItem calls outlast any deadline:
// they ignore ctx, write after a delay and then report the deadline.
type lateWriteAdapter struct {
	*fakeAdapter
	mu   sync.Mutex
	slow int
}

func (l *lateWriteAdapter) SetItem(ctx context.Context, key, data string) error {
	l.mu.Lock()
	slow := l.slow > 0
	if slow {
		l.slow--
	}
	l.mu.Unlock()
	if !slow {
		return l.fakeAdapter.SetItem(ctx, key, data)
	}
	time.Sleep(80 * time.Millisecond)
	if err := l.fakeAdapter.SetItem(context.Background(), key, data); err != nil {
		return err
	}
	return storage.Unavailable(storage.OpSet, key, ctx.Err())
}

func TestWriteField_TimedOutPersistNeverOverwritesNewer(t *testing.T) {
	inner := &lateWriteAdapter{fakeAdapter: newFakeAdapter(), slow: 1}
	a := storage.NewResilient(inner, resilience.NewExecutor(resilience.WithTimeout(20*time.Millisecond)))
	c := newTestCache(t, a, PersistOnFieldWrite)
	ctx := context.Background()

	err := c.WriteField(ctx, "n1", "v", "first", "")
	if !errors.Is(err, storage.ErrUnavailable) || !errors.Is(err, resilience.ErrTimeout) {
		t.Fatalf("WriteField(first) error = %v, want a storage timeout", err)
	}
	if err := c.WriteField(ctx, "n1", "v", "second", ""); err != nil {
		t.Fatalf("WriteField(second) error = %v", err)
	}

	// Give any write still in flight time to land.
	time.Sleep(150 * time.Millisecond)

	data, ok := inner.item(DefaultCacheKey)
	if !ok || !strings.Contains(data, `"second"`) || strings.Contains(data, `"first"`) {
		t.Errorf("stored snapshot = %s, want the second write", data)
	}
	log := inner.setLog()
	if len(log) == 0 || !strings.Contains(log[len(log)-1], `"second"`) {
		t.Errorf("persist log = %v, want the second write last", log)
	}
}
