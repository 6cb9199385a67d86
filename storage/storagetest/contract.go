// Package storagetest provides a behavioral test suite for storage.Adapter
// implementations.
package storagetest

import (
	"context"
	"strings"
	"testing"

	"github.com/jonwraymond/graphcache/storage"
)

// RunAdapterContract checks the behavior every storage.Adapter must share.
// newAdapter is called once per subtest and must return an empty adapter.
func RunAdapterContract(t *testing.T, newAdapter func(t *testing.T) storage.Adapter) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		a := newAdapter(t)
		v, ok, err := a.GetItem(ctx, "missing")
		if err != nil || ok || v != "" {
			t.Errorf("GetItem(missing) = %q, %v, %v; want \"\", false, nil", v, ok, err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		a := newAdapter(t)
		if err := a.SetItem(ctx, "k", `{"records":{}}`); err != nil {
			t.Fatalf("SetItem() error = %v", err)
		}
		v, ok, err := a.GetItem(ctx, "k")
		if err != nil || !ok || v != `{"records":{}}` {
			t.Errorf("GetItem(k) = %q, %v, %v", v, ok, err)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		a := newAdapter(t)
		_ = a.SetItem(ctx, "k", "one")
		if err := a.SetItem(ctx, "k", "two"); err != nil {
			t.Fatalf("SetItem() error = %v", err)
		}
		if v, _, _ := a.GetItem(ctx, "k"); v != "two" {
			t.Errorf("GetItem(k) = %q, want two", v)
		}
	})

	t.Run("remove", func(t *testing.T) {
		a := newAdapter(t)
		_ = a.SetItem(ctx, "k", "v")
		if err := a.RemoveItem(ctx, "k"); err != nil {
			t.Fatalf("RemoveItem() error = %v", err)
		}
		if _, ok, _ := a.GetItem(ctx, "k"); ok {
			t.Error("GetItem(k) found a removed key")
		}
		if err := a.RemoveItem(ctx, "k"); err != nil {
			t.Errorf("RemoveItem(missing) error = %v, want nil", err)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		a := newAdapter(t)
		_ = a.SetItem(ctx, "a", "1")
		_ = a.SetItem(ctx, "b", "2")
		_ = a.RemoveItem(ctx, "a")
		if v, ok, _ := a.GetItem(ctx, "b"); !ok || v != "2" {
			t.Errorf("GetItem(b) = %q, %v", v, ok)
		}
	})

	t.Run("large unicode value", func(t *testing.T) {
		a := newAdapter(t)
		big := strings.Repeat("graph ✓ ", 1<<14)
		if err := a.SetItem(ctx, "big", big); err != nil {
			t.Fatalf("SetItem() error = %v", err)
		}
		if v, _, _ := a.GetItem(ctx, "big"); v != big {
			t.Errorf("GetItem(big) returned %d bytes, want %d", len(v), len(big))
		}
	})

	t.Run("relay default key", func(t *testing.T) {
		a := newAdapter(t)
		if err := a.SetItem(ctx, "__RelayCacheManager__", "{}"); err != nil {
			t.Fatalf("SetItem() error = %v", err)
		}
		if _, ok, err := a.GetItem(ctx, "__RelayCacheManager__"); err != nil || !ok {
			t.Errorf("GetItem() = %v, %v", ok, err)
		}
	})
}
