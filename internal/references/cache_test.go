package references

import (
	"context"
	"errors"
	"testing"
)

// countingStore counts reads of the wrapped store
type countingStore struct {
	*DirStore
	opens int
}

func (s *countingStore) Open(ctx context.Context, key string) ([]byte, error) {
	s.opens++
	return s.DirStore.Open(ctx, key)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	dir, _ := NewDirStore(t.TempDir())
	inner := &countingStore{DirStore: dir}
	store, err := NewCachedStore(inner, 8)
	if err != nil {
		t.Fatalf("NewCachedStore failed: %v", err)
	}

	key, _ := store.Save(ctx, "A001", "Alice", "front", []byte("v1"))
	for range 3 {
		data, err := store.Open(ctx, key)
		if err != nil || string(data) != "v1" {
			t.Fatalf("Open = %q, %v", data, err)
		}
	}
	if inner.opens != 1 || store.Len() != 1 {
		t.Errorf("expected 1 underlying read and 1 cached entry, got %d / %d", inner.opens, store.Len())
	}

	// Re-enrollment must not serve the stale image.
	store.Save(ctx, "A001", "Alice", "front", []byte("v2"))
	data, _ := store.Open(ctx, key)
	if string(data) != "v2" {
		t.Errorf("expected fresh image after save, got %q", data)
	}

	if _, err := store.Open(ctx, "A001_Alice/up.jpg"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestCachedStore_DeleteEvicts(t *testing.T) {
	ctx := context.Background()
	dir, _ := NewDirStore(t.TempDir())
	store, _ := NewCachedStore(dir, 8)

	aliceKey, _ := store.Save(ctx, "A001", "Alice", "front", []byte("a"))
	bobKey, _ := store.Save(ctx, "B002", "Bob", "front", []byte("b"))
	store.Open(ctx, aliceKey)
	store.Open(ctx, bobKey)

	removed, err := store.Delete(ctx, "A001")
	if err != nil || removed != 1 {
		t.Fatalf("Delete = %d, %v", removed, err)
	}
	if store.Len() != 1 {
		t.Errorf("expected only Bob to stay cached, got %d entries", store.Len())
	}
	if _, err := store.Open(ctx, aliceKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted image must not be served from cache, got %v", err)
	}
}

func TestNewCachedStore_InvalidSize(t *testing.T) {
	dir, _ := NewDirStore(t.TempDir())
	if _, err := NewCachedStore(dir, 0); err == nil {
		t.Error("expected error for zero size")
	}
}
