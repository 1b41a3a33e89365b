package references

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDirStore_SaveListOpen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewDirStore(root)
	if err != nil {
		t.Fatalf("NewDirStore failed: %v", err)
	}

	if _, err := store.Save(ctx, "B002", "Bob", "front", []byte("bob-front")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	key, err := store.Save(ctx, "A001", "Alice", "left", []byte("alice-left"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if key != "A001_Alice/left.jpg" {
		t.Errorf("unexpected key %q", key)
	}

	// Noise that must be ignored.
	os.WriteFile(filepath.Join(root, "README.txt"), []byte("x"), 0o600)
	os.MkdirAll(filepath.Join(root, "unsorted"), 0o750)
	os.WriteFile(filepath.Join(root, "A001_Alice", "notes.txt"), []byte("x"), 0o600)

	refs, err := store.References(ctx)
	if err != nil {
		t.Fatalf("References failed: %v", err)
	}
	if len(refs) != 2 || refs[0].IdentityID != "A001" || refs[1].IdentityID != "B002" {
		t.Fatalf("unexpected references %+v", refs)
	}

	data, err := store.Open(ctx, refs[0].Key)
	if err != nil || string(data) != "alice-left" {
		t.Errorf("Open = %q, %v", data, err)
	}
	if _, err := store.Open(ctx, "A001_Alice/up.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDirStore_RejectsEscapingKeys(t *testing.T) {
	store, _ := NewDirStore(t.TempDir())
	for _, key := range []string{"../secret.jpg", "/etc/passwd", "A001_Alice/../../x.jpg"} {
		if _, err := store.Open(context.Background(), key); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q) should be rejected, got %v", key, err)
		}
	}
}

func TestDirStore_Delete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, _ := NewDirStore(root)

	store.Save(ctx, "A001", "Alice", "front", []byte("a"))
	store.Save(ctx, "A001", "Alice", "left", []byte("a"))
	// Folder left behind by an earlier display name.
	store.Save(ctx, "A001", "Alicia", "front", []byte("old"))
	store.Save(ctx, "A0011", "Anna", "front", []byte("n"))
	store.Save(ctx, "B002", "Bob", "front", []byte("b"))

	removed, err := store.Delete(ctx, "A001")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed images, got %d", removed)
	}

	refs, _ := store.References(ctx)
	if len(refs) != 2 || refs[0].IdentityID != "A0011" || refs[1].IdentityID != "B002" {
		t.Errorf("unexpected remaining references %+v", refs)
	}
	if _, err := os.Stat(filepath.Join(root, "A001_Alicia")); !os.IsNotExist(err) {
		t.Errorf("stale folder still present: %v", err)
	}

	if removed, err := store.Delete(ctx, "Z999"); err != nil || removed != 0 {
		t.Errorf("Delete of unknown identity = %d, %v", removed, err)
	}
}
