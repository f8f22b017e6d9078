package archive_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/USA-RedDragon/itinerary-server/internal/archive"
)

func newArchive(t *testing.T) (*archive.Archive, string) {
	t.Helper()
	root := t.TempDir()
	backend, err := archive.NewFilesystem(root)
	if err != nil {
		t.Fatalf("failed to open filesystem backend: %v", err)
	}
	a, err := archive.New(backend)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	t.Cleanup(func() {
		_ = a.Close()
	})
	return a, root
}

func TestPutGet(t *testing.T) {
	t.Parallel()
	a, root := newArchive(t)

	payload := bytes.Repeat([]byte(`{"day":1,"title":"Fushimi Inari Shrine"}`), 50)
	key := archive.KeyForTrip("b4a7c3f0-1111-4222-8333-944445555666")
	if err := a.Put(context.Background(), key, payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := os.ReadFile(filepath.Join(root, key))
	if err != nil {
		t.Fatalf("expected archived file on disk: %v", err)
	}
	if len(stored) >= len(payload) {
		t.Errorf("expected compressed payload, got %d bytes for %d input", len(stored), len(payload))
	}

	entries, err := os.ReadDir(filepath.Join(root, filepath.Dir(key)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the published entry, found %d files", len(entries))
	}

	got, err := a.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload changed across the archive")
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	a, _ := newArchive(t)

	_, err := a.Get(context.Background(), archive.KeyForTrip("missing"))
	if !errors.Is(err, archive.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	a, _ := newArchive(t)

	key := archive.KeyForTrip("to-delete")
	if err := a.Put(context.Background(), key, []byte("{}")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Delete(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Get(context.Background(), key); !errors.Is(err, archive.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting twice is not an error.
	if err := a.Delete(context.Background(), key); err != nil {
		t.Errorf("unexpected error on second delete: %v", err)
	}
}

func TestKeysStayInsideRoot(t *testing.T) {
	t.Parallel()
	a, root := newArchive(t)

	if err := a.Put(context.Background(), "../../escape.zst", []byte("{}")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.zst")); err != nil {
		t.Errorf("expected write to be confined to the root: %v", err)
	}
}

func TestPutReplaces(t *testing.T) {
	t.Parallel()
	a, _ := newArchive(t)

	key := archive.KeyForTrip("replaced")
	for _, body := range []string{`{"title":"first"}`, `{"title":"second"}`} {
		if err := a.Put(context.Background(), key, []byte(body)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got, err := a.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"title":"second"}` {
		t.Errorf("expected the latest payload, got %s", got)
	}
}
