package blob

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSaveOpenRemove(t *testing.T) {
	store := newTestStore(t)
	key := "seminars/1/abc-cv.pdf"

	if err := store.Save(key, strings.NewReader("content")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	r, err := store.Open(key)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("expected stored content, got %q", data)
	}

	if err := store.Remove(key); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := store.Open(key); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound after remove, got %v", err)
	}
}

func TestSaveReplacesExistingContent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("f.txt", strings.NewReader("old")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save("f.txt", strings.NewReader("new")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	r, err := store.Open("f.txt")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "new" {
		t.Fatalf("expected replaced content, got %q", data)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Remove("never-saved.txt"); err != nil {
		t.Fatalf("expected removing a missing key to succeed, got %v", err)
	}
}

func TestTraversalRejected(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{"", ".", "..", "../escape.txt", "a/../../escape.txt", "/absolute.txt"} {
		if err := store.Save(key, strings.NewReader("x")); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("save %q: expected ErrInvalidPath, got %v", key, err)
		}
		if _, err := store.Open(key); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("open %q: expected ErrInvalidPath, got %v", key, err)
		}
		if err := store.Remove(key); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("remove %q: expected ErrInvalidPath, got %v", key, err)
		}
	}
}
