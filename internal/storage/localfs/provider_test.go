package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestPutOpenRoundTrip(t *testing.T) {
	t.Parallel()

	p, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := p.Put(ctx, "ab/cdef.png", strings.NewReader("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r, err := p.Open(ctx, "ab/cdef.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("got %q, want %q", data, "payload")
	}
}

func TestTraversalKeysRejected(t *testing.T) {
	t.Parallel()

	p, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	for _, key := range []string{"../escape.txt", "..", "/etc/passwd", "a/../../b"} {
		if err := p.Put(ctx, key, strings.NewReader("x")); err == nil {
			t.Fatalf("Put(%q) succeeded, want error", key)
		}
		if _, err := p.Open(ctx, key); err == nil {
			t.Fatalf("Open(%q) succeeded, want error", key)
		}
	}
}

func TestDeleteMissingFileIsNoop(t *testing.T) {
	t.Parallel()

	p, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Delete(context.Background(), "no/such/file.bin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestAccessPath(t *testing.T) {
	t.Parallel()

	p, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.AccessPath("ab/cd.png"); got != "/api/files/ab/cd.png" {
		t.Fatalf("AccessPath = %q", got)
	}
}
