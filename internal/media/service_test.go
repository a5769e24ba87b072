package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atendohq/atendo/internal/storage/localfs"
)

func testLimits() Limits {
	return Limits{
		MaxBytes: 64,
		AllowedExtensions: map[string][]string{
			"image":    {".png", ".jpg"},
			"document": {".pdf"},
			"audio":    {".ogg"},
		},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	provider, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	return NewService(nil, provider, testLimits())
}

func TestClassify(t *testing.T) {
	t.Parallel()

	s := newTestService(t)
	cases := []struct {
		name     string
		wantType string
		wantErr  bool
	}{
		{name: "photo.png", wantType: "image"},
		{name: "PHOTO.JPG", wantType: "image"},
		{name: "invoice.pdf", wantType: "document"},
		{name: "note.ogg", wantType: "audio"},
		{name: "script.exe", wantErr: true},
		{name: "noextension", wantErr: true},
	}
	for _, tc := range cases {
		got, err := s.Classify(tc.name)
		if tc.wantErr {
			if !errors.Is(err, ErrUnsupportedType) {
				t.Fatalf("Classify(%q) err = %v, want ErrUnsupportedType", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Classify(%q): %v", tc.name, err)
		}
		if got != tc.wantType {
			t.Fatalf("Classify(%q) = %q, want %q", tc.name, got, tc.wantType)
		}
	}
}

func TestStoreRejectsOversizedFile(t *testing.T) {
	t.Parallel()

	s := newTestService(t)
	_, err := s.Store(context.Background(), UploadInput{
		OriginalName: "big.png",
		Reader:       strings.NewReader(strings.Repeat("x", 65)),
	})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestStoreRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	s := newTestService(t)
	_, err := s.Store(context.Background(), UploadInput{
		OriginalName: "empty.png",
		Reader:       strings.NewReader(""),
	})
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("err = %v, want ErrEmptyFile", err)
	}
}

func TestStoreBatchIsolatesFailures(t *testing.T) {
	t.Parallel()

	s := newTestService(t)
	results := s.StoreBatch(context.Background(), []UploadInput{
		{OriginalName: "ok.png", Reader: strings.NewReader("fine")},
		{OriginalName: "nope.exe", Reader: strings.NewReader("bad")},
		{OriginalName: "also-ok.pdf", Reader: strings.NewReader("fine too")},
	})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("first file failed: %v", results[0].Err)
	}
	if results[0].Descriptor.FileType != "image" {
		t.Fatalf("first file type = %q", results[0].Descriptor.FileType)
	}
	if !errors.Is(results[1].Err, ErrUnsupportedType) {
		t.Fatalf("second file err = %v, want ErrUnsupportedType", results[1].Err)
	}
	if results[2].Err != nil {
		t.Fatalf("third file failed: %v", results[2].Err)
	}
	if !strings.HasPrefix(results[2].Descriptor.FilePath, "/api/files/") {
		t.Fatalf("file path = %q", results[2].Descriptor.FilePath)
	}
}

func TestStoreThenOpenRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestService(t)
	desc, err := s.Store(context.Background(), UploadInput{
		OriginalName: "photo.jpg",
		Reader:       strings.NewReader("image-bytes"),
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	r, err := s.Open(context.Background(), desc.FilePath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
}
