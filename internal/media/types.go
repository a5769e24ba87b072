// Package media validates and stores message attachments.
package media

import (
	"context"
	"io"
)

// StorageProvider abstracts where attachment bytes live.
type StorageProvider interface {
	// Put writes data to storage under the given key.
	Put(ctx context.Context, key string, reader io.Reader) error
	// Open returns a reader for the given storage key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
	// AccessPath returns the client-facing reference for a storage key.
	AccessPath(key string) string
}

// Limits bounds what an upload may contain.
type Limits struct {
	// MaxBytes is the per-file size ceiling.
	MaxBytes int64
	// AllowedExtensions maps a message type ("image", "document", "audio")
	// to the file extensions it accepts, with or without the leading dot.
	AllowedExtensions map[string][]string
}

// UploadInput is one file in an upload batch.
type UploadInput struct {
	OriginalName string
	Reader       io.Reader
}

// FileDescriptor describes a stored attachment.
type FileDescriptor struct {
	OriginalName string `json:"original_name"`
	FilePath     string `json:"file_path"`
	FileType     string `json:"file_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

// UploadResult pairs each input file with its outcome. Exactly one of
// Descriptor and Err is meaningful.
type UploadResult struct {
	OriginalName string
	Descriptor   FileDescriptor
	Err          error
}
