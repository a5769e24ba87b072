package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Service stores uploaded attachments and serves them back.
type Service struct {
	provider StorageProvider
	limits   Limits
	logger   *slog.Logger
}

// NewService creates a media service with the given storage provider.
func NewService(log *slog.Logger, provider StorageProvider, limits Limits) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		provider: provider,
		limits:   limits,
		logger:   log.With(slog.String("service", "media")),
	}
}

// Classify maps a file name to its message type by extension. Returns
// ErrUnsupportedType when no configured type accepts the extension.
func (s *Service) Classify(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	for fileType, exts := range s.limits.AllowedExtensions {
		for _, allowed := range exts {
			allowed = strings.ToLower(allowed)
			if !strings.HasPrefix(allowed, ".") {
				allowed = "." + allowed
			}
			if ext == allowed {
				return fileType, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
}

// Store validates and persists a single file. The storage key is derived from
// the content hash so repeated uploads of identical bytes land on one object.
func (s *Service) Store(ctx context.Context, input UploadInput) (FileDescriptor, error) {
	if s.provider == nil {
		return FileDescriptor{}, ErrProviderUnavailable
	}
	if input.Reader == nil {
		return FileDescriptor{}, fmt.Errorf("reader is required")
	}

	fileType, err := s.Classify(input.OriginalName)
	if err != nil {
		return FileDescriptor{}, err
	}

	contentHash, sizeBytes, tempPath, err := spoolAndHashWithLimit(input.Reader, s.limits.MaxBytes)
	if err != nil {
		return FileDescriptor{}, err
	}
	defer func() {
		_ = os.Remove(tempPath)
	}()
	if sizeBytes == 0 {
		return FileDescriptor{}, ErrEmptyFile
	}

	ext := strings.ToLower(filepath.Ext(input.OriginalName))
	storageKey := path.Join(contentHash[:2], contentHash+ext)

	tempFile, err := os.Open(tempPath)
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("open temp file: %w", err)
	}
	defer func() {
		_ = tempFile.Close()
	}()
	if err := s.provider.Put(ctx, storageKey, tempFile); err != nil {
		return FileDescriptor{}, fmt.Errorf("store file: %w", err)
	}

	return FileDescriptor{
		OriginalName: input.OriginalName,
		FilePath:     s.provider.AccessPath(storageKey),
		FileType:     fileType,
		SizeBytes:    sizeBytes,
	}, nil
}

// StoreBatch persists each file independently. A failing file never aborts
// the batch; its result carries the error instead.
func (s *Service) StoreBatch(ctx context.Context, inputs []UploadInput) []UploadResult {
	results := make([]UploadResult, 0, len(inputs))
	for _, input := range inputs {
		desc, err := s.Store(ctx, input)
		if err != nil {
			s.logger.Warn("upload rejected",
				slog.String("file", input.OriginalName),
				slog.String("error", err.Error()))
		}
		results = append(results, UploadResult{
			OriginalName: input.OriginalName,
			Descriptor:   desc,
			Err:          err,
		})
	}
	return results
}

// Open returns a reader for a previously stored file path as produced by
// FileDescriptor.FilePath.
func (s *Service) Open(ctx context.Context, filePath string) (io.ReadCloser, error) {
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}
	key := strings.TrimPrefix(filePath, "/api/files/")
	return s.provider.Open(ctx, key)
}

// spoolAndHashWithLimit copies the reader to a temp file while hashing,
// enforcing maxBytes. Caller removes the returned temp file.
func spoolAndHashWithLimit(reader io.Reader, maxBytes int64) (hash string, size int64, tempPath string, err error) {
	temp, err := os.CreateTemp("", "upload-*")
	if err != nil {
		return "", 0, "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		cerr := temp.Close()
		if err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(temp.Name())
		}
	}()

	hasher := sha256.New()
	limited := &io.LimitedReader{R: reader, N: maxBytes + 1}
	size, err = io.Copy(io.MultiWriter(temp, hasher), limited)
	if err != nil {
		return "", 0, "", fmt.Errorf("spool upload: %w", err)
	}
	if size > maxBytes {
		return "", 0, "", fmt.Errorf("%w: max %d bytes", ErrFileTooLarge, maxBytes)
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, temp.Name(), nil
}
