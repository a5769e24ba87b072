package media

import "errors"

var (
	// ErrProviderUnavailable indicates the storage provider is not configured.
	ErrProviderUnavailable = errors.New("storage provider unavailable")
	// ErrFileTooLarge indicates the payload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType indicates the file extension is not on the allow list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEmptyFile indicates a zero-byte upload.
	ErrEmptyFile = errors.New("file is empty")
)
