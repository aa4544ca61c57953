package file

import "errors"

var (
	// ErrEmptyUpload is returned when an upload carries no bytes.
	ErrEmptyUpload = errors.New("empty upload")
	// ErrNotFound signals that no upload exists under the requested stored name.
	ErrNotFound = errors.New("upload not found")
	// ErrFileTooLarge signals that the upload exceeds configured limits.
	ErrFileTooLarge = errors.New("file too large")
	// ErrStorageUnavailable wraps I/O failures of the blob backend or the index.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
