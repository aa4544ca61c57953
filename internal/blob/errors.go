package blob

import "errors"

var (
	// ErrExists is returned when a blob is already stored under the requested name.
	ErrExists = errors.New("blob already exists")
	// ErrNotFound signals that no blob is stored under the requested name.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidName rejects names that could escape the storage namespace.
	ErrInvalidName = errors.New("invalid blob name")
)
