// Package blob stores upload bytes under caller-chosen names.
//
// Backends never overwrite: a Put under a name that is already taken fails
// with ErrExists, and a reader never observes a partially written blob.
package blob

import (
	"context"
	"io"
	"strings"
)

const maxNameLength = 255

// Store is implemented by every byte-storage backend.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
	Remove(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

// ValidateName accepts flat names only: no separators, no leading dot, no traversal.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return ErrInvalidName
	}
	if strings.HasPrefix(name, ".") {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return ErrInvalidName
	}
	return nil
}

// contextReader stops a copy as soon as ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
