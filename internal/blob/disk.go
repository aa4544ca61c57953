package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const tempPattern = ".tmp-*"

// DiskStore keeps blobs as files in a single directory.
type DiskStore struct {
	basePath string
}

// NewDiskStore creates the directory if needed and returns a store rooted at it.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", basePath, err)
	}
	return &DiskStore{basePath: basePath}, nil
}

// Put streams r into a temp file and links it into place under name.
// The link fails if the name is taken, so an existing blob is never replaced.
func (d *DiskStore) Put(ctx context.Context, name string, r io.Reader, _ string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}

	final := d.path(name)
	if _, err := os.Lstat(final); err == nil {
		return 0, ErrExists
	}

	tmp, err := os.CreateTemp(d.basePath, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write blob %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("sync blob %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close blob %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := os.Link(tmpName, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, ErrExists
		}
		return 0, fmt.Errorf("publish blob %s: %w", name, err)
	}

	return n, nil
}

// Open returns a reader over the stored blob and its size.
func (d *DiskStore) Open(_ context.Context, name string) (io.ReadCloser, int64, error) {
	if err := ValidateName(name); err != nil {
		return nil, 0, ErrNotFound
	}

	f, err := os.Open(d.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("open blob %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat blob %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, 0, ErrNotFound
	}

	return f, info.Size(), nil
}

// Remove deletes a blob. Removing a missing blob is not an error.
func (d *DiskStore) Remove(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(d.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob %s: %w", name, err)
	}
	return nil
}

// Ping checks the upload directory is still present.
func (d *DiskStore) Ping(_ context.Context) error {
	info, err := os.Stat(d.basePath)
	if err != nil {
		return fmt.Errorf("stat upload directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("upload path %s is not a directory", d.basePath)
	}
	return nil
}

func (d *DiskStore) path(name string) string {
	return filepath.Join(d.basePath, name)
}
