package file

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/abduss/easyshare/internal/blob"
	"github.com/google/uuid"
)

const (
	defaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	maxStoredNameBase  = 128
	nameAttempts       = 3
	sniffLength        = 512
	pageSize           = 100
)

// index stores upload records in insertion order.
type index interface {
	Append(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context, opts ListOptions) ([]Record, error)
	Get(ctx context.Context, storedName string) (Record, error)
}

// Service is the upload registry: it owns stored-name generation and keeps
// the index and the blob backend consistent with each other.
type Service struct {
	index       index
	blobs       blob.Store
	maxFileSize int64
	nowFunc     func() time.Time
	tokenFunc   func() string
}

// NewService constructs an upload registry. maxFileSize <= 0 selects the default.
func NewService(idx index, blobs blob.Store, maxFileSize int64) *Service {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	return &Service{
		index:       idx,
		blobs:       blobs,
		maxFileSize: maxFileSize,
		nowFunc:     time.Now,
		tokenFunc:   randomToken,
	}
}

// StoreInput carries one upload stream and its metadata.
type StoreInput struct {
	Uploader     string
	OriginalName string
	ContentType  string
	Body         io.Reader
}

// MaxFileSize reports the per-upload byte limit.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// Store writes the body to the blob backend under a fresh stored name and
// appends a record. Either both happen or neither does.
func (s *Service) Store(ctx context.Context, in StoreInput) (Record, error) {
	if in.Body == nil {
		return Record{}, ErrEmptyUpload
	}

	br := bufio.NewReaderSize(in.Body, sniffLength)
	head, err := br.Peek(sniffLength)
	if len(head) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return Record{}, ErrEmptyUpload
		}
		return Record{}, fmt.Errorf("read upload: %w", err)
	}

	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head)
	}

	hasher := sha256.New()
	body := &limitedReader{r: io.TeeReader(br, hasher), max: s.maxFileSize}
	now := s.nowFunc().UTC()

	var (
		storedName string
		size       int64
	)
	for attempt := 0; ; attempt++ {
		storedName = s.storedName(now, in.OriginalName)
		size, err = s.blobs.Put(ctx, storedName, body, contentType)
		if err == nil {
			break
		}
		// a collision detected before any byte was consumed can be retried
		if errors.Is(err, blob.ErrExists) && body.read == 0 && attempt+1 < nameAttempts {
			continue
		}
		switch {
		case body.exceeded:
			return Record{}, ErrFileTooLarge
		case ctx.Err() != nil:
			return Record{}, fmt.Errorf("store upload: %w", ctx.Err())
		case errors.Is(err, blob.ErrInvalidName):
			return Record{}, fmt.Errorf("store upload: %w", err)
		default:
			return Record{}, fmt.Errorf("%w: write blob: %w", ErrStorageUnavailable, err)
		}
	}

	if size > s.maxFileSize {
		s.discard(ctx, storedName)
		return Record{}, ErrFileTooLarge
	}

	rec, err := s.index.Append(ctx, Record{
		StoredName:   storedName,
		OriginalName: displayName(in.OriginalName),
		Uploader:     in.Uploader,
		SizeBytes:    size,
		ContentType:  contentType,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt:    now,
	})
	if err != nil {
		s.discard(ctx, storedName)
		return Record{}, fmt.Errorf("%w: append record: %w", ErrStorageUnavailable, err)
	}

	return rec, nil
}

// List returns records in insertion order.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	records, err := s.index.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %w", ErrStorageUnavailable, err)
	}
	return records, nil
}

// All walks every record in insertion order, one page at a time. Each call
// of the returned sequence starts again from the first record.
func (s *Service) All(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		var after int64
		for {
			page, err := s.List(ctx, ListOptions{After: after, Limit: pageSize})
			if err != nil {
				yield(Record{}, err)
				return
			}
			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
				after = rec.Seq
			}
			if len(page) < pageSize {
				return
			}
		}
	}
}

// Fetch opens the blob for a stored name. Nothing is returned for reading
// unless both the record and the blob exist.
func (s *Service) Fetch(ctx context.Context, storedName string) (Record, io.ReadCloser, error) {
	rec, err := s.index.Get(ctx, storedName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, nil, ErrNotFound
		}
		return Record{}, nil, fmt.Errorf("%w: get record: %w", ErrStorageUnavailable, err)
	}

	rc, size, err := s.blobs.Open(ctx, rec.StoredName)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return Record{}, nil, ErrNotFound
		}
		return Record{}, nil, fmt.Errorf("%w: open blob: %w", ErrStorageUnavailable, err)
	}
	rec.SizeBytes = size

	return rec, rc, nil
}

func (s *Service) storedName(now time.Time, original string) string {
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), s.tokenFunc(), sanitizeFilename(original))
}

func (s *Service) discard(ctx context.Context, storedName string) {
	_ = s.blobs.Remove(context.WithoutCancel(ctx), storedName)
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// displayName keeps the user-facing name as given, minus any client-side directory.
func displayName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "upload"
	}
	return name
}

// sanitizeFilename reduces a name to characters safe in a flat storage namespace.
func sanitizeFilename(name string) string {
	name = displayName(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name = strings.Trim(b.String(), ".")
	if name == "" {
		return "upload"
	}

	if len(name) > maxStoredNameBase {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxStoredNameBase-len(ext)] + ext
	}
	return name
}

// limitedReader fails the copy once more than max bytes have been read.
type limitedReader struct {
	r        io.Reader
	max      int64
	read     int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		l.exceeded = true
		return n, ErrFileTooLarge
	}
	return n, err
}
