package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abduss/easyshare/internal/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiskService(t *testing.T, maxFileSize int64) (*Service, *MemoryIndex, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := blob.NewDiskStore(dir)
	require.NoError(t, err)
	idx := NewMemoryIndex()
	return NewService(idx, store, maxFileSize), idx, dir
}

func TestStoreThenFetchRoundTrip(t *testing.T) {
	service, _, _ := newDiskService(t, 0)

	payload := make([]byte, 70000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	rec, err := service.Store(context.Background(), StoreInput{
		Uploader:     "alice",
		OriginalName: "report.pdf",
		ContentType:  "application/pdf",
		Body:         bytes.NewReader(payload),
	})
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", rec.OriginalName)
	assert.Equal(t, "alice", rec.Uploader)
	assert.Equal(t, int64(len(payload)), rec.SizeBytes)
	assert.True(t, strings.HasSuffix(rec.StoredName, "-report.pdf"), rec.StoredName)
	assert.Len(t, rec.Checksum, 64)

	got, reader, err := service.Fetch(context.Background(), rec.StoredName)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, rec.StoredName, got.StoredName)
	assert.Equal(t, int64(len(payload)), got.SizeBytes)
}

func TestStoreSingleByte(t *testing.T) {
	service, _, _ := newDiskService(t, 0)

	rec, err := service.Store(context.Background(), StoreInput{OriginalName: "a.txt", Body: strings.NewReader("x")})
	require.NoError(t, err)

	_, reader, err := service.Fetch(context.Background(), rec.StoredName)
	require.NoError(t, err)
	defer reader.Close()

	data, _ := io.ReadAll(reader)
	assert.Equal(t, "x", string(data))
}

func TestStoreRejectsEmptyUpload(t *testing.T) {
	service, idx, dir := newDiskService(t, 0)

	for _, body := range []io.Reader{nil, bytes.NewReader(nil), strings.NewReader("")} {
		_, err := service.Store(context.Background(), StoreInput{OriginalName: "empty.txt", Body: body})
		assert.ErrorIs(t, err, ErrEmptyUpload)
	}

	records, err := idx.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreRejectsOversizedUpload(t *testing.T) {
	service, idx, dir := newDiskService(t, 10)

	_, err := service.Store(context.Background(), StoreInput{
		OriginalName: "big.bin",
		Body:         strings.NewReader(strings.Repeat("z", 11)),
	})
	require.ErrorIs(t, err, ErrFileTooLarge)

	records, _ := idx.List(context.Background(), ListOptions{})
	assert.Empty(t, records)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)

	_, err = service.Store(context.Background(), StoreInput{
		OriginalName: "fits.bin",
		Body:         strings.NewReader(strings.Repeat("z", 10)),
	})
	assert.NoError(t, err)
}

func TestConcurrentStoresProduceDistinctNames(t *testing.T) {
	service, _, _ := newDiskService(t, 0)

	const uploads = 25
	var wg sync.WaitGroup
	names := make([]string, uploads)
	errs := make([]error, uploads)

	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := service.Store(context.Background(), StoreInput{
				OriginalName: fmt.Sprintf("file-%d.txt", i),
				Body:         strings.NewReader(fmt.Sprintf("content %d", i)),
			})
			names[i], errs[i] = rec.StoredName, err
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < uploads; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[names[i]], "duplicate stored name %s", names[i])
		seen[names[i]] = true
	}

	records, err := service.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, uploads)
	for _, rec := range records {
		assert.True(t, seen[rec.StoredName])
	}
}

func TestConcurrentStoresWithSameOriginalName(t *testing.T) {
	service, _, _ := newDiskService(t, 0)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service.nowFunc = func() time.Time { return fixed }

	var wg sync.WaitGroup
	results := make(chan Record, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := service.Store(context.Background(), StoreInput{OriginalName: "same.txt", Body: strings.NewReader("x")})
			if err == nil {
				results <- rec
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for rec := range results {
		assert.False(t, seen[rec.StoredName])
		seen[rec.StoredName] = true
	}
	assert.Len(t, seen, 10)
}

func TestListPreservesInsertionOrder(t *testing.T) {
	service, _, _ := newDiskService(t, 0)

	var want []string
	for i := 0; i < 5; i++ {
		rec, err := service.Store(context.Background(), StoreInput{
			OriginalName: fmt.Sprintf("doc-%d.txt", i),
			Body:         strings.NewReader("data"),
		})
		require.NoError(t, err)
		want = append(want, rec.StoredName)
	}

	for round := 0; round < 3; round++ {
		records, err := service.List(context.Background(), ListOptions{})
		require.NoError(t, err)

		var got []string
		for _, rec := range records {
			got = append(got, rec.StoredName)
		}
		assert.Equal(t, want, got)
	}

	page, err := service.List(context.Background(), ListOptions{After: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, want[2], page[0].StoredName)
	assert.Equal(t, want[3], page[1].StoredName)
}

func TestAllWalksEveryPageAndRestarts(t *testing.T) {
	idx := NewMemoryIndex()
	service := NewService(idx, &fakeBlobStore{}, 0)

	total := pageSize*2 + 17
	for i := 0; i < total; i++ {
		_, err := idx.Append(context.Background(), Record{StoredName: fmt.Sprintf("n-%03d", i)})
		require.NoError(t, err)
	}

	for pass := 0; pass < 2; pass++ {
		var count int
		for rec, err := range service.All(context.Background()) {
			require.NoError(t, err)
			require.Equal(t, fmt.Sprintf("n-%03d", count), rec.StoredName)
			count++
		}
		assert.Equal(t, total, count)
	}

	var taken int
	for range service.All(context.Background()) {
		taken++
		if taken == 3 {
			break
		}
	}
	assert.Equal(t, 3, taken)
}

func TestAllReportsIndexFailure(t *testing.T) {
	service := NewService(&fakeIndex{listErr: errors.New("connection refused")}, &fakeBlobStore{}, 0)

	var calls int
	for _, err := range service.All(context.Background()) {
		calls++
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	}
	assert.Equal(t, 1, calls)
}

func TestFetchUnknownNameReturnsNotFound(t *testing.T) {
	service, _, _ := newDiskService(t, 0)

	_, reader, err := service.Fetch(context.Background(), "1700000000000-deadbeef-missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, reader)
}

func TestFetchRecordWithoutBlobReturnsNotFound(t *testing.T) {
	idx := NewMemoryIndex()
	_, err := idx.Append(context.Background(), Record{StoredName: "orphan"})
	require.NoError(t, err)

	service := NewService(idx, &fakeBlobStore{}, 0)
	_, reader, err := service.Fetch(context.Background(), "orphan")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, reader)
}

func TestStoreRemovesBlobWhenIndexFails(t *testing.T) {
	blobs := &fakeBlobStore{}
	service := NewService(&fakeIndex{appendErr: errors.New("disk full")}, blobs, 0)

	_, err := service.Store(context.Background(), StoreInput{OriginalName: "a.txt", Body: strings.NewReader("payload")})
	require.ErrorIs(t, err, ErrStorageUnavailable)

	assert.Equal(t, 1, blobs.putCount)
	assert.Equal(t, 1, blobs.removeCount)
	assert.Empty(t, blobs.objects)
}

func TestStoreAddsNoRecordWhenBlobWriteFails(t *testing.T) {
	idx := NewMemoryIndex()
	service := NewService(idx, &fakeBlobStore{putErr: errors.New("permission denied")}, 0)

	_, err := service.Store(context.Background(), StoreInput{OriginalName: "a.txt", Body: strings.NewReader("payload")})
	require.ErrorIs(t, err, ErrStorageUnavailable)

	records, _ := idx.List(context.Background(), ListOptions{})
	assert.Empty(t, records)
}

func TestStoreRetriesNameCollision(t *testing.T) {
	service, _, _ := newDiskService(t, 0)
	fixed := time.UnixMilli(1700000000000)
	tokens := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	service.nowFunc = func() time.Time { return fixed }
	service.tokenFunc = func() string {
		tok := tokens[0]
		tokens = tokens[1:]
		return tok
	}

	first, err := service.Store(context.Background(), StoreInput{OriginalName: "x.txt", Body: strings.NewReader("one")})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-aaaaaaaa-x.txt", first.StoredName)

	second, err := service.Store(context.Background(), StoreInput{OriginalName: "x.txt", Body: strings.NewReader("two")})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-bbbbbbbb-x.txt", second.StoredName)

	_, reader, err := service.Fetch(context.Background(), first.StoredName)
	require.NoError(t, err)
	data, _ := io.ReadAll(reader)
	reader.Close()
	assert.Equal(t, "one", string(data), "existing blob must not be overwritten")
}

func TestStoreHonoursCancellation(t *testing.T) {
	service, idx, dir := newDiskService(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Store(ctx, StoreInput{OriginalName: "a.txt", Body: strings.NewReader("payload")})
	require.ErrorIs(t, err, context.Canceled)

	records, _ := idx.List(context.Background(), ListOptions{})
	assert.Empty(t, records)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestStoreDetectsContentType(t *testing.T) {
	service, _, _ := newDiskService(t, 0)

	rec, err := service.Store(context.Background(), StoreInput{
		OriginalName: "page",
		ContentType:  "application/octet-stream",
		Body:         strings.NewReader("<html><body>hi</body></html>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", rec.ContentType)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"my report (final).pdf", "my_report__final_.pdf"},
		{`C:\Users\bob\notes.txt`, "notes.txt"},
		{"../../etc/passwd", "passwd"},
		{"..", "upload"},
		{"", "upload"},
		{"résumé.doc", "r_sum_.doc"},
		{".hidden", "hidden"},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := sanitizeFilename(strings.Repeat("a", 300) + ".txt")
	assert.Len(t, long, maxStoredNameBase)
	assert.True(t, strings.HasSuffix(long, ".txt"))
}

func TestDisplayNameKeepsOriginalCharacters(t *testing.T) {
	assert.Equal(t, "my report (final).pdf", displayName("  my report (final).pdf "))
	assert.Equal(t, "notes.txt", displayName(`C:\Users\bob\notes.txt`))
	assert.Equal(t, "upload", displayName("   "))
}

// --- fakes ---

type fakeIndex struct {
	appendErr error
	listErr   error
}

func (f *fakeIndex) Append(ctx context.Context, rec Record) (Record, error) {
	if f.appendErr != nil {
		return Record{}, f.appendErr
	}
	return rec, nil
}

func (f *fakeIndex) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return nil, nil
}

func (f *fakeIndex) Get(ctx context.Context, storedName string) (Record, error) {
	return Record{}, ErrNotFound
}

type fakeBlobStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	putErr      error
	putCount    int
	removeCount int
}

func (f *fakeBlobStore) Put(ctx context.Context, name string, r io.Reader, contentType string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCount++
	if f.putErr != nil {
		return 0, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[name] = data
	return int64(len(data)), nil
}

func (f *fakeBlobStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	if !ok {
		return nil, 0, blob.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeBlobStore) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCount++
	delete(f.objects, name)
	return nil
}

func (f *fakeBlobStore) Ping(ctx context.Context) error {
	return nil
}
