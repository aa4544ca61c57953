package file

import (
	"context"
	"fmt"
	"sync"
)

// MemoryIndex keeps records in process memory. Appends are serialized;
// readers copy a snapshot under the read lock.
type MemoryIndex struct {
	mu      sync.RWMutex
	records []Record
	byName  map[string]int
}

// NewMemoryIndex returns an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byName: make(map[string]int)}
}

// Append assigns the next sequence number and stores the record.
func (m *MemoryIndex) Append(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[rec.StoredName]; ok {
		return Record{}, fmt.Errorf("stored name %q already recorded", rec.StoredName)
	}

	rec.Seq = int64(len(m.records)) + 1
	m.records = append(m.records, rec)
	m.byName[rec.StoredName] = len(m.records) - 1
	return rec, nil
}

// List returns a copy of the records after opts.After.
func (m *MemoryIndex) List(_ context.Context, opts ListOptions) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Seq n lives at position n-1
	start := opts.After
	if start < 0 {
		start = 0
	}
	if start >= int64(len(m.records)) {
		return []Record{}, nil
	}

	end := int64(len(m.records))
	if opts.Limit > 0 && start+int64(opts.Limit) < end {
		end = start + int64(opts.Limit)
	}

	out := make([]Record, end-start)
	copy(out, m.records[start:end])
	return out, nil
}

// Get looks a record up by stored name.
func (m *MemoryIndex) Get(_ context.Context, storedName string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byName[storedName]
	if !ok {
		return Record{}, ErrNotFound
	}
	return m.records[i], nil
}
