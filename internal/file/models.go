package file

import "time"

// Record describes one stored upload. Records are immutable once appended.
type Record struct {
	Seq          int64     `json:"seq"`
	StoredName   string    `json:"stored_name"`
	OriginalName string    `json:"original_name"`
	Uploader     string    `json:"uploader"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
	Checksum     string    `json:"checksum"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListOptions pages through the registry in insertion order.
// After is the Seq of the last record already seen; Limit 0 means no limit.
type ListOptions struct {
	After int64
	Limit int
}
