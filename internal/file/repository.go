package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository keeps upload records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new upload repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// appendLockKey names the transaction-scoped advisory lock held while a record
// is inserted. Holding it until commit makes seq order equal commit order, so
// a reader paging with seq > cursor never passes a row that is still in flight.
const appendLockKey = 0x65617379 // "easy"

// Append inserts a record; the database assigns its sequence number.
func (r *Repository) Append(ctx context.Context, rec Record) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1);`, int64(appendLockKey)); err != nil {
		return Record{}, fmt.Errorf("lock uploads: %w", err)
	}

	query := `
INSERT INTO uploads (stored_name, original_name, uploader, size_bytes, content_type, checksum, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING seq, stored_name, original_name, uploader, size_bytes, content_type, checksum, created_at;`

	row := tx.QueryRow(ctx, query,
		rec.StoredName,
		rec.OriginalName,
		rec.Uploader,
		rec.SizeBytes,
		rec.ContentType,
		rec.Checksum,
		rec.CreatedAt,
	)

	stored, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("append upload record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("commit upload record: %w", err)
	}
	return stored, nil
}

// List returns records ordered by sequence, starting after opts.After.
func (r *Repository) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT seq, stored_name, original_name, uploader, size_bytes, content_type, checksum, created_at
FROM uploads
WHERE seq > $1
ORDER BY seq
LIMIT NULLIF($2::bigint, 0);`

	rows, err := r.pool.Query(ctx, query, opts.After, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return records, nil
}

// Get fetches the record for a stored name.
func (r *Repository) Get(ctx context.Context, storedName string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT seq, stored_name, original_name, uploader, size_bytes, content_type, checksum, created_at
FROM uploads
WHERE stored_name = $1;`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, storedName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get upload record: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.Seq,
		&rec.StoredName,
		&rec.OriginalName,
		&rec.Uploader,
		&rec.SizeBytes,
		&rec.ContentType,
		&rec.Checksum,
		&rec.CreatedAt,
	)
	return rec, err
}
