package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
)

// PgStore keeps file contents in the blobs table.
type PgStore struct {
	pool     *pgxpool.Pool
	maxBytes int64
}

func NewPgStore(pool *pgxpool.Pool, maxBytes int64) *PgStore {
	return &PgStore{pool: pool, maxBytes: maxBytes}
}

func (s *PgStore) Put(ctx context.Context, up Upload) (*Ref, error) {
	ref, data, err := read(up, s.maxBytes, time.Now())
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO blobs (filename, original_name, content_type, size, data, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ref.Filename, ref.OriginalName, ref.MimeType, ref.Size, data, ref.UploadDate)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "blob_write_failed", "could not store file", err)
	}
	return ref, nil
}

func (s *PgStore) Open(ctx context.Context, filename string) (*Object, error) {
	var obj Object
	err := s.pool.QueryRow(ctx, `
		SELECT filename, original_name, content_type, size, uploaded_at, data
		FROM blobs
		WHERE filename = $1
	`, filename).Scan(
		&obj.Filename,
		&obj.OriginalName,
		&obj.MimeType,
		&obj.Size,
		&obj.UploadDate,
		&obj.Data,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", filename, err)
	}
	return &obj, nil
}

func (s *PgStore) Delete(ctx context.Context, filename string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM blobs WHERE filename = $1`, filename)
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", filename, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlobNotFound
	}
	return nil
}
