package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"content_harvester/internal/domain"
)

const digestColumns = `id, digest_date, post_count, article_count, listing_count, content, status, sent_at, created_at`

type DigestStore struct {
	db *sqlx.DB
}

func NewDigestStore(db *sqlx.DB) *DigestStore {
	return &DigestStore{db: db}
}

// FindByDate returns the digest for the calendar date, or nil when none exists.
func (s *DigestStore) FindByDate(ctx context.Context, date time.Time) (*domain.Digest, error) {
	query := `SELECT ` + digestColumns + ` FROM digests WHERE digest_date = $1`

	var d domain.Digest
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &d, query, date.Format("2006-01-02"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DigestStore) FindByID(ctx context.Context, id int64) (*domain.Digest, error) {
	query := `SELECT ` + digestColumns + ` FROM digests WHERE id = $1`

	var d domain.Digest
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &d, query, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// Save upserts by digest_date, so regenerating a draft or failed digest for the
// same date replaces it instead of adding a row. Fills in the digest id.
func (s *DigestStore) Save(ctx context.Context, d *domain.Digest) error {
	query := `INSERT INTO digests (digest_date, post_count, article_count, listing_count, content, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (digest_date) DO UPDATE SET
			post_count = EXCLUDED.post_count,
			article_count = EXCLUDED.article_count,
			listing_count = EXCLUDED.listing_count,
			content = EXCLUDED.content,
			status = EXCLUDED.status
		RETURNING id`

	row := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		d.Date.Format("2006-01-02"), d.PostCount, d.ArticleCount, d.ListingCount, d.Content, d.Status)
	return row.Scan(&d.ID)
}

// MarkSent transitions the digest to sent with the delivery time.
func (s *DigestStore) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	query := `UPDATE digests SET status = $2, sent_at = $3 WHERE id = $1`
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, domain.DigestSent, sentAt)
	return err
}
