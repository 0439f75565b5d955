package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"content_harvester/internal/domain"
)

type HistoryStore struct {
	db *sqlx.DB
}

func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Create inserts the history row and fills in its id.
func (s *HistoryStore) Create(ctx context.Context, hist *domain.CrawlHistory) error {
	query := `INSERT INTO crawl_histories (source_id, status, found, saved, updated, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	row := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		hist.SourceID, hist.Status, hist.Found, hist.Saved, hist.Updated, hist.StartedAt)
	return row.Scan(&hist.ID)
}

// Finish moves the run to its terminal status with final counters.
func (s *HistoryStore) Finish(ctx context.Context, hist *domain.CrawlHistory) error {
	query := `UPDATE crawl_histories SET
		status = $2,
		found = $3,
		saved = $4,
		updated = $5,
		error_detail = $6,
		finished_at = $7
		WHERE id = $1`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		hist.ID, hist.Status, hist.Found, hist.Saved, hist.Updated, hist.ErrorDetail, hist.FinishedAt)
	return err
}
