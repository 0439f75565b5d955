package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"content_harvester/internal/domain"
)

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

// sourceRow mirrors the sources table; config is raw JSON until unmarshalled.
type sourceRow struct {
	ID            int64           `db:"id"`
	Code          string          `db:"code"`
	Name          string          `db:"name"`
	Kind          string          `db:"kind"`
	Config        json.RawMessage `db:"config"`
	Enabled       bool            `db:"enabled"`
	CrawlInterval int64           `db:"crawl_interval_seconds"`
	LastCrawledAt *time.Time      `db:"last_crawled_at"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (r *sourceRow) toDomain() (domain.Source, error) {
	src := domain.Source{
		ID:            r.ID,
		Code:          r.Code,
		Name:          r.Name,
		Kind:          domain.ContentKind(r.Kind),
		Enabled:       r.Enabled,
		CrawlInterval: time.Duration(r.CrawlInterval) * time.Second,
		LastCrawledAt: r.LastCrawledAt,
		CreatedAt:     r.CreatedAt,
	}
	if len(r.Config) > 0 {
		if err := json.Unmarshal(r.Config, &src.Config); err != nil {
			return src, fmt.Errorf("unmarshal config for source %s: %w", r.Code, err)
		}
	}
	return src, nil
}

// ListEnabled returns the enabled sources of one kind, oldest-crawled first.
func (s *SourceStore) ListEnabled(ctx context.Context, kind domain.ContentKind) ([]domain.Source, error) {
	query := `SELECT id, code, name, kind, config, enabled, crawl_interval_seconds, last_crawled_at, created_at
		FROM sources
		WHERE enabled = TRUE AND kind = $1
		ORDER BY last_crawled_at NULLS FIRST, id`

	var rows []sourceRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, kind); err != nil {
		return nil, err
	}

	sources := make([]domain.Source, 0, len(rows))
	for i := range rows {
		src, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// AdvanceLastCrawled records the start time of the latest crawl for the source.
func (s *SourceStore) AdvanceLastCrawled(ctx context.Context, sourceID int64, t time.Time) error {
	query := `UPDATE sources SET last_crawled_at = $2 WHERE id = $1`
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, sourceID, t)
	return err
}
