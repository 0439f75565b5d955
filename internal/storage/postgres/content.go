package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"content_harvester/internal/domain"
)

const contentColumns = `id, source_id, kind, external_id, title, body, translated_title, translated_body,
	author, origin, score, comment_count, language, sentiment, published_at, created_at, updated_at`

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

// FindExistingByExternalIDs resolves which of the given external ids already
// exist for the source, in one batched query.
func (s *ContentStore) FindExistingByExternalIDs(ctx context.Context, sourceID int64, ids []string) (map[string]domain.ContentItem, error) {
	result := make(map[string]domain.ContentItem)
	if len(ids) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM content_items WHERE source_id = $1 AND external_id = ANY($2)`, contentColumns)

	var items []domain.ContentItem
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &items, query, sourceID, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		result[item.ExternalID] = item
	}
	return result, nil
}

// BatchInsert inserts all items in one statement.
func (s *ContentStore) BatchInsert(ctx context.Context, items []domain.ContentItem) error {
	if len(items) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO content_items
		(source_id, kind, external_id, title, body, author, origin, score, comment_count, language, published_at)
		VALUES `)

	args := make([]interface{}, 0, len(items)*11)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 11
		sb.WriteString("(")
		for j := 1; j <= 11; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			item.SourceID,
			item.Kind,
			item.ExternalID,
			item.Title,
			item.Body,
			item.Author,
			item.Origin,
			item.Score,
			item.CommentCount,
			item.Language,
			item.PublishedAt,
		)
	}

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	return err
}

// BatchUpdate updates the engagement counters of all items in one statement.
// Callers only queue items whose counters actually changed.
func (s *ContentStore) BatchUpdate(ctx context.Context, items []domain.ContentItem) error {
	if len(items) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`UPDATE content_items AS c SET
		score = v.score,
		comment_count = v.comment_count,
		updated_at = now()
		FROM (VALUES `)

	args := make([]interface{}, 0, len(items)*3)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 3
		fmt.Fprintf(&sb, "($%d::bigint, $%d::int, $%d::int)", base+1, base+2, base+3)
		args = append(args, item.ID, item.Score, item.CommentCount)
	}
	sb.WriteString(`) AS v(id, score, comment_count) WHERE c.id = v.id`)

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	return err
}

// MergeSave persists the enrichment fields of previously-fetched items by
// identity. Every item must carry a valid id.
func (s *ContentStore) MergeSave(ctx context.Context, items []domain.ContentItem) error {
	if len(items) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`UPDATE content_items AS c SET
		translated_title = v.translated_title,
		translated_body = v.translated_body,
		sentiment = v.sentiment,
		updated_at = now()
		FROM (VALUES `)

	args := make([]interface{}, 0, len(items)*4)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 4
		fmt.Fprintf(&sb, "($%d::bigint, $%d::text, $%d::text, $%d::text)", base+1, base+2, base+3, base+4)
		args = append(args, item.ID, item.TranslatedTitle, item.TranslatedBody, item.Sentiment)
	}
	sb.WriteString(`) AS v(id, translated_title, translated_body, sentiment) WHERE c.id = v.id`)

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	return err
}

// FindNeedingTranslation returns Korean items whose title has not been
// translated yet. Items with an empty title are excluded so a blank source
// field cannot keep a row pending forever.
func (s *ContentStore) FindNeedingTranslation(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_items
		WHERE language = $1 AND translated_title IS NULL AND title <> ''
		ORDER BY id
		LIMIT $2`, contentColumns)

	var items []domain.ContentItem
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &items, query, domain.LanguageKorean, limit)
	return items, err
}

// FindNeedingSentiment returns items not yet classified.
func (s *ContentStore) FindNeedingSentiment(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_items
		WHERE sentiment IS NULL
		ORDER BY id
		LIMIT $1`, contentColumns)

	var items []domain.ContentItem
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &items, query, limit)
	return items, err
}

// CountCreatedBetween returns per-kind counts of items created in the window.
func (s *ContentStore) CountCreatedBetween(ctx context.Context, from, to time.Time) (map[domain.ContentKind]int, error) {
	query := `SELECT kind, COUNT(*) AS count FROM content_items
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY kind`

	rows, err := GetExecutor(ctx, s.db).QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ContentKind]int)
	for rows.Next() {
		var kind domain.ContentKind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

// FindCreatedBetween returns the highest-engagement items of the window, for
// the digest prompt.
func (s *ContentStore) FindCreatedBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_items
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY score DESC, id
		LIMIT $3`, contentColumns)

	var items []domain.ContentItem
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &items, query, from, to, limit)
	return items, err
}
