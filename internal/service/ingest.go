package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"content_harvester/internal/domain"
	"content_harvester/internal/language"
)

// IngestService persists one filtered batch for one source. The existence
// lookup, the inserts, the counter updates and the last-crawled advance all
// run in a single transaction, so a crashed run leaves either the whole batch
// or nothing.
type IngestService struct {
	contents  ContentStore
	sources   SourceStore
	txManager TransactionManager
	logger    *slog.Logger
}

func NewIngestService(
	contents ContentStore,
	sources SourceStore,
	txManager TransactionManager,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		contents:  contents,
		sources:   sources,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *IngestService) Upsert(ctx context.Context, source domain.Source, raw []domain.RawItem) (int, int, error) {
	var saved, updated int

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		now := time.Now().UTC()

		if len(raw) == 0 {
			return s.sources.AdvanceLastCrawled(txCtx, source.ID, now)
		}

		deduped := dedupe(raw)
		if dropped := len(raw) - len(deduped); dropped > 0 {
			s.logger.Debug("dropped duplicate external ids within batch",
				"source", source.Code,
				"dropped", dropped,
			)
		}

		ids := make([]string, len(deduped))
		for i, item := range deduped {
			ids[i] = item.ExternalID
		}

		existing, err := s.contents.FindExistingByExternalIDs(txCtx, source.ID, ids)
		if err != nil {
			return fmt.Errorf("find existing: %w", err)
		}

		var inserts, updates []domain.ContentItem
		for _, item := range deduped {
			current, exists := existing[item.ExternalID]
			if !exists {
				inserts = append(inserts, newContentItem(source, item, now))
				continue
			}
			if current.CountersDiffer(item) {
				current.Score = item.Score
				current.CommentCount = item.CommentCount
				updates = append(updates, current)
			}
		}

		if err := s.contents.BatchInsert(txCtx, inserts); err != nil {
			return fmt.Errorf("batch insert: %w", err)
		}
		if err := s.contents.BatchUpdate(txCtx, updates); err != nil {
			return fmt.Errorf("batch update: %w", err)
		}
		if err := s.sources.AdvanceLastCrawled(txCtx, source.ID, now); err != nil {
			return fmt.Errorf("advance last crawled: %w", err)
		}

		saved = len(inserts)
		updated = len(updates)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return saved, updated, nil
}

// dedupe collapses repeated external ids within one batch, keeping the last
// occurrence. Sources can return the same item on adjacent pages or under
// multiple topics.
func dedupe(raw []domain.RawItem) []domain.RawItem {
	index := make(map[string]int, len(raw))
	result := make([]domain.RawItem, 0, len(raw))
	for _, item := range raw {
		if i, seen := index[item.ExternalID]; seen {
			result[i] = item
			continue
		}
		index[item.ExternalID] = len(result)
		result = append(result, item)
	}
	return result
}

func newContentItem(source domain.Source, item domain.RawItem, now time.Time) domain.ContentItem {
	publishedAt := now
	if item.PublishedAt != nil {
		publishedAt = *item.PublishedAt
	}

	return domain.ContentItem{
		SourceID:     source.ID,
		Kind:         source.Kind,
		ExternalID:   item.ExternalID,
		Title:        item.Title,
		Body:         item.Body,
		Author:       item.Author,
		Origin:       item.Origin,
		Score:        item.Score,
		CommentCount: item.CommentCount,
		Language:     language.Detect(item.Title + " " + item.Body),
		PublishedAt:  publishedAt,
	}
}
