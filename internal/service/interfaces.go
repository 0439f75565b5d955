package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"content_harvester/internal/domain"
)

// SourceClient fetches and normalizes one page of items from an external
// source. Implementations live under internal/source.
type SourceClient interface {
	Code() string
	Kind() domain.ContentKind
	FetchPage(ctx context.Context, query domain.SourceConfig, page, pageSize int) ([]domain.RawItem, error)
}

type SourceStore interface {
	ListEnabled(ctx context.Context, kind domain.ContentKind) ([]domain.Source, error)
	AdvanceLastCrawled(ctx context.Context, sourceID int64, t time.Time) error
}

type ContentStore interface {
	FindExistingByExternalIDs(ctx context.Context, sourceID int64, ids []string) (map[string]domain.ContentItem, error)
	BatchInsert(ctx context.Context, items []domain.ContentItem) error
	BatchUpdate(ctx context.Context, items []domain.ContentItem) error
	MergeSave(ctx context.Context, items []domain.ContentItem) error
	FindNeedingTranslation(ctx context.Context, limit int) ([]domain.ContentItem, error)
	FindNeedingSentiment(ctx context.Context, limit int) ([]domain.ContentItem, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (map[domain.ContentKind]int, error)
	FindCreatedBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.ContentItem, error)
}

type HistoryStore interface {
	Create(ctx context.Context, hist *domain.CrawlHistory) error
	Finish(ctx context.Context, hist *domain.CrawlHistory) error
}

type DigestStore interface {
	FindByDate(ctx context.Context, date time.Time) (*domain.Digest, error)
	FindByID(ctx context.Context, id int64) (*domain.Digest, error)
	Save(ctx context.Context, d *domain.Digest) error
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}

// Notifier delivers a digest downstream. A nil error means delivered.
type Notifier interface {
	Send(ctx context.Context, date time.Time, text string) error
}

// Ingestor persists one filtered page batch for one source. Returns the
// number of inserted and counter-updated rows.
type Ingestor interface {
	Upsert(ctx context.Context, source domain.Source, raw []domain.RawItem) (saved, updated int, err error)
}
