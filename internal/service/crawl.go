package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"content_harvester/internal/config"
	"content_harvester/internal/domain"
	"content_harvester/internal/filter"
)

// maxPagesPerRun bounds a single crawl so a misbehaving source cannot keep a
// run alive indefinitely.
const maxPagesPerRun = 10

// CrawlService walks enabled sources, fetches and filters their pages and
// hands the surviving items to the ingestor. A per-source guard rejects
// overlapping runs for the same source within this process.
type CrawlService struct {
	clients   []SourceClient
	byCode    map[string]SourceClient
	sources   SourceStore
	histories HistoryStore
	ingestor  Ingestor
	logger    *slog.Logger
	cfg       config.CrawlConfig
	filterCfg filter.Config

	running sync.Map
}

func NewCrawlService(
	clients []SourceClient,
	sources SourceStore,
	histories HistoryStore,
	ingestor Ingestor,
	logger *slog.Logger,
	cfg config.CrawlConfig,
	filterCfg filter.Config,
) *CrawlService {
	byCode := make(map[string]SourceClient, len(clients))
	for _, c := range clients {
		byCode[c.Code()] = c
	}
	return &CrawlService{
		clients:   clients,
		byCode:    byCode,
		sources:   sources,
		histories: histories,
		ingestor:  ingestor,
		logger:    logger,
		cfg:       cfg,
		filterCfg: filterCfg,
	}
}

// RunAll crawls every enabled source that has a registered client. Per-source
// failures are recorded in crawl history and do not stop the sweep.
func (s *CrawlService) RunAll(ctx context.Context) {
	for _, client := range s.clients {
		sources, err := s.sources.ListEnabled(ctx, client.Kind())
		if err != nil {
			s.logger.Error("list enabled sources failed",
				"kind", client.Kind(),
				"error", err,
			)
			continue
		}

		for _, source := range sources {
			if source.Code != client.Code() {
				continue
			}
			if _, err := s.RunSource(ctx, source); err != nil {
				s.logger.Warn("crawl skipped",
					"source", source.Code,
					"error", err,
				)
			}
		}
	}
}

// RunSource crawls one source. Fetch and ingest failures are terminal history
// states, not errors; the only errors returned are an unknown source code and
// an already-running crawl for the same source.
func (s *CrawlService) RunSource(ctx context.Context, source domain.Source) (*domain.CrawlHistory, error) {
	client, ok := s.byCode[source.Code]
	if !ok {
		return nil, fmt.Errorf("no client registered for source %q", source.Code)
	}

	if _, loaded := s.running.LoadOrStore(source.Code, struct{}{}); loaded {
		return nil, domain.ErrCrawlInProgress
	}
	defer s.running.Delete(source.Code)

	startedAt := time.Now().UTC()
	hist := &domain.CrawlHistory{
		SourceID:  source.ID,
		Status:    domain.CrawlRunning,
		StartedAt: startedAt,
	}
	if err := s.histories.Create(ctx, hist); err != nil {
		return nil, fmt.Errorf("create crawl history: %w", err)
	}

	s.logger.Info("starting crawl", "source", source.Code, "kind", source.Kind)

	pageSize := source.Config.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}

	var fetched []domain.RawItem
	var fetchErr error
	for page := 1; page <= maxPagesPerRun; page++ {
		items, err := client.FetchPage(ctx, source.Config, page, pageSize)
		if err != nil {
			fetchErr = err
			break
		}
		fetched = append(fetched, items...)
		if len(items) < pageSize {
			break
		}
	}

	if fetchErr != nil && len(fetched) == 0 {
		return s.finish(ctx, hist, domain.CrawlFailed, fetchErr), nil
	}

	cutoff := startedAt.Add(-s.cfg.FreshnessWindow)
	kept := make([]domain.RawItem, 0, len(fetched))
	for _, item := range fetched {
		if filter.Keep(item, cutoff, s.filterCfg) {
			kept = append(kept, item)
		}
	}
	hist.Found = len(kept)

	saved, updated, err := s.ingestor.Upsert(ctx, source, kept)
	if err != nil {
		return s.finish(ctx, hist, domain.CrawlFailed, err), nil
	}
	hist.Saved = saved
	hist.Updated = updated

	// A fetch error after at least one good page still ingests what arrived.
	status := domain.CrawlSuccess
	if fetchErr != nil {
		status = domain.CrawlPartial
	}

	result := s.finish(ctx, hist, status, fetchErr)

	s.logger.Info("crawl completed",
		"source", source.Code,
		"status", result.Status,
		"found", result.Found,
		"saved", result.Saved,
		"updated", result.Updated,
		"duration", result.Duration(),
	)

	return result, nil
}

func (s *CrawlService) finish(ctx context.Context, hist *domain.CrawlHistory, status domain.CrawlStatus, cause error) *domain.CrawlHistory {
	hist.Status = status
	if cause != nil {
		detail := cause.Error()
		hist.ErrorDetail = &detail
	}
	finishedAt := time.Now().UTC()
	hist.FinishedAt = &finishedAt

	if err := s.histories.Finish(ctx, hist); err != nil {
		s.logger.Error("finish crawl history failed",
			"history_id", hist.ID,
			"error", err,
		)
	}
	return hist
}
