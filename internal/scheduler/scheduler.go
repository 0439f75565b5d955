package scheduler

import (
	"context"
	"log/slog"
	"time"

	"content_harvester/internal/config"
	"content_harvester/internal/domain"
)

// Crawler runs one full crawl sweep over all enabled sources.
type Crawler interface {
	RunAll(ctx context.Context)
}

// Enricher runs one batch of each enrichment pass.
type Enricher interface {
	RunTranslation(ctx context.Context) (int, int, error)
	RunSentiment(ctx context.Context) (int, int, error)
}

// DigestGenerator produces the digest for a calendar date.
type DigestGenerator interface {
	Generate(ctx context.Context, date time.Time, skipIfExists bool) (*domain.DigestResult, error)
}

const (
	crawlRunTimeout  = 10 * time.Minute
	enrichRunTimeout = 5 * time.Minute
	digestRunTimeout = 5 * time.Minute

	// digestCheckInterval is how often the digest loop wakes to compare the
	// current hour against the configured one. Generation itself is
	// idempotent, so waking inside the same hour twice is harmless.
	digestCheckInterval = 10 * time.Minute
)

// Scheduler drives the three periodic loops: crawling, enrichment and the
// daily digest check. Start blocks until the context is cancelled.
type Scheduler struct {
	crawler   Crawler
	enricher  Enricher
	digester  DigestGenerator
	crawlCfg  config.CrawlConfig
	enrichCfg config.EnrichmentConfig
	digestCfg config.DigestConfig
	logger    *slog.Logger
}

func New(
	crawler Crawler,
	enricher Enricher,
	digester DigestGenerator,
	crawlCfg config.CrawlConfig,
	enrichCfg config.EnrichmentConfig,
	digestCfg config.DigestConfig,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		crawler:   crawler,
		enricher:  enricher,
		digester:  digester,
		crawlCfg:  crawlCfg,
		enrichCfg: enrichCfg,
		digestCfg: digestCfg,
		logger:    logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"crawl_interval", s.crawlCfg.Interval,
		"enrichment_interval", s.enrichCfg.Interval,
		"digest_hour", s.digestCfg.Hour,
	)

	go s.crawlLoop(ctx)
	go s.enrichLoop(ctx)
	go s.digestLoop(ctx)

	<-ctx.Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) crawlLoop(ctx context.Context) {
	s.runCrawl(ctx)

	ticker := time.NewTicker(s.crawlCfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCrawl(ctx)
		}
	}
}

func (s *Scheduler) runCrawl(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, crawlRunTimeout)
	defer cancel()

	s.crawler.RunAll(runCtx)
}

func (s *Scheduler) enrichLoop(ctx context.Context) {
	ticker := time.NewTicker(s.enrichCfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runEnrichment(ctx)
		}
	}
}

func (s *Scheduler) runEnrichment(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, enrichRunTimeout)
	defer cancel()

	if _, _, err := s.enricher.RunTranslation(runCtx); err != nil {
		s.logger.Error("translation pass failed", "error", err)
	}
	if _, _, err := s.enricher.RunSentiment(runCtx); err != nil {
		s.logger.Error("sentiment pass failed", "error", err)
	}
}

func (s *Scheduler) digestLoop(ctx context.Context) {
	ticker := time.NewTicker(digestCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if now.Hour() != s.digestCfg.Hour {
				continue
			}
			s.runDigest(ctx, now)
		}
	}
}

func (s *Scheduler) runDigest(ctx context.Context, date time.Time) {
	runCtx, cancel := context.WithTimeout(ctx, digestRunTimeout)
	defer cancel()

	result, err := s.digester.Generate(runCtx, date, true)
	if err != nil {
		s.logger.Error("digest generation failed", "error", err)
		return
	}
	if result.Skipped {
		s.logger.Debug("digest already sent for date", "date", date.Format("2006-01-02"))
	}
}
