package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"content_harvester/internal/config"
	"content_harvester/internal/domain"
	"content_harvester/internal/llm"
	"content_harvester/internal/retry"
)

// digestTopItems is how many highest-engagement items feed the summary prompt.
const digestTopItems = 10

// DigestService generates the idempotent daily digest. A date whose digest is
// already sent is skipped; a draft or failed digest for the date is
// regenerated and replaces the old row. The digest text comes from the model,
// with a deterministic fallback when the model is unavailable.
type DigestService struct {
	contents  ContentStore
	digests   DigestStore
	llmClient LLMClient
	notifier  Notifier
	txManager TransactionManager
	logger    *slog.Logger
	cfg       config.DigestConfig
	llmCfg    config.LLMConfig
	retryCfg  retry.Config
}

func NewDigestService(
	contents ContentStore,
	digests DigestStore,
	llmClient LLMClient,
	notifier Notifier,
	txManager TransactionManager,
	logger *slog.Logger,
	cfg config.DigestConfig,
	llmCfg config.LLMConfig,
) *DigestService {
	return &DigestService{
		contents:  contents,
		digests:   digests,
		llmClient: llmClient,
		notifier:  notifier,
		txManager: txManager,
		logger:    logger,
		cfg:       cfg,
		llmCfg:    llmCfg,
		retryCfg: retry.Config{
			MaxRetries:     llmCfg.Retry.MaxRetries,
			InitialBackoff: llmCfg.Retry.InitialBackoff,
			MaxBackoff:     llmCfg.Retry.MaxBackoff,
		},
	}
}

// Generate produces and, when configured, delivers the digest for the given
// calendar date. With skipIfExists an already-sent digest short-circuits the
// run; without it the digest is rebuilt and resent regardless. Safe to call
// repeatedly for the same date.
func (s *DigestService) Generate(ctx context.Context, date time.Time, skipIfExists bool) (*domain.DigestResult, error) {
	existing, err := s.digests.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("find digest: %w", err)
	}
	if skipIfExists && existing != nil && existing.Status == domain.DigestSent {
		s.logger.Info("digest already sent, skipping", "date", date.Format("2006-01-02"))
		return &domain.DigestResult{Digest: existing, Skipped: true}, nil
	}

	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	var stats domain.DigestStats
	var top []domain.ContentItem
	gatherErr := s.txManager.WithReadOnlyTransaction(ctx, func(txCtx context.Context) error {
		counts, err := s.contents.CountCreatedBetween(txCtx, from, to)
		if err != nil {
			return fmt.Errorf("count items: %w", err)
		}
		stats = domain.DigestStats{
			Posts:    counts[domain.KindPost],
			Articles: counts[domain.KindArticle],
			Listings: counts[domain.KindListing],
		}

		top, err = s.contents.FindCreatedBetween(txCtx, from, to, digestTopItems)
		if err != nil {
			return fmt.Errorf("find top items: %w", err)
		}
		return nil
	})

	text, status := s.compose(ctx, date, stats, top, gatherErr)

	digest := &domain.Digest{
		Date:         from,
		PostCount:    stats.Posts,
		ArticleCount: stats.Articles,
		ListingCount: stats.Listings,
		Content:      text,
		Status:       status,
	}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.digests.Save(txCtx, digest)
	})
	if err != nil {
		return nil, fmt.Errorf("save digest: %w", err)
	}

	result := &domain.DigestResult{
		Digest:  digest,
		Failed:  status == domain.DigestFailed,
		Stats:   stats,
		Message: text,
	}

	if status != domain.DigestDraft || !s.cfg.Notify || s.notifier == nil {
		return result, nil
	}

	if err := s.notifier.Send(ctx, from, text); err != nil {
		// Left as draft: the next scheduled run for this date resends.
		s.logger.Warn("digest notification failed",
			"date", from.Format("2006-01-02"),
			"error", err,
		)
		return result, nil
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		saved, err := s.digests.FindByID(txCtx, digest.ID)
		if err != nil {
			return err
		}
		return s.digests.MarkSent(txCtx, saved.ID, time.Now().UTC())
	})
	if err != nil {
		return result, fmt.Errorf("mark digest sent: %w", err)
	}

	digest.Status = domain.DigestSent
	result.Notified = true

	s.logger.Info("digest sent",
		"date", from.Format("2006-01-02"),
		"total_items", stats.Total(),
	)

	return result, nil
}

// compose returns the digest text and the status it should be stored with.
// Model failures and gather failures both degrade to the deterministic
// fallback text with status failed, so the row still records the day.
func (s *DigestService) compose(ctx context.Context, date time.Time, stats domain.DigestStats, top []domain.ContentItem, gatherErr error) (string, domain.DigestStatus) {
	if gatherErr != nil {
		s.logger.Error("digest data gathering failed", "error", gatherErr)
		return fallbackText(date, stats), domain.DigestFailed
	}

	text, err := retry.Do(ctx, s.retryCfg, domain.IsTransient, func(ctx context.Context) (string, error) {
		return s.llmClient.Complete(ctx, llm.DigestSystemPrompt, digestPrompt(date, stats, top), s.llmCfg.Temperature, s.llmCfg.MaxTokens)
	})
	if err != nil {
		s.logger.Warn("digest model call failed, using fallback text", "error", err)
		return fallbackText(date, stats), domain.DigestFailed
	}

	return text, domain.DigestDraft
}

func digestPrompt(date time.Time, stats domain.DigestStats, top []domain.ContentItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Date: %s\n", date.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Counts: %d posts, %d articles, %d job listings\n", stats.Posts, stats.Articles, stats.Listings)

	if len(top) > 0 {
		sb.WriteString("Top items by engagement:\n")
	}
	for _, item := range top {
		title := item.Title
		if item.TranslatedTitle != nil && *item.TranslatedTitle != "" {
			title = *item.TranslatedTitle
		}
		fmt.Fprintf(&sb, "- [%s] %s (score %d, %d comments)\n", item.Kind, title, item.Score, item.CommentCount)
	}

	return sb.String()
}

func fallbackText(date time.Time, stats domain.DigestStats) string {
	return fmt.Sprintf("Daily digest for %s: %d posts, %d articles, %d job listings.",
		date.Format("2006-01-02"), stats.Posts, stats.Articles, stats.Listings)
}
