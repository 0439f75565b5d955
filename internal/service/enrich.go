package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"content_harvester/internal/config"
	"content_harvester/internal/domain"
	"content_harvester/internal/llm"
	"content_harvester/internal/retry"
)

// sentimentInputLimit caps the text sent for classification. The leading part
// of an item carries enough signal.
const sentimentInputLimit = 2000

// enrichmentKind is one enrichment pass: a pending query and a mutation that
// fills the enrichment fields of a single detached item.
type enrichmentKind struct {
	name    string
	pending func(ctx context.Context, limit int) ([]domain.ContentItem, error)
	enrich  func(ctx context.Context, item *domain.ContentItem) error
}

// EnrichmentService runs the translation and sentiment passes. Each pass is
// two-phase: pending items are read in a read-only transaction and detached,
// the model is called outside any transaction, and the results are merged back
// in a short write transaction. No transaction is ever held across a model
// call.
type EnrichmentService struct {
	contents  ContentStore
	llmClient LLMClient
	txManager TransactionManager
	logger    *slog.Logger
	cfg       config.EnrichmentConfig
	llmCfg    config.LLMConfig
	retryCfg  retry.Config
}

func NewEnrichmentService(
	contents ContentStore,
	llmClient LLMClient,
	txManager TransactionManager,
	logger *slog.Logger,
	cfg config.EnrichmentConfig,
	llmCfg config.LLMConfig,
) *EnrichmentService {
	return &EnrichmentService{
		contents:  contents,
		llmClient: llmClient,
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

// RunTranslation translates one batch of pending Korean items. Returns the
// number of items merged back and the number that failed.
func (s *EnrichmentService) RunTranslation(ctx context.Context) (int, int, error) {
	return s.run(ctx, enrichmentKind{
		name:    "translation",
		pending: s.contents.FindNeedingTranslation,
		enrich:  s.translate,
	})
}

// RunSentiment classifies one batch of items without a sentiment tag.
func (s *EnrichmentService) RunSentiment(ctx context.Context) (int, int, error) {
	return s.run(ctx, enrichmentKind{
		name:    "sentiment",
		pending: s.contents.FindNeedingSentiment,
		enrich:  s.classify,
	})
}

func (s *EnrichmentService) run(ctx context.Context, kind enrichmentKind) (int, int, error) {
	var pending []domain.ContentItem
	err := s.txManager.WithReadOnlyTransaction(ctx, func(txCtx context.Context) error {
		var err error
		pending, err = kind.pending(txCtx, s.cfg.BatchSize)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("fetch pending %s: %w", kind.name, err)
	}

	if len(pending) == 0 {
		return 0, 0, nil
	}

	s.logger.Info("starting enrichment pass", "kind", kind.name, "pending", len(pending))

	var enriched []domain.ContentItem
	var failed int
	for i := range pending {
		if err := kind.enrich(ctx, &pending[i]); err != nil {
			failed++
			s.logger.Warn("enrichment failed, leaving item pending",
				"kind", kind.name,
				"item_id", pending[i].ID,
				"error", err,
			)
			continue
		}
		enriched = append(enriched, pending[i])
	}

	if len(enriched) > 0 {
		err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			return s.contents.MergeSave(txCtx, enriched)
		})
		if err != nil {
			return 0, failed, fmt.Errorf("merge %s results: %w", kind.name, err)
		}
	}

	s.logger.Info("enrichment pass completed",
		"kind", kind.name,
		"processed", len(enriched),
		"failed", failed,
	)

	return len(enriched), failed, nil
}

func (s *EnrichmentService) translate(ctx context.Context, item *domain.ContentItem) error {
	title, err := s.complete(ctx, llm.TranslationSystemPrompt, item.Title)
	if err != nil {
		return fmt.Errorf("translate title: %w", err)
	}
	item.TranslatedTitle = &title

	if item.Body != "" {
		body, err := s.complete(ctx, llm.TranslationSystemPrompt, item.Body)
		if err != nil {
			return fmt.Errorf("translate body: %w", err)
		}
		item.TranslatedBody = &body
	}

	return nil
}

func (s *EnrichmentService) classify(ctx context.Context, item *domain.ContentItem) error {
	// Classify the translated text when it exists, the original otherwise.
	title, body := item.Title, item.Body
	if item.TranslatedTitle != nil && *item.TranslatedTitle != "" {
		title = *item.TranslatedTitle
	}
	if item.TranslatedBody != nil && *item.TranslatedBody != "" {
		body = *item.TranslatedBody
	}

	text := strings.TrimSpace(title + "\n" + body)
	if text == "" {
		neutral := domain.SentimentNeutral
		item.Sentiment = &neutral
		return nil
	}
	if len(text) > sentimentInputLimit {
		text = text[:sentimentInputLimit]
	}

	answer, err := s.complete(ctx, llm.SentimentSystemPrompt, text)
	if err != nil {
		return fmt.Errorf("classify sentiment: %w", err)
	}

	sentiment, err := parseSentiment(answer)
	if err != nil {
		return err
	}
	item.Sentiment = &sentiment

	return nil
}

func (s *EnrichmentService) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return retry.Do(ctx, s.retryCfg, domain.IsTransient, func(ctx context.Context) (string, error) {
		return s.llmClient.Complete(ctx, systemPrompt, userPrompt, s.llmCfg.Temperature, s.llmCfg.MaxTokens)
	})
}

func parseSentiment(answer string) (domain.Sentiment, error) {
	switch domain.Sentiment(strings.ToLower(strings.Trim(strings.TrimSpace(answer), "."))) {
	case domain.SentimentPositive:
		return domain.SentimentPositive, nil
	case domain.SentimentNeutral:
		return domain.SentimentNeutral, nil
	case domain.SentimentNegative:
		return domain.SentimentNegative, nil
	}
	return "", fmt.Errorf("unexpected sentiment answer %q", answer)
}
