// Package devpress implements the source client for the tag-search article
// API. One page is fetched per configured topic tag, so the same article can
// appear under multiple tags; the crawl orchestrator dedupes by external id.
package devpress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"content_harvester/internal/domain"
)

const SourceCode = "devpress"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Source struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		logger:     logger.With("source", SourceCode),
	}
}

func (s *Source) Code() string { return SourceCode }

func (s *Source) Kind() domain.ContentKind { return domain.KindArticle }

// FetchPage fetches one page per configured topic and concatenates the
// results.
func (s *Source) FetchPage(ctx context.Context, query domain.SourceConfig, page, pageSize int) ([]domain.RawItem, error) {
	var all []domain.RawItem
	for _, topic := range query.Topics {
		articles, err := s.fetchTag(ctx, topic, page, pageSize)
		if err != nil {
			return all, fmt.Errorf("fetch tag %q: %w", topic, err)
		}
		all = append(all, s.transform(topic, articles)...)

		s.logger.Debug("fetched tag page",
			"topic", topic,
			"page", page,
			"articles", len(articles),
		)
	}
	return all, nil
}

func (s *Source) fetchTag(ctx context.Context, tag string, page, pageSize int) ([]article, error) {
	u := s.baseURL + "/articles?" + url.Values{
		"tag":      {tag},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(pageSize)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ContentHarvester/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransientError{Op: "devpress fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ClassifyStatus("devpress fetch", resp.StatusCode, fmt.Errorf("unexpected status"))
	}

	var articles []article
	if err := json.NewDecoder(resp.Body).Decode(&articles); err != nil {
		return nil, &domain.PermanentError{Op: "devpress fetch", Err: fmt.Errorf("decode response: %w", err)}
	}
	return articles, nil
}

func (s *Source) transform(topic string, articles []article) []domain.RawItem {
	items := make([]domain.RawItem, 0, len(articles))
	for _, a := range articles {
		item := domain.RawItem{
			ExternalID:   strconv.FormatInt(a.ID, 10),
			Title:        a.Title,
			Body:         a.BodyMarkdown,
			Author:       a.User.Username,
			Origin:       topic,
			Score:        a.PositiveReactionsCount,
			CommentCount: a.CommentsCount,
			Removed:      a.Archived,
		}
		if item.Body == "" {
			item.Body = a.Description
		}

		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			utc := t.UTC()
			item.PublishedAt = &utc
		} else {
			s.logger.Warn("failed to parse published_at, keeping item",
				"external_id", a.ID,
				"published_at", a.PublishedAt,
			)
		}

		items = append(items, item)
	}
	return items
}
