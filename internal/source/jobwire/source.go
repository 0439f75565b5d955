// Package jobwire implements the source client for the job-listing RSS feed.
package jobwire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"content_harvester/internal/domain"
)

const SourceCode = "jobwire"

type Config struct {
	FeedURL string
	Timeout time.Duration
}

type Source struct {
	parser  *gofeed.Parser
	feedURL string
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.Timeout}
	parser.UserAgent = "ContentHarvester/1.0"

	return &Source{
		parser:  parser,
		feedURL: cfg.FeedURL,
		logger:  logger.With("source", SourceCode),
	}
}

func (s *Source) Code() string { return SourceCode }

func (s *Source) Kind() domain.ContentKind { return domain.KindListing }

// FetchPage parses the feed and returns the requested page slice. RSS
// delivers one document, so paging beyond the feed length yields an empty
// page.
func (s *Source) FetchPage(ctx context.Context, _ domain.SourceConfig, page, pageSize int) ([]domain.RawItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		if he, ok := err.(gofeed.HTTPError); ok {
			return nil, domain.ClassifyStatus("jobwire fetch", he.StatusCode, fmt.Errorf("%s", he.Status))
		}
		return nil, &domain.TransientError{Op: "jobwire fetch", Err: err}
	}

	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(feed.Items) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(feed.Items) {
		end = len(feed.Items)
	}

	return s.transform(feed.Items[start:end]), nil
}

func (s *Source) transform(entries []*gofeed.Item) []domain.RawItem {
	items := make([]domain.RawItem, 0, len(entries))
	for _, e := range entries {
		item := domain.RawItem{
			ExternalID: e.GUID,
			Title:      e.Title,
			Body:       e.Description,
		}
		if item.ExternalID == "" {
			item.ExternalID = e.Link
		}
		if len(e.Authors) > 0 {
			item.Author = e.Authors[0].Name
		}
		if len(e.Categories) > 0 {
			item.Origin = e.Categories[0]
		}

		// gofeed leaves PublishedParsed nil on unparsable dates, which
		// maps straight onto the fail-open rule.
		if e.PublishedParsed != nil {
			utc := e.PublishedParsed.UTC()
			item.PublishedAt = &utc
		} else {
			s.logger.Warn("feed entry has no parsable date, keeping item",
				"guid", e.GUID,
				"raw_date", e.Published,
			)
		}

		items = append(items, item)
	}
	return items
}
