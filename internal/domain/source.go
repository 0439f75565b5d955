package domain

import "time"

// Source is a configured external content source. Only the crawl orchestrator
// mutates it (last_crawled_at); admin operations toggle enabled.
type Source struct {
	ID            int64
	Code          string // selects the registered source client, e.g. "board"
	Name          string
	Kind          ContentKind
	Config        SourceConfig
	Enabled       bool
	CrawlInterval time.Duration
	LastCrawledAt *time.Time
	CreatedAt     time.Time
}

// SourceConfig holds source-specific crawl parameters, stored as JSON on the
// sources row. Zero values fall back to crawl defaults.
type SourceConfig struct {
	Community string   `json:"community,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	PageSize  int      `json:"page_size,omitempty"`
}

// CrawlStatus is the lifecycle of a crawl run. A history row is created in
// StatusRunning and transitions exactly once to a terminal status.
type CrawlStatus string

const (
	CrawlRunning CrawlStatus = "running"
	CrawlSuccess CrawlStatus = "success"
	CrawlFailed  CrawlStatus = "failed"
	CrawlPartial CrawlStatus = "partial"
)

// CrawlHistory records one crawl run for one source.
type CrawlHistory struct {
	ID          int64       `db:"id"`
	SourceID    int64       `db:"source_id"`
	Status      CrawlStatus `db:"status"`
	Found       int         `db:"found"`
	Saved       int         `db:"saved"`
	Updated     int         `db:"updated"`
	ErrorDetail *string     `db:"error_detail"`
	StartedAt   time.Time   `db:"started_at"`
	FinishedAt  *time.Time  `db:"finished_at"`
}

// Duration is the run time, zero while the run is still in progress.
func (h *CrawlHistory) Duration() time.Duration {
	if h.FinishedAt == nil {
		return 0
	}
	return h.FinishedAt.Sub(h.StartedAt)
}
