package domain

import "time"

// DigestStatus is the digest lifecycle. Only StatusSent counts as "already
// done" for the skip-if-exists check; draft and failed digests are retried on
// the next scheduled run for the same date.
type DigestStatus string

const (
	DigestDraft  DigestStatus = "draft"
	DigestSent   DigestStatus = "sent"
	DigestFailed DigestStatus = "failed"
)

// Digest is the daily summary row. digest_date is unique and anchors
// idempotent regeneration.
type Digest struct {
	ID           int64        `db:"id"`
	Date         time.Time    `db:"digest_date"`
	PostCount    int          `db:"post_count"`
	ArticleCount int          `db:"article_count"`
	ListingCount int          `db:"listing_count"`
	Content      string       `db:"content"`
	Status       DigestStatus `db:"status"`
	SentAt       *time.Time   `db:"sent_at"`
	CreatedAt    time.Time    `db:"created_at"`
}

// DigestStats are the per-kind counts gathered for one digest window.
type DigestStats struct {
	Posts    int
	Articles int
	Listings int
}

// Total is the number of items across all kinds.
func (s DigestStats) Total() int {
	return s.Posts + s.Articles + s.Listings
}

// DigestResult is the outcome of one Generate invocation.
type DigestResult struct {
	Digest   *Digest
	Notified bool
	Skipped  bool
	Failed   bool
	Stats    DigestStats
	Message  string
}
