package domain

import "time"

// ContentKind distinguishes the three structurally identical content types.
type ContentKind string

const (
	KindPost    ContentKind = "post"
	KindArticle ContentKind = "article"
	KindListing ContentKind = "listing"
)

// Language is the detected primary language of a content item.
type Language string

const (
	LanguageKorean  Language = "ko"
	LanguageEnglish Language = "en"
	LanguageOther   Language = "other"
)

// Sentiment is the three-valued classification tag.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ContentItem is a persisted item. (source_id, external_id) is unique and is
// the idempotency key for ingestion. After insert only the engagement counters
// and the enrichment fields (translated_*, sentiment) ever change.
type ContentItem struct {
	ID              int64       `db:"id"`
	SourceID        int64       `db:"source_id"`
	Kind            ContentKind `db:"kind"`
	ExternalID      string      `db:"external_id"`
	Title           string      `db:"title"`
	Body            string      `db:"body"`
	TranslatedTitle *string     `db:"translated_title"`
	TranslatedBody  *string     `db:"translated_body"`
	Author          string      `db:"author"`
	Origin          string      `db:"origin"`
	Score           int         `db:"score"`
	CommentCount    int         `db:"comment_count"`
	Language        Language    `db:"language"`
	Sentiment       *Sentiment  `db:"sentiment"`
	PublishedAt     time.Time   `db:"published_at"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

// CountersDiffer reports whether the raw item carries engagement counters
// different from the stored ones.
func (c *ContentItem) CountersDiffer(raw RawItem) bool {
	return c.Score != raw.Score || c.CommentCount != raw.CommentCount
}

// RawItem is a normalized item as returned by a source client, before
// filtering and persistence. PublishedAt is nil when the source-native
// timestamp could not be parsed; the filter keeps such items (fail-open).
type RawItem struct {
	ExternalID   string
	Title        string
	Body         string
	Author       string
	Origin       string
	Score        int
	CommentCount int
	PublishedAt  *time.Time
	Removed      bool
	Locked       bool
	Pinned       bool
}
