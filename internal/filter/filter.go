// Package filter implements the relevance predicate applied to normalized
// items before persistence. It is pure: no I/O, deterministic for a given
// item, cutoff and configuration.
package filter

import (
	"strings"
	"time"

	"content_harvester/internal/domain"
)

// Config is the keyword and allow-list configuration shared by all sources.
type Config struct {
	AllowOrigins    []string
	KeywordsEnglish []string
	KeywordsKorean  []string
}

// Keep decides whether a normalized item survives filtering. Rules apply in
// order: moderation flags drop the item; an allow-listed origin keeps it
// unconditionally; otherwise it must be fresher than cutoff and match at
// least one configured keyword. An item whose published timestamp could not
// be parsed (nil) is kept, fail-open.
func Keep(item domain.RawItem, cutoff time.Time, cfg Config) bool {
	if item.Removed || item.Locked || item.Pinned {
		return false
	}

	if originAllowed(item.Origin, cfg.AllowOrigins) {
		return true
	}

	if item.PublishedAt == nil {
		return true
	}

	if item.PublishedAt.Before(cutoff) {
		return false
	}

	return matchesKeyword(item, cfg)
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(origin, a) {
			return true
		}
	}
	return false
}

func matchesKeyword(item domain.RawItem, cfg Config) bool {
	text := strings.ToLower(item.Title + " " + item.Body)
	for _, kw := range cfg.KeywordsEnglish {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	for _, kw := range cfg.KeywordsKorean {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
