package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"content_harvester/internal/domain"
)

func ts(t time.Time) *time.Time { return &t }

func TestKeep(t *testing.T) {
	now := time.Now()
	cutoff := now.Add(-24 * time.Hour)

	cfg := Config{
		AllowOrigins:    []string{"golang-jobs"},
		KeywordsEnglish: []string{"job", "career"},
		KeywordsKorean:  []string{"채용", "이직"},
	}

	tests := []struct {
		name string
		item domain.RawItem
		want bool
	}{
		{
			name: "fresh item with english keyword",
			item: domain.RawItem{Title: "New career opportunity", PublishedAt: ts(now.Add(-2 * time.Hour))},
			want: true,
		},
		{
			name: "fresh item with korean keyword in body",
			item: domain.RawItem{Title: "공지", Body: "백엔드 개발자 채용 중입니다", PublishedAt: ts(now.Add(-1 * time.Hour))},
			want: true,
		},
		{
			name: "keyword match is case insensitive",
			item: domain.RawItem{Title: "JOB posting", PublishedAt: ts(now.Add(-1 * time.Hour))},
			want: true,
		},
		{
			name: "stale item with keyword",
			item: domain.RawItem{Title: "old job thread", PublishedAt: ts(now.Add(-48 * time.Hour))},
			want: false,
		},
		{
			name: "fresh item without keyword",
			item: domain.RawItem{Title: "weekend open thread", PublishedAt: ts(now.Add(-1 * time.Hour))},
			want: false,
		},
		{
			name: "allow-listed origin ignores age and keywords",
			item: domain.RawItem{Title: "anything", Origin: "golang-jobs", PublishedAt: ts(now.Add(-240 * time.Hour))},
			want: true,
		},
		{
			name: "allow-list match is case insensitive",
			item: domain.RawItem{Title: "anything", Origin: "Golang-Jobs", PublishedAt: ts(now.Add(-240 * time.Hour))},
			want: true,
		},
		{
			name: "unparsable timestamp kept fail-open",
			item: domain.RawItem{Title: "no keyword here either", PublishedAt: nil},
			want: true,
		},
		{
			name: "removed item dropped before allow-list",
			item: domain.RawItem{Title: "career post", Origin: "golang-jobs", Removed: true, PublishedAt: ts(now)},
			want: false,
		},
		{
			name: "locked item dropped",
			item: domain.RawItem{Title: "career post", Locked: true, PublishedAt: ts(now)},
			want: false,
		},
		{
			name: "pinned item dropped",
			item: domain.RawItem{Title: "career post", Pinned: true, PublishedAt: ts(now)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keep(tt.item, cutoff, cfg))
		})
	}
}
