package devpress

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_harvester/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFetchPage_FetchesEachTopic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := r.URL.Query().Get("tag")
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))
		w.Header().Set("Content-Type", "application/json")
		switch tag {
		case "golang":
			fmt.Fprint(w, `[{"id":1,"title":"Go jobs report","body_markdown":"state of the market","published_at":"2026-08-29T10:00:00Z","positive_reactions_count":42,"comments_count":7,"user":{"username":"gopher"}}]`)
		case "career":
			fmt.Fprint(w, `[{"id":1,"title":"Go jobs report","body_markdown":"state of the market","published_at":"2026-08-29T10:00:00Z","positive_reactions_count":42,"comments_count":7,"user":{"username":"gopher"}},
				{"id":2,"title":"Interview prep","description":"short desc","published_at":"not-a-date","positive_reactions_count":5,"comments_count":1,"user":{"username":"dev"}}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, testLogger())

	items, err := src.FetchPage(context.Background(), domain.SourceConfig{Topics: []string{"golang", "career"}}, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Same article under two tags, deduped later by the orchestrator.
	assert.Equal(t, "1", items[0].ExternalID)
	assert.Equal(t, "golang", items[0].Origin)
	assert.Equal(t, "1", items[1].ExternalID)
	assert.Equal(t, "career", items[1].Origin)

	// Unparsable date stays nil, description used when body is missing.
	assert.Equal(t, "2", items[2].ExternalID)
	assert.Nil(t, items[2].PublishedAt)
	assert.Equal(t, "short desc", items[2].Body)

	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, 42, items[0].Score)
	assert.Equal(t, 7, items[0].CommentCount)
}

func TestFetchPage_RateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, testLogger())

	_, err := src.FetchPage(context.Background(), domain.SourceConfig{Topics: []string{"golang"}}, 1, 10)
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestFetchPage_NotFoundIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, testLogger())

	_, err := src.FetchPage(context.Background(), domain.SourceConfig{Topics: []string{"golang"}}, 1, 10)
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
}
