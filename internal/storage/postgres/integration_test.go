//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"content_harvester/internal/domain"
	"content_harvester/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_schema.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM crawl_histories")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_items")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM digests")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM sources")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertSource(code string, kind domain.ContentKind, config string, enabled bool) int64 {
	var id int64
	err := s.db.GetContext(s.ctx, &id, `
		INSERT INTO sources (code, name, kind, config, enabled)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		RETURNING id
	`, code, code, kind, config, enabled)
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) TestContentStore_BatchInsert_And_FindExisting() {
	store := NewContentStore(s.db)
	sourceID := s.insertSource("board", domain.KindPost, "{}", true)
	now := time.Now().Truncate(time.Microsecond)

	items := []domain.ContentItem{
		{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "a1", Title: "First", Score: 10, CommentCount: 2, Language: domain.LanguageEnglish, PublishedAt: now},
		{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "a2", Title: "Second", Language: domain.LanguageKorean, PublishedAt: now},
	}
	s.NoError(store.BatchInsert(s.ctx, items))

	existing, err := store.FindExistingByExternalIDs(s.ctx, sourceID, []string{"a1", "a2", "missing"})
	s.NoError(err)
	s.Len(existing, 2)
	s.Contains(existing, "a1")
	s.Contains(existing, "a2")
	s.Equal(10, existing["a1"].Score)
	s.WithinDuration(now, existing["a1"].PublishedAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestContentStore_FindExisting_ScopedToSource() {
	store := NewContentStore(s.db)
	source1 := s.insertSource("board", domain.KindPost, "{}", true)
	source2 := s.insertSource("devpress", domain.KindArticle, "{}", true)

	s.NoError(store.BatchInsert(s.ctx, []domain.ContentItem{
		{SourceID: source1, Kind: domain.KindPost, ExternalID: "shared", Title: "One"},
		{SourceID: source2, Kind: domain.KindArticle, ExternalID: "shared", Title: "Two"},
	}))

	existing, err := store.FindExistingByExternalIDs(s.ctx, source1, []string{"shared"})
	s.NoError(err)
	s.Len(existing, 1)
	s.Equal("One", existing["shared"].Title)
}

func (s *PostgresIntegrationSuite) TestContentStore_BatchUpdate_CountersOnly() {
	store := NewContentStore(s.db)
	sourceID := s.insertSource("board", domain.KindPost, "{}", true)

	s.NoError(store.BatchInsert(s.ctx, []domain.ContentItem{
		{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "a1", Title: "Original", Score: 1, CommentCount: 1},
	}))

	existing, err := store.FindExistingByExternalIDs(s.ctx, sourceID, []string{"a1"})
	s.Require().NoError(err)
	item := existing["a1"]
	item.Title = "Changed In Memory"
	item.Score = 42
	item.CommentCount = 7

	s.NoError(store.BatchUpdate(s.ctx, []domain.ContentItem{item}))

	refreshed, err := store.FindExistingByExternalIDs(s.ctx, sourceID, []string{"a1"})
	s.Require().NoError(err)
	s.Equal(42, refreshed["a1"].Score)
	s.Equal(7, refreshed["a1"].CommentCount)
	s.Equal("Original", refreshed["a1"].Title)
}

func (s *PostgresIntegrationSuite) TestContentStore_MergeSave_EnrichmentFields() {
	store := NewContentStore(s.db)
	sourceID := s.insertSource("board", domain.KindPost, "{}", true)

	s.NoError(store.BatchInsert(s.ctx, []domain.ContentItem{
		{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "a1", Title: "제목", Language: domain.LanguageKorean},
	}))

	existing, err := store.FindExistingByExternalIDs(s.ctx, sourceID, []string{"a1"})
	s.Require().NoError(err)
	item := existing["a1"]
	item.TranslatedTitle = utils.Ptr("Title")
	item.TranslatedBody = utils.Ptr("Body")
	sentiment := domain.SentimentPositive
	item.Sentiment = &sentiment

	s.NoError(store.MergeSave(s.ctx, []domain.ContentItem{item}))

	refreshed, err := store.FindExistingByExternalIDs(s.ctx, sourceID, []string{"a1"})
	s.Require().NoError(err)
	s.Require().NotNil(refreshed["a1"].TranslatedTitle)
	s.Equal("Title", *refreshed["a1"].TranslatedTitle)
	s.Require().NotNil(refreshed["a1"].Sentiment)
	s.Equal(domain.SentimentPositive, *refreshed["a1"].Sentiment)
}

func (s *PostgresIntegrationSuite) TestContentStore_FindNeedingTranslation() {
	store := NewContentStore(s.db)
	sourceID := s.insertSource("board", domain.KindPost, "{}", true)

	s.NoError(store.BatchInsert(s.ctx, []domain.ContentItem{
		{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "ko-pending", Title: "한국어", Language: domain.LanguageKorean},
		{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "ko-blank", Title: "", Language: domain.LanguageKorean},
		{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "en", Title: "English", Language: domain.LanguageEnglish},
	}))

	pending, err := store.FindNeedingTranslation(s.ctx, 10)
	s.NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("ko-pending", pending[0].ExternalID)

	item := pending[0]
	item.TranslatedTitle = utils.Ptr("Korean")
	s.NoError(store.MergeSave(s.ctx, []domain.ContentItem{item}))

	pending, err = store.FindNeedingTranslation(s.ctx, 10)
	s.NoError(err)
	s.Len(pending, 0)
}

func (s *PostgresIntegrationSuite) TestContentStore_FindNeedingSentiment_RespectsLimit() {
	store := NewContentStore(s.db)
	sourceID := s.insertSource("board", domain.KindPost, "{}", true)

	items := make([]domain.ContentItem, 0, 5)
	for _, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		items = append(items, domain.ContentItem{SourceID: sourceID, Kind: domain.KindPost, ExternalID: id, Title: "t"})
	}
	s.NoError(store.BatchInsert(s.ctx, items))

	pending, err := store.FindNeedingSentiment(s.ctx, 3)
	s.NoError(err)
	s.Len(pending, 3)
}

func (s *PostgresIntegrationSuite) TestContentStore_DigestWindowQueries() {
	store := NewContentStore(s.db)
	postSource := s.insertSource("board", domain.KindPost, "{}", true)
	listingSource := s.insertSource("jobwire", domain.KindListing, "{}", true)

	s.NoError(store.BatchInsert(s.ctx, []domain.ContentItem{
		{SourceID: postSource, Kind: domain.KindPost, ExternalID: "p1", Title: "Low", Score: 1},
		{SourceID: postSource, Kind: domain.KindPost, ExternalID: "p2", Title: "High", Score: 99},
		{SourceID: listingSource, Kind: domain.KindListing, ExternalID: "l1", Title: "Job"},
	}))

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)

	counts, err := store.CountCreatedBetween(s.ctx, from, to)
	s.NoError(err)
	s.Equal(2, counts[domain.KindPost])
	s.Equal(1, counts[domain.KindListing])
	s.Equal(0, counts[domain.KindArticle])

	top, err := store.FindCreatedBetween(s.ctx, from, to, 2)
	s.NoError(err)
	s.Require().Len(top, 2)
	s.Equal("High", top[0].Title)
}

func (s *PostgresIntegrationSuite) TestSourceStore_ListEnabled() {
	store := NewSourceStore(s.db)
	s.insertSource("board", domain.KindPost, `{"community":"golang","page_size":25}`, true)
	s.insertSource("board_disabled", domain.KindPost, "{}", false)
	s.insertSource("devpress", domain.KindArticle, `{"topics":["go","backend"]}`, true)

	posts, err := store.ListEnabled(s.ctx, domain.KindPost)
	s.NoError(err)
	s.Require().Len(posts, 1)
	s.Equal("board", posts[0].Code)
	s.Equal("golang", posts[0].Config.Community)
	s.Equal(25, posts[0].Config.PageSize)

	articles, err := store.ListEnabled(s.ctx, domain.KindArticle)
	s.NoError(err)
	s.Require().Len(articles, 1)
	s.Equal([]string{"go", "backend"}, articles[0].Config.Topics)
}

func (s *PostgresIntegrationSuite) TestSourceStore_AdvanceLastCrawled() {
	store := NewSourceStore(s.db)
	id := s.insertSource("board", domain.KindPost, "{}", true)
	now := time.Now().Truncate(time.Microsecond)

	s.NoError(store.AdvanceLastCrawled(s.ctx, id, now))

	sources, err := store.ListEnabled(s.ctx, domain.KindPost)
	s.NoError(err)
	s.Require().Len(sources, 1)
	s.Require().NotNil(sources[0].LastCrawledAt)
	s.WithinDuration(now, *sources[0].LastCrawledAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestHistoryStore_CreateAndFinish() {
	store := NewHistoryStore(s.db)
	sourceID := s.insertSource("board", domain.KindPost, "{}", true)
	started := time.Now().Truncate(time.Microsecond)

	hist := &domain.CrawlHistory{
		SourceID:  sourceID,
		Status:    domain.CrawlRunning,
		StartedAt: started,
	}
	s.NoError(store.Create(s.ctx, hist))
	s.Greater(hist.ID, int64(0))

	hist.Status = domain.CrawlSuccess
	hist.Found = 10
	hist.Saved = 7
	hist.Updated = 2
	hist.FinishedAt = utils.Ptr(started.Add(3 * time.Second))
	s.NoError(store.Finish(s.ctx, hist))

	var got domain.CrawlHistory
	err := s.db.GetContext(s.ctx, &got,
		"SELECT id, source_id, status, found, saved, updated, error_detail, started_at, finished_at FROM crawl_histories WHERE id = $1", hist.ID)
	s.NoError(err)
	s.Equal(domain.CrawlSuccess, got.Status)
	s.Equal(10, got.Found)
	s.Equal(7, got.Saved)
	s.NotNil(got.FinishedAt)
}

func (s *PostgresIntegrationSuite) TestDigestStore_FindByDate_MissingIsNil() {
	store := NewDigestStore(s.db)

	d, err := store.FindByDate(s.ctx, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))
	s.NoError(err)
	s.Nil(d)
}

func (s *PostgresIntegrationSuite) TestDigestStore_Save_UpsertsByDate() {
	store := NewDigestStore(s.db)
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	first := &domain.Digest{Date: date, PostCount: 1, Content: "draft one", Status: domain.DigestFailed}
	s.NoError(store.Save(s.ctx, first))
	s.Greater(first.ID, int64(0))

	second := &domain.Digest{Date: date, PostCount: 5, Content: "draft two", Status: domain.DigestDraft}
	s.NoError(store.Save(s.ctx, second))
	s.Equal(first.ID, second.ID)

	got, err := store.FindByDate(s.ctx, date)
	s.NoError(err)
	s.Require().NotNil(got)
	s.Equal("draft two", got.Content)
	s.Equal(5, got.PostCount)
	s.Equal(domain.DigestDraft, got.Status)
}

func (s *PostgresIntegrationSuite) TestDigestStore_MarkSent() {
	store := NewDigestStore(s.db)
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	d := &domain.Digest{Date: date, Content: "text", Status: domain.DigestDraft}
	s.NoError(store.Save(s.ctx, d))

	sentAt := time.Now().Truncate(time.Microsecond)
	s.NoError(store.MarkSent(s.ctx, d.ID, sentAt))

	got, err := store.FindByID(s.ctx, d.ID)
	s.NoError(err)
	s.Equal(domain.DigestSent, got.Status)
	s.Require().NotNil(got.SentAt)
	s.WithinDuration(sentAt, *got.SentAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	store := NewContentStore(s.db)
	sourceID := s.insertSource("board", domain.KindPost, "{}", true)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		return store.BatchInsert(ctx, []domain.ContentItem{
			{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "tx-1", Title: "Committed"},
		})
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM content_items WHERE external_id = $1", "tx-1")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	store := NewContentStore(s.db)
	sourceID := s.insertSource("board", domain.KindPost, "{}", true)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := store.BatchInsert(ctx, []domain.ContentItem{
			{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "tx-2", Title: "Should Rollback"},
		}); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM content_items WHERE external_id = $1", "tx-2")
	s.NoError(err)
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_ReadOnlyRejectsWrites() {
	tm := NewTransactionManager(s.db)
	store := NewContentStore(s.db)
	sourceID := s.insertSource("board", domain.KindPost, "{}", true)

	err := tm.WithReadOnlyTransaction(s.ctx, func(ctx context.Context) error {
		return store.BatchInsert(ctx, []domain.ContentItem{
			{SourceID: sourceID, Kind: domain.KindPost, ExternalID: "ro-1", Title: "Rejected"},
		})
	})
	s.Error(err)
}
