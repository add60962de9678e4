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

	"hubmirror/internal/domain"
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
			filepath.Join(migrationsPath, "001_create_posts.up.sql"),
			filepath.Join(migrationsPath, "002_create_sync_runs.up.sql"),
			filepath.Join(migrationsPath, "003_create_options.up.sql"),
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
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM post_meta")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM posts")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM sync_runs")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM options")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertPost(store *PostStore, externalID, title string) int64 {
	id, err := store.Insert(s.ctx, &domain.PostInput{
		PostType: "post",
		Title:    title,
		Body:     "<p>Body</p>",
		Status:   domain.StatusDraft,
	})
	s.Require().NoError(err)

	err = store.ReplaceMeta(s.ctx, id, map[string]string{
		domain.MetaExternalID: externalID,
		domain.MetaRemoteURL:  "https://blog.example.com/" + externalID,
	})
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) TestPostStore_InsertAndFindByMeta() {
	store := NewPostStore(s.db)

	id := s.insertPost(store, "101", "First Post")
	s.Greater(id, int64(0))

	found, err := store.FindByMeta(s.ctx, domain.MetaExternalID, "101")
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal(id, found.ID)
	s.Equal("First Post", found.Title)
	s.Equal(domain.StatusDraft, found.Status)
}

func (s *PostgresIntegrationSuite) TestPostStore_FindByMeta_Missing() {
	store := NewPostStore(s.db)

	found, err := store.FindByMeta(s.ctx, domain.MetaExternalID, "no-such-id")
	s.NoError(err)
	s.Nil(found)
}

func (s *PostgresIntegrationSuite) TestPostStore_Update() {
	store := NewPostStore(s.db)
	id := s.insertPost(store, "101", "Original")

	slug := "refreshed-post"
	err := store.Update(s.ctx, &domain.PostInput{
		ID:       id,
		PostType: "post",
		Title:    "Refreshed",
		Body:     "<p>New body</p>",
		Status:   domain.StatusPublish,
		Slug:     &slug,
	})
	s.NoError(err)

	found, err := store.FindByMeta(s.ctx, domain.MetaExternalID, "101")
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal("Refreshed", found.Title)
	s.Equal(domain.StatusPublish, found.Status)
	s.Require().NotNil(found.Slug)
	s.Equal("refreshed-post", *found.Slug)
}

func (s *PostgresIntegrationSuite) TestPostStore_UpdateKeepsSlugWhenNil() {
	store := NewPostStore(s.db)
	id := s.insertPost(store, "101", "Original")

	slug := "first-slug"
	err := store.Update(s.ctx, &domain.PostInput{
		ID: id, PostType: "post", Title: "With Slug", Status: domain.StatusDraft, Slug: &slug,
	})
	s.NoError(err)

	err = store.Update(s.ctx, &domain.PostInput{
		ID: id, PostType: "post", Title: "Slugless Update", Status: domain.StatusDraft,
	})
	s.NoError(err)

	found, err := store.FindByMeta(s.ctx, domain.MetaExternalID, "101")
	s.NoError(err)
	s.Require().NotNil(found.Slug)
	s.Equal("first-slug", *found.Slug)
}

func (s *PostgresIntegrationSuite) TestPostStore_ReplaceMeta_Upserts() {
	store := NewPostStore(s.db)
	id := s.insertPost(store, "101", "Post")

	err := store.ReplaceMeta(s.ctx, id, map[string]string{
		domain.MetaExternalID:    "101",
		domain.MetaRemoteUpdated: "2025-03-02T00:00:00Z",
	})
	s.NoError(err)

	value, err := store.GetMeta(s.ctx, id, domain.MetaRemoteUpdated)
	s.NoError(err)
	s.Equal("2025-03-02T00:00:00Z", value)

	// Same key again with a new value lands as an update, not a duplicate.
	err = store.ReplaceMeta(s.ctx, id, map[string]string{
		domain.MetaRemoteUpdated: "2025-03-03T00:00:00Z",
	})
	s.NoError(err)

	value, err = store.GetMeta(s.ctx, id, domain.MetaRemoteUpdated)
	s.NoError(err)
	s.Equal("2025-03-03T00:00:00Z", value)

	var count int
	err = s.db.GetContext(s.ctx, &count,
		"SELECT COUNT(*) FROM post_meta WHERE post_id = $1 AND meta_key = $2", id, domain.MetaRemoteUpdated)
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestPostStore_GetMeta_Missing() {
	store := NewPostStore(s.db)
	id := s.insertPost(store, "101", "Post")

	value, err := store.GetMeta(s.ctx, id, domain.MetaFeaturedImageURL)
	s.NoError(err)
	s.Equal("", value)
}

func (s *PostgresIntegrationSuite) TestPostStore_SetFeaturedImage() {
	store := NewPostStore(s.db)
	id := s.insertPost(store, "101", "Post")

	err := store.SetFeaturedImage(s.ctx, id, "media/1-hero.jpg")
	s.NoError(err)

	var image string
	err = s.db.GetContext(s.ctx, &image, "SELECT featured_image FROM posts WHERE id = $1", id)
	s.NoError(err)
	s.Equal("media/1-hero.jpg", image)
}

func (s *PostgresIntegrationSuite) TestPostStore_CountImported() {
	store := NewPostStore(s.db)
	s.insertPost(store, "101", "First")
	s.insertPost(store, "102", "Second")

	// A post without the external ID link does not count.
	_, err := store.Insert(s.ctx, &domain.PostInput{
		PostType: "post", Title: "Native Post", Status: domain.StatusDraft,
	})
	s.Require().NoError(err)

	count, err := store.CountImported(s.ctx, "post")
	s.NoError(err)
	s.Equal(2, count)

	count, err = store.CountImported(s.ctx, "page")
	s.NoError(err)
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestPostStore_PurgeImported() {
	store := NewPostStore(s.db)
	s.insertPost(store, "101", "Mirrored")
	nativeID, err := store.Insert(s.ctx, &domain.PostInput{
		PostType: "post", Title: "Native", Status: domain.StatusDraft,
	})
	s.Require().NoError(err)

	err = store.PurgeImported(s.ctx)
	s.NoError(err)

	count, err := store.CountImported(s.ctx, "post")
	s.NoError(err)
	s.Equal(0, count)

	var nativeCount int
	err = s.db.GetContext(s.ctx, &nativeCount, "SELECT COUNT(*) FROM posts WHERE id = $1", nativeID)
	s.NoError(err)
	s.Equal(1, nativeCount)
}

func (s *PostgresIntegrationSuite) TestRunLogStore_AppendAndPage() {
	store := NewRunLogStore(s.db)

	detail := "some detail"
	first := &domain.RunLog{
		Trigger: domain.TriggerManual,
		Status:  domain.RunSuccess,
		Message: "Successfully imported 3 posts and updated 0 posts",
	}
	s.NoError(store.Append(s.ctx, first))
	s.Greater(first.ID, int64(0))
	s.False(first.CreatedAt.IsZero())

	second := &domain.RunLog{
		Trigger:     domain.TriggerScheduled,
		Status:      domain.RunError,
		Message:     "Import completed with 1 errors",
		ErrorDetail: &detail,
	}
	s.NoError(store.Append(s.ctx, second))

	entries, total, err := store.Page(s.ctx, 1, 10)
	s.NoError(err)
	s.Equal(2, total)
	s.Require().Len(entries, 2)

	// Newest first.
	s.Equal(second.ID, entries[0].ID)
	s.Require().NotNil(entries[0].ErrorDetail)
	s.Equal("some detail", *entries[0].ErrorDetail)
	s.Equal(first.ID, entries[1].ID)
}

func (s *PostgresIntegrationSuite) TestRunLogStore_Paging() {
	store := NewRunLogStore(s.db)

	for i := 0; i < 5; i++ {
		s.NoError(store.Append(s.ctx, &domain.RunLog{
			Trigger: domain.TriggerManual,
			Status:  domain.RunSuccess,
			Message: "run",
		}))
	}

	entries, total, err := store.Page(s.ctx, 2, 2)
	s.NoError(err)
	s.Equal(5, total)
	s.Len(entries, 2)

	entries, _, err = store.Page(s.ctx, 3, 2)
	s.NoError(err)
	s.Len(entries, 1)
}

func (s *PostgresIntegrationSuite) TestRunLogStore_CountByStatusCacheFlushedOnWrite() {
	store := NewRunLogStore(s.db)

	s.NoError(store.Append(s.ctx, &domain.RunLog{
		Trigger: domain.TriggerManual, Status: domain.RunSuccess, Message: "one",
	}))

	count, err := store.CountByStatus(s.ctx, domain.RunSuccess)
	s.NoError(err)
	s.Equal(1, count)

	// The append must invalidate the cached aggregate.
	s.NoError(store.Append(s.ctx, &domain.RunLog{
		Trigger: domain.TriggerManual, Status: domain.RunSuccess, Message: "two",
	}))

	count, err = store.CountByStatus(s.ctx, domain.RunSuccess)
	s.NoError(err)
	s.Equal(2, count)
}

func (s *PostgresIntegrationSuite) TestRunLogStore_ClearAll() {
	store := NewRunLogStore(s.db)

	s.NoError(store.Append(s.ctx, &domain.RunLog{
		Trigger: domain.TriggerManual, Status: domain.RunError, Message: "boom",
	}))

	s.NoError(store.ClearAll(s.ctx))

	_, total, err := store.Page(s.ctx, 1, 10)
	s.NoError(err)
	s.Equal(0, total)

	count, err := store.CountByStatus(s.ctx, domain.RunError)
	s.NoError(err)
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestOptionStore_SetGetDelete() {
	store := NewOptionStore(s.db)

	value, err := store.Get(s.ctx, "hubspot_api_token")
	s.NoError(err)
	s.Equal("", value)

	s.NoError(store.Set(s.ctx, "hubspot_api_token", "first"))
	s.NoError(store.Set(s.ctx, "hubspot_api_token", "second"))

	value, err = store.Get(s.ctx, "hubspot_api_token")
	s.NoError(err)
	s.Equal("second", value)

	s.NoError(store.Delete(s.ctx, "hubspot_api_token"))

	value, err = store.Get(s.ctx, "hubspot_api_token")
	s.NoError(err)
	s.Equal("", value)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	store := NewPostStore(s.db)

	var id int64
	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		var err error
		id, err = store.Insert(ctx, &domain.PostInput{
			PostType: "post", Title: "In Transaction", Status: domain.StatusDraft,
		})
		if err != nil {
			return err
		}
		return store.ReplaceMeta(ctx, id, map[string]string{domain.MetaExternalID: "101"})
	})
	s.NoError(err)

	found, err := store.FindByMeta(s.ctx, domain.MetaExternalID, "101")
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal(id, found.ID)
}

func (s *PostgresIntegrationSuite) TestTransaction_RollbackDiscardsPostAndMeta() {
	tm := NewTransactionManager(s.db)
	store := NewPostStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		id, err := store.Insert(ctx, &domain.PostInput{
			PostType: "post", Title: "Doomed", Status: domain.StatusDraft,
		})
		if err != nil {
			return err
		}
		if err := store.ReplaceMeta(ctx, id, map[string]string{domain.MetaExternalID: "101"}); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	found, err := store.FindByMeta(s.ctx, domain.MetaExternalID, "101")
	s.NoError(err)
	s.Nil(found)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM posts")
	s.NoError(err)
	s.Equal(0, count)
}
