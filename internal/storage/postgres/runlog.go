package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	gocache "github.com/patrickmn/go-cache"

	"hubmirror/internal/domain"
)

const (
	aggregateTTL  = 5 * time.Minute
	cacheKeyTotal = "total"
)

// RunLogStore persists the append-only sync run log. The log page is read
// far more often than it is written, so aggregate counts are cached for a
// few minutes; any write flushes them.
type RunLogStore struct {
	db    *sqlx.DB
	cache *gocache.Cache
}

func NewRunLogStore(db *sqlx.DB) *RunLogStore {
	return &RunLogStore{
		db:    db,
		cache: gocache.New(aggregateTTL, 2*aggregateTTL),
	}
}

func (s *RunLogStore) Append(ctx context.Context, entry *domain.RunLog) error {
	query := `
		INSERT INTO sync_runs (trigger_source, status, message, error_detail, created_count, updated_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query,
		entry.Trigger,
		entry.Status,
		entry.Message,
		entry.ErrorDetail,
		entry.CreatedCount,
		entry.UpdatedCount,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return err
	}

	s.cache.Flush()
	return nil
}

// Page returns one page of entries newest-first plus the total count.
func (s *RunLogStore) Page(ctx context.Context, page, perPage int) ([]domain.RunLog, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	total, err := s.total(ctx)
	if err != nil {
		return nil, 0, err
	}

	var entries []domain.RunLog
	err = s.db.SelectContext(ctx, &entries, `
		SELECT id, trigger_source, status, message, error_detail, created_count, updated_count, created_at
		FROM sync_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`,
		perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (s *RunLogStore) total(ctx context.Context) (int, error) {
	if v, ok := s.cache.Get(cacheKeyTotal); ok {
		return v.(int), nil
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sync_runs"); err != nil {
		return 0, err
	}
	s.cache.Set(cacheKeyTotal, total, gocache.DefaultExpiration)
	return total, nil
}

func (s *RunLogStore) CountByStatus(ctx context.Context, status domain.RunStatus) (int, error) {
	key := "status:" + string(status)
	if v, ok := s.cache.Get(key); ok {
		return v.(int), nil
	}

	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM sync_runs WHERE status = $1", status)
	if err != nil {
		return 0, err
	}
	s.cache.Set(key, count, gocache.DefaultExpiration)
	return count, nil
}

// ClearAll is a destructive, irreversible bulk delete. Confirmation is the
// caller's concern.
func (s *RunLogStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sync_runs"); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}
