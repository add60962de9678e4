package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// OptionStore is a simple key-value settings table, the persistence behind
// the settings surface and the per-trigger last-run markers.
type OptionStore struct {
	db *sqlx.DB
}

func NewOptionStore(db *sqlx.DB) *OptionStore {
	return &OptionStore{db: db}
}

// Get returns "" for a key that was never set.
func (s *OptionStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		"SELECT option_value FROM options WHERE option_key = $1", key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *OptionStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO options (option_key, option_value)
		VALUES ($1, $2)
		ON CONFLICT (option_key) DO UPDATE SET option_value = EXCLUDED.option_value`,
		key, value,
	)
	return err
}

func (s *OptionStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM options WHERE option_key = $1", key)
	return err
}
