package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"hubmirror/internal/domain"
)

type PostStore struct {
	db *sqlx.DB
}

func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

func (s *PostStore) Insert(ctx context.Context, input *domain.PostInput) (int64, error) {
	query := `
		INSERT INTO posts (
			post_type, title, body, excerpt, status, slug, published_at, published_at_gmt
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		input.PostType,
		input.Title,
		input.Body,
		input.Excerpt,
		input.Status,
		input.Slug,
		input.PublishedAt,
		input.PublishedAtGMT,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostStore) Update(ctx context.Context, input *domain.PostInput) error {
	query := `
		UPDATE posts SET
			post_type = $2,
			title = $3,
			body = $4,
			excerpt = $5,
			status = $6,
			slug = COALESCE($7, slug),
			published_at = COALESCE($8, published_at),
			published_at_gmt = COALESCE($9, published_at_gmt),
			updated_at = now()
		WHERE id = $1`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		input.ID,
		input.PostType,
		input.Title,
		input.Body,
		input.Excerpt,
		input.Status,
		input.Slug,
		input.PublishedAt,
		input.PublishedAtGMT,
	)
	return err
}

// FindByMeta returns the first post carrying the given meta key/value pair,
// or nil when none does.
func (s *PostStore) FindByMeta(ctx context.Context, key, value string) (*domain.Post, error) {
	query := `
		SELECT p.id, p.post_type, p.title, p.body, p.excerpt, p.status, p.slug,
		       p.published_at, p.published_at_gmt, p.featured_image, p.created_at, p.updated_at
		FROM posts p
		JOIN post_meta m ON m.post_id = p.id
		WHERE m.meta_key = $1 AND m.meta_value = $2
		ORDER BY p.id
		LIMIT 1`

	var post domain.Post
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &post, query, key, value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ReplaceMeta upserts the whole meta map in one multi-VALUES statement.
func (s *PostStore) ReplaceMeta(ctx context.Context, postID int64, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES ")
	args := make([]interface{}, 0, len(meta)*2+1)
	args = append(args, postID)

	i := 0
	for key, value := range meta {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($1, $")
		sb.WriteString(strconv.Itoa(i*2 + 2))
		sb.WriteString(", $")
		sb.WriteString(strconv.Itoa(i*2 + 3))
		sb.WriteString(")")
		args = append(args, key, value)
		i++
	}
	sb.WriteString(" ON CONFLICT (post_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value")

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	return err
}

func (s *PostStore) SetMeta(ctx context.Context, postID int64, key, value string) error {
	query := `
		INSERT INTO post_meta (post_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, postID, key, value)
	return err
}

// GetMeta returns "" when the key is absent.
func (s *PostStore) GetMeta(ctx context.Context, postID int64, key string) (string, error) {
	var value string
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &value,
		"SELECT meta_value FROM post_meta WHERE post_id = $1 AND meta_key = $2",
		postID, key,
	)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *PostStore) SetFeaturedImage(ctx context.Context, postID int64, path string) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE posts SET featured_image = $2, updated_at = now() WHERE id = $1",
		postID, path,
	)
	return err
}

// CountImported counts posts of the given type that carry an external-ID link.
func (s *PostStore) CountImported(ctx context.Context, postType string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM post_meta m
		JOIN posts p ON p.id = m.post_id
		WHERE m.meta_key = $1 AND p.post_type = $2`

	var count int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count, query, domain.MetaExternalID, postType)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// PurgeImported deletes every mirrored post and its meta. Part of the
// uninstall path only.
func (s *PostStore) PurgeImported(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM posts WHERE id IN (SELECT post_id FROM post_meta WHERE meta_key = $1)",
		domain.MetaExternalID,
	)
	return err
}
