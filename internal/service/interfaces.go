package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"hubmirror/internal/domain"
)

type Source interface {
	ListPosts(ctx context.Context, token string) ([]domain.RemotePost, error)
}

type PostStore interface {
	Insert(ctx context.Context, input *domain.PostInput) (int64, error)
	Update(ctx context.Context, input *domain.PostInput) error
	FindByMeta(ctx context.Context, key, value string) (*domain.Post, error)
	ReplaceMeta(ctx context.Context, postID int64, meta map[string]string) error
	SetMeta(ctx context.Context, postID int64, key, value string) error
	GetMeta(ctx context.Context, postID int64, key string) (string, error)
	SetFeaturedImage(ctx context.Context, postID int64, path string) error
	CountImported(ctx context.Context, postType string) (int, error)
}

type OptionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type RunLogStore interface {
	Append(ctx context.Context, entry *domain.RunLog) error
	Page(ctx context.Context, page, perPage int) ([]domain.RunLog, int, error)
	CountByStatus(ctx context.Context, status domain.RunStatus) (int, error)
	ClearAll(ctx context.Context) error
}

type Resolver interface {
	Find(ctx context.Context, externalID, postType string) (*domain.Post, error)
	Invalidate(externalID, postType string)
}

type MediaImporter interface {
	Attach(ctx context.Context, postID int64, imageURL string) (string, error)
}

type Publisher interface {
	PublishPost(ctx context.Context, input *domain.PostInput, externalID string, created bool) error
	Close() error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type SettingsLoader interface {
	Load(ctx context.Context) (domain.Settings, error)
}
