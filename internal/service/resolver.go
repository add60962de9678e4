package service

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"hubmirror/internal/domain"
)

const resolverCacheTTL = 5 * time.Minute

// CachedResolver finds the local post matching an external ID, caching
// lookups for the duration of a run. External IDs do not change mid-run, so
// a short TTL is safe; upserts invalidate their own entry.
type CachedResolver struct {
	posts PostStore
	cache *gocache.Cache
}

func NewCachedResolver(posts PostStore) *CachedResolver {
	return &CachedResolver{
		posts: posts,
		cache: gocache.New(resolverCacheTTL, 2*resolverCacheTTL),
	}
}

// Find returns nil when no post carries the external ID, or when the match
// belongs to a different post type (a type reconfiguration must not adopt
// old links).
func (r *CachedResolver) Find(ctx context.Context, externalID, postType string) (*domain.Post, error) {
	key := cacheKey(externalID, postType)
	if v, ok := r.cache.Get(key); ok {
		return v.(*domain.Post), nil
	}

	post, err := r.posts.FindByMeta(ctx, domain.MetaExternalID, externalID)
	if err != nil {
		return nil, err
	}
	if post != nil && post.PostType != postType {
		post = nil
	}

	r.cache.Set(key, post, gocache.DefaultExpiration)
	return post, nil
}

func (r *CachedResolver) Invalidate(externalID, postType string) {
	r.cache.Delete(cacheKey(externalID, postType))
}

func cacheKey(externalID, postType string) string {
	return postType + ":" + externalID
}
