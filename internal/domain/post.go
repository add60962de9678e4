package domain

import "time"

// Status is the publication status assigned to mirrored posts.
type Status string

const (
	StatusPublish Status = "publish"
	StatusDraft   Status = "draft"
	StatusPending Status = "pending"
	StatusPrivate Status = "private"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPublish, StatusDraft, StatusPending, StatusPrivate:
		return true
	}
	return false
}

// Meta keys stored per post. The external ID key is the join key for
// de-duplication across sync runs.
const (
	MetaExternalID       = "_hubspot_post_id"
	MetaRemoteURL        = "_hubspot_url"
	MetaRemoteUpdated    = "_hubspot_updated"
	MetaRemoteCreated    = "_hubspot_created"
	MetaImportedAt       = "_hubspot_import_date"
	MetaAuthorName       = "_hubspot_author"
	MetaFeaturedImageURL = "_hubspot_featured_image_url"
)

// RemotePost is one blog post as returned by the HubSpot API. It is an
// immutable snapshot per fetch and never persisted as-is.
type RemotePost struct {
	ExternalID       string
	Title            string
	Body             *string
	Summary          *string
	Slug             *string
	URL              string
	FeaturedImageURL *string
	AuthorName       *string
	PublishedAt      *time.Time
	RemoteCreated    string
	RemoteUpdated    string
}

// Post is a content item in the local store. The ID is assigned on insert
// and stable thereafter.
type Post struct {
	ID             int64      `db:"id"`
	PostType       string     `db:"post_type"`
	Title          string     `db:"title"`
	Body           string     `db:"body"`
	Excerpt        string     `db:"excerpt"`
	Status         Status     `db:"status"`
	Slug           *string    `db:"slug"`
	PublishedAt    *time.Time `db:"published_at"`
	PublishedAtGMT *time.Time `db:"published_at_gmt"`
	FeaturedImage  *string    `db:"featured_image"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// PostInput is the mapper output handed to the store. A non-zero ID means
// the upsert updates that post in place instead of creating a new one.
type PostInput struct {
	ID             int64
	PostType       string
	Title          string
	Body           string
	Excerpt        string
	Status         Status
	Slug           *string
	PublishedAt    *time.Time
	PublishedAtGMT *time.Time
}

// Blog is one HubSpot blog, listed for configuration purposes.
type Blog struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}
