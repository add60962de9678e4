package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"hubmirror/internal/domain"
)

const DefaultBaseURL = "https://api.hubapi.com"

// Config holds HubSpot client configuration.
type Config struct {
	BaseURL      string
	PageSize     int
	MaxPosts     int
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
}

// APIError is a non-2xx response from the HubSpot API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HubSpot API Error: %s (Code: %d)", e.Message, e.StatusCode)
}

// Client talks to the HubSpot CMS v3 blogs API. The access token is passed
// per call so a settings change takes effect on the next run without a
// client rebuild.
type Client struct {
	httpClient  *http.Client
	probeClient *http.Client
	baseURL     string
	pageSize    int
	maxPosts    int
	logger      *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.FetchTimeout},
		probeClient: &http.Client{Timeout: cfg.ProbeTimeout},
		baseURL:     cfg.BaseURL,
		pageSize:    cfg.PageSize,
		maxPosts:    cfg.MaxPosts,
		logger:      logger.With("source", "hubspot"),
	}
}

// ListPosts pages through published posts newest-first until a short page,
// an empty page, or the fetch cap. Any request failure discards pages
// already fetched.
func (c *Client) ListPosts(ctx context.Context, token string) ([]domain.RemotePost, error) {
	var all []blogPost
	offset := 0

	for {
		page, err := c.fetchPage(ctx, token, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch posts at offset %d: %w", offset, err)
		}

		all = append(all, page.Results...)

		c.logger.Debug("fetched page",
			"offset", offset,
			"posts", len(page.Results),
			"total", len(all),
		)

		if len(page.Results) < c.pageSize {
			break
		}
		if len(all) >= c.maxPosts {
			all = all[:c.maxPosts]
			break
		}
		offset += c.pageSize
	}

	return c.transform(all), nil
}

func (c *Client) fetchPage(ctx context.Context, token string, offset int) (*listPostsResponse, error) {
	url := fmt.Sprintf("%s/cms/v3/blogs/posts?limit=%d&offset=%d&state=PUBLISHED&sort=-publish_date",
		c.baseURL, c.pageSize, offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var page listPostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &page, nil
}

// ListBlogs returns the account's blogs, used by the configuration surface.
func (c *Client) ListBlogs(ctx context.Context, token string) ([]domain.Blog, error) {
	url := c.baseURL + "/cms/v3/blogs/blogs"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setHeaders(req, token)

	resp, err := c.probeClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var body listBlogsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	blogs := make([]domain.Blog, 0, len(body.Results))
	for _, b := range body.Results {
		blogs = append(blogs, domain.Blog{ID: b.ID, Name: b.Name, URL: b.URL})
	}
	return blogs, nil
}

// TestConnection probes the posts endpoint with limit=1 and reports a
// human-readable verdict.
func (c *Client) TestConnection(ctx context.Context, token string) (bool, string) {
	if token == "" {
		return false, "API key is required."
	}

	url := c.baseURL + "/cms/v3/blogs/posts?limit=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, "Connection failed: " + err.Error()
	}
	setHeaders(req, token)

	resp, err := c.probeClient.Do(req)
	if err != nil {
		return false, "Connection failed: " + err.Error()
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, "API connection successful!"
	case resp.StatusCode == http.StatusUnauthorized:
		return false, "Invalid API key. Please check your HubSpot Private App Access Token."
	default:
		return false, apiError(resp).Error()
	}
}

func setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
}

func apiError(resp *http.Response) *APIError {
	msg := "Unknown API error"
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Message != "" {
			msg = er.Message
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func (c *Client) transform(posts []blogPost) []domain.RemotePost {
	remote := make([]domain.RemotePost, 0, len(posts))

	for _, p := range posts {
		rp := domain.RemotePost{
			ExternalID:    p.ID,
			Title:         p.Name,
			URL:           p.URL,
			RemoteCreated: p.Created,
			RemoteUpdated: p.Updated,
		}

		if p.PostBody != "" {
			rp.Body = &p.PostBody
		}
		if p.PostSummary != "" {
			rp.Summary = &p.PostSummary
		}
		if p.Slug != "" {
			rp.Slug = &p.Slug
		}
		if p.FeaturedImage != "" {
			rp.FeaturedImageURL = &p.FeaturedImage
		}
		if p.BlogAuthor != nil && p.BlogAuthor.DisplayName != "" {
			rp.AuthorName = &p.BlogAuthor.DisplayName
		}

		if p.PublishDate != "" {
			publishedAt, err := time.Parse(time.RFC3339, p.PublishDate)
			if err != nil {
				c.logger.Warn("failed to parse publish date",
					"external_id", p.ID,
					"publish_date", p.PublishDate,
				)
			} else {
				rp.PublishedAt = &publishedAt
			}
		}

		remote = append(remote, rp)
	}

	return remote
}
