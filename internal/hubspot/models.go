package hubspot

// listPostsResponse represents the HubSpot CMS v3 blog posts listing body.
type listPostsResponse struct {
	Total   int        `json:"total"`
	Results []blogPost `json:"results"`
}

type blogPost struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	URL           string      `json:"url"`
	PostBody      string      `json:"postBody"`
	PostSummary   string      `json:"postSummary"`
	FeaturedImage string      `json:"featuredImage"`
	PublishDate   string      `json:"publishDate"`
	Created       string      `json:"created"`
	Updated       string      `json:"updated"`
	BlogAuthor    *blogAuthor `json:"blogAuthor"`
}

type blogAuthor struct {
	DisplayName string `json:"displayName"`
}

type listBlogsResponse struct {
	Results []blogEntry `json:"results"`
}

type blogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// errorResponse carries the message field HubSpot returns on non-200s.
type errorResponse struct {
	Message string `json:"message"`
}
