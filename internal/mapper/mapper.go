// Package mapper transforms one remote HubSpot post into the local store's
// input shape, cleaning vendor markup on the way.
package mapper

import (
	"html"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"

	"hubmirror/internal/domain"
)

var (
	// HubSpot-specific markup that must not leak into the local store.
	vendorClassRe = regexp.MustCompile(`(?i)class="[^"]*hs-[^"]*"`)
	inlineStyleRe = regexp.MustCompile(`(?i)style="[^"]*"`)

	whitespaceRe = regexp.MustCompile(`\s+`)

	bodyPolicy = bluemonday.UGCPolicy()
	textPolicy = bluemonday.StrictPolicy()
)

// Map builds the store input for one remote post. The status is always the
// configured target, never the remote state. When existing is non-nil its ID
// is carried through so the upsert updates in place.
func Map(remote domain.RemotePost, postType string, status domain.Status, existing *domain.Post) domain.PostInput {
	input := domain.PostInput{
		PostType: postType,
		Title:    sanitizeText(remote.Title),
		Body:     CleanBody(bodyText(remote)),
		Status:   status,
	}

	if remote.Summary != nil {
		input.Excerpt = sanitizeMultiline(*remote.Summary)
	}

	if remote.PublishedAt != nil {
		local := remote.PublishedAt.Local()
		gmt := remote.PublishedAt.UTC()
		input.PublishedAt = &local
		input.PublishedAtGMT = &gmt
	}

	if remote.Slug != nil && *remote.Slug != "" {
		s := slug.Make(*remote.Slug)
		input.Slug = &s
	}

	if existing != nil {
		input.ID = existing.ID
	}

	return input
}

func bodyText(remote domain.RemotePost) string {
	switch {
	case remote.Body != nil && *remote.Body != "":
		return *remote.Body
	case remote.Summary != nil:
		return *remote.Summary
	default:
		return ""
	}
}

// CleanBody strips HubSpot CSS classes and inline styles, collapses
// whitespace, then passes the result through the markup allow-list.
func CleanBody(content string) string {
	if content == "" {
		return ""
	}

	content = vendorClassRe.ReplaceAllString(content, "")
	content = inlineStyleRe.ReplaceAllString(content, "")
	content = whitespaceRe.ReplaceAllString(content, " ")
	content = strings.TrimSpace(content)

	return bodyPolicy.Sanitize(content)
}

// sanitizeText strips all markup and collapses whitespace to one line.
func sanitizeText(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// sanitizeMultiline strips all markup but keeps line breaks, for excerpts.
func sanitizeMultiline(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRe.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
