// Package media downloads remote featured images into the local media
// directory. Everything here is best-effort; the orchestrator swallows
// failures and the post stays synced without an image.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// maxImageSize bounds a single download at 32 MiB.
const maxImageSize = 32 << 20

type Importer struct {
	httpClient *http.Client
	dir        string
	logger     *slog.Logger
}

func NewImporter(dir string, timeout time.Duration, logger *slog.Logger) *Importer {
	return &Importer{
		httpClient: &http.Client{Timeout: timeout},
		dir:        dir,
		logger:     logger.With("component", "media"),
	}
}

// Attach downloads the image and stores it under the media directory as
// <postID>-<basename>. It returns the stored file's path.
func (i *Importer) Attach(ctx context.Context, postID int64, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("download image: not an image (content type %s)", ct)
	}

	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	dest := filepath.Join(i.dir, fmt.Sprintf("%d-%s", postID, baseName(imageURL)))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}

	_, err = io.Copy(f, io.LimitReader(resp.Body, maxImageSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("write media file: %w", err)
	}

	i.logger.Debug("attached image", "post_id", postID, "file", dest)
	return dest, nil
}

// baseName extracts a safe file name from the URL path.
func baseName(imageURL string) string {
	name := "image"
	if u, err := url.Parse(imageURL); err == nil {
		if b := path.Base(u.Path); b != "" && b != "." && b != "/" {
			name = b
		}
	}
	return filepath.Base(name)
}
