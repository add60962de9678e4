package media

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImporter(t *testing.T) *Importer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewImporter(t.TempDir(), 5*time.Second, logger)
}

func TestAttach_StoresImage(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer srv.Close()

	imp := testImporter(t)

	dest, err := imp.Attach(context.Background(), 7, srv.URL+"/uploads/hero.jpg")

	require.NoError(t, err)
	assert.Equal(t, "7-hero.jpg", filepath.Base(dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestAttach_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	imp := testImporter(t)

	_, err := imp.Attach(context.Background(), 7, srv.URL+"/missing.jpg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestAttach_RejectsNonImageContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not found</html>"))
	}))
	defer srv.Close()

	imp := testImporter(t)

	_, err := imp.Attach(context.Background(), 7, srv.URL+"/hero.jpg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
}

func TestAttach_UnreachableHost(t *testing.T) {
	imp := testImporter(t)

	_, err := imp.Attach(context.Background(), 7, "http://127.0.0.1:1/hero.jpg")

	require.Error(t, err)
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/uploads/hero.jpg":     "hero.jpg",
		"https://cdn.example.com/hero.png?size=large":  "hero.png",
		"https://cdn.example.com/":                     "image",
		"https://cdn.example.com":                      "image",
		"https://cdn.example.com/a/b/../../etc/passwd": "passwd",
	}
	for in, want := range cases {
		assert.Equal(t, want, baseName(in), in)
	}
}
