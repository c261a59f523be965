package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoScript = "package demo\n\nfunc Main(args []string) {}\n"

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.go")
	require.NoError(t, os.WriteFile(path, []byte(demoScript), 0o644))

	s, err := NewFetcher().Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Script{Name: "catalog", Location: path, Code: demoScript}, s)
}

func TestFetch_MissingFile(t *testing.T) {
	_, err := NewFetcher().Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.go"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFetch_EmptyLocation(t *testing.T) {
	_, err := NewFetcher().Fetch(context.Background(), "  ")
	assert.Error(t, err)
}

func TestFetch_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scripts/search.go", r.URL.Path)
		assert.Equal(t, "scriptterm/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(demoScript))
	}))
	defer srv.Close()

	loc := srv.URL + "/scripts/search.go"
	s, err := NewFetcher().Fetch(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, Script{Name: "search", Location: loc, Code: demoScript}, s)
}

func TestFetch_HTTPStatusError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewFetcher(WithRetries(0)).Fetch(context.Background(), srv.URL+"/missing.go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_HTTPHonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewFetcher(WithRetries(0)).Fetch(ctx, srv.URL+"/slow.go")
	assert.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/a.go"))
	assert.True(t, IsRemote("http://localhost:8080/a.go"))
	assert.False(t, IsRemote("_scripts/catalog.go"))
	assert.False(t, IsRemote("/abs/path.go"))
	assert.False(t, IsRemote("file:///abs/path.go"))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "catalog", baseName("catalog.go"))
	assert.Equal(t, "main", baseName("/"))
	assert.Equal(t, "main", baseName(""))
	assert.Equal(t, "tool", baseName("tool"))
}
