package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/cache"
)

const articleHTML = `<html><head>
<title>Plain Title</title>
<meta property="og:title" content="OG Title">
<meta name="description" content="A page about gardens.">
</head><body>
<nav>Home | About | Contact</nav>
<script>var tracking = true;</script>
<main>Gardens need sunlight, water and patience. Most vegetables want six hours of direct sun every day to produce well.</main>
<footer>Copyright</footer>
</body></html>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractResolvesTitleAndMainContent(t *testing.T) {
	srv := serve(t, http.StatusOK, articleHTML)
	e := NewExtractor(Options{UserAgent: "test"})

	page, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "OG Title", page.Title)
	assert.Equal(t, "A page about gardens.", page.Description)
	assert.True(t, strings.HasPrefix(page.Content, "Gardens need sunlight"))
	assert.NotContains(t, page.Content, "tracking")
	assert.NotContains(t, page.Content, "Copyright")
	assert.False(t, page.Degraded())
}

func TestExtractTitleFallsBackToHeading(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html><body><h1>Heading</h1><p>`+strings.Repeat("word ", 40)+`</p></body></html>`)
	e := NewExtractor(Options{})

	page, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Heading", page.Title)
	assert.Contains(t, page.Content, "word word")
}

func TestExtractFailsSoftOnErrorStatus(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "gone")
	e := NewExtractor(Options{})

	page, err := e.Extract(context.Background(), srv.URL)
	require.Error(t, err)
	require.NotNil(t, page)
	assert.NotEmpty(t, page.Content)
	assert.Contains(t, page.Content, "Failed to extract content")
	assert.Contains(t, page.Content, "HTTP 404")
}

func TestExtractNonHTMLYieldsPlaceholder(t *testing.T) {
	srv := serve(t, http.StatusOK, "")
	e := NewExtractor(Options{})

	page, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, page.Degraded())
	assert.Contains(t, page.Content, "[Content extraction failed")

	_, err = e.FetchContent(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestExtractRejectsInvalidURL(t *testing.T) {
	e := NewExtractor(Options{})
	for _, raw := range []string{"", "not a url", "ftp://example.com/file", "/relative"} {
		_, err := e.Extract(context.Background(), raw)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, raw)
	}
}

func TestExtractStopsAfterMaxRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	e := NewExtractor(Options{MaxRedirects: 2})
	_, err := e.Extract(context.Background(), srv.URL+"/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirects")
}

func TestExtractCachesSuccessfulPages(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		fmt.Fprint(w, articleHTML)
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	c := cache.NewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "fetch:")
	e := NewExtractor(Options{Cache: c, CacheTTL: time.Minute})

	for i := 0; i < 2; i++ {
		page, err := e.Extract(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "OG Title", page.Title)
	}
	assert.Equal(t, 1, hits)
}

func TestTruncatePrefersSentenceBoundary(t *testing.T) {
	s := strings.Repeat("a", 7000) + ". " + strings.Repeat("b", 2000)
	out := truncate(s, 8000)
	assert.Len(t, out, 7001)
	assert.True(t, strings.HasSuffix(out, "."))

	noStop := strings.Repeat("c", 9000)
	out = truncate(noStop, 8000)
	assert.Equal(t, 8003, len(out))
}
