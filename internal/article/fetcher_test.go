package article

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>x</title><script>var a = 1;</script></head>
<body>
<nav>Home | About</nav>
<div class="sidebar">Trending now</div>
<main><article>
  <h1>GPT-5 released</h1>
  <p>OpenAI   released
  a new model.</p>
  <div class="ad">Buy now</div>
</article></main>
<footer>© 2026</footer>
</body></html>`

func extract(t *testing.T, html string) string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return ExtractText(doc)
}

func TestExtractPrefersArticle(t *testing.T) {
	text := extract(t, page)
	assert.Equal(t, "GPT-5 released OpenAI released a new model.", text)
}

func TestExtractFallsBackToBody(t *testing.T) {
	text := extract(t, `<html><body><nav>menu</nav><div><p>Plain body text</p></div></body></html>`)
	assert.Equal(t, "Plain body text", text)
}

func TestExtractSkipsEmptyContainers(t *testing.T) {
	text := extract(t, `<html><body><article>  </article><div class="entry-content">Entry text</div></body></html>`)
	assert.Equal(t, "Entry text", text)
}

func TestHTTPFetcherTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><article>" + strings.Repeat("字", 50) + "</article></body></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, 10)
	assert.Equal(t, strings.Repeat("字", 10), f.Fetch(context.Background(), srv.URL))
}

func TestHTTPFetcherFailuresReturnEmpty(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer missing.Close()

	f := NewHTTPFetcher(100*time.Millisecond, 4000)
	start := time.Now()
	assert.Empty(t, f.Fetch(context.Background(), slow.URL))
	assert.Less(t, time.Since(start), time.Second)

	assert.Empty(t, f.Fetch(context.Background(), missing.URL))
	assert.Empty(t, f.Fetch(context.Background(), "http://127.0.0.1:1/"))
}
