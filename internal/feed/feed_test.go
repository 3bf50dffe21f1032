package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><title>OpenAI launches &lt;b&gt;GPT-5&lt;/b&gt;</title><link>https://example.com/gpt5#comments</link>
<pubDate>Mon, 12 Oct 2026 08:00:00 GMT</pubDate><description>&lt;p&gt;Big   news&lt;/p&gt;</description></item>
<item><title>Local bakery wins award</title><link>https://example.com/bakery</link></item>
<item><title>No date LLM item</title><link>https://example.com/nodate</link></item>
</channel></rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>A</title>
<entry><title>Anthropic ships Claude</title><link rel="alternate" href="https://example.com/claude"/>
<id>tag:example.com,2026:1</id><updated>2026-10-11T10:00:00Z</updated></entry>
<entry><title>Missing link</title><id>tag:example.com,2026:2</id></entry>
</feed>`

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	prev := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = prev })
	return now
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedSourceRSS(t *testing.T) {
	now := fixedNow(t)
	srv := serve(t, http.StatusOK, rssFixture)

	src := NewFeedSource(SourceConfig{Name: "rss", URL: srv.URL, MaxItems: 10}, NewFetcher(FetcherConfig{}))
	items := src.FetchItems(context.Background())

	require.Len(t, items, 3)
	assert.Equal(t, "OpenAI launches GPT-5", items[0].Title)
	assert.Equal(t, "https://example.com/gpt5", items[0].URL)
	assert.Equal(t, "Big news", items[0].Content)
	assert.Equal(t, "rss", items[0].Source)
	assert.Equal(t, 2026, items[0].PublishedAt.Year())
	assert.Equal(t, now, items[2].PublishedAt, "missing date falls back to now")
}

func TestFeedSourceKeywordFilter(t *testing.T) {
	fixedNow(t)
	srv := serve(t, http.StatusOK, rssFixture)

	src := NewFeedSource(SourceConfig{Name: "hn", URL: srv.URL, MaxItems: 10, Keywords: []string{"OPENAI", "llm"}}, NewFetcher(FetcherConfig{}))
	items := src.FetchItems(context.Background())

	require.Len(t, items, 2)
	assert.Equal(t, "https://example.com/gpt5", items[0].URL)
	assert.Equal(t, "https://example.com/nodate", items[1].URL)
}

func TestFeedSourceAtomLinkHref(t *testing.T) {
	fixedNow(t)
	srv := serve(t, http.StatusOK, atomFixture)

	src := NewFeedSource(SourceConfig{Name: "atom", URL: srv.URL, MaxItems: 10}, NewFetcher(FetcherConfig{}))
	items := src.FetchItems(context.Background())

	require.Len(t, items, 1, "entry without any link is dropped")
	assert.Equal(t, "https://example.com/claude", items[0].URL)
	assert.Equal(t, 11, items[0].PublishedAt.Day())
}

func TestFeedSourceFailuresDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, "oops"},
		{"malformed xml", http.StatusOK, "<rss><channel><item>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			src := NewFeedSource(SourceConfig{Name: "bad", URL: srv.URL, MaxItems: 10}, NewFetcher(FetcherConfig{}))
			assert.Empty(t, src.FetchItems(context.Background()))
		})
	}

	src := NewFeedSource(SourceConfig{Name: "down", URL: "http://127.0.0.1:1/feed", MaxItems: 10}, NewFetcher(FetcherConfig{Timeout: time.Second}))
	assert.Empty(t, src.FetchItems(context.Background()))
}

func TestSearchSourceDedupsAcrossQueries(t *testing.T) {
	fixedNow(t)
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch q {
		case "LLM":
			_, _ = w.Write([]byte(`{"hits":[
				{"title":"Shared story","url":"https://example.com/shared","created_at":"2026-10-14T09:30:00.000Z"},
				{"title":"Ask HN: no url","url":null}
			]}`))
		case "OpenAI":
			_, _ = w.Write([]byte(`{"hits":[
				{"title":"Shared story again","url":"https://example.com/shared#x"},
				{"title":"Only OpenAI","url":"https://example.com/openai"}
			]}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)

	src := NewSearchSource(SourceConfig{Name: "hn", URL: srv.URL, Queries: []string{"LLM", "OpenAI", "broken"}, MaxItems: 5}, NewFetcher(FetcherConfig{}))
	items := src.FetchItems(context.Background())

	require.Len(t, items, 2)
	assert.Equal(t, "Shared story", items[0].Title)
	assert.Equal(t, 14, items[0].PublishedAt.Day())
	assert.Equal(t, "https://example.com/openai", items[1].URL)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"LLM", "OpenAI", "broken"}, queries)
}

type stubSource struct {
	name  string
	items []models.ScrapedItem
	delay time.Duration
	panic bool
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) FetchItems(ctx context.Context) []models.ScrapedItem {
	time.Sleep(s.delay)
	if s.panic {
		panic("boom")
	}
	return s.items
}

func TestAggregatorCollect(t *testing.T) {
	a := NewAggregator(
		stubSource{name: "slow", delay: 20 * time.Millisecond, items: []models.ScrapedItem{{URL: "a1"}, {URL: "a2"}}},
		stubSource{name: "broken", panic: true},
		stubSource{name: "empty"},
		stubSource{name: "fast", items: []models.ScrapedItem{{URL: "b1"}}},
	)

	items := a.Collect(context.Background())

	var urls []string
	for _, it := range items {
		urls = append(urls, it.URL)
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, urls)
}

func TestLoadSources(t *testing.T) {
	defaults, err := LoadSources("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSources, defaults)

	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: Blog
    type: feed
    url: https://example.com/rss
    keywords: [llm]
  - name: Search
    type: search
    url: https://example.com/search
    queries: [agents]
    max_items: 5
`), 0o644))

	cfgs, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.Equal(t, []string{"llm"}, cfgs[0].Keywords)

	sources, err := BuildSources(cfgs, NewFetcher(FetcherConfig{}))
	require.NoError(t, err)
	assert.IsType(t, &FeedSource{}, sources[0])
	assert.IsType(t, &SearchSource{}, sources[1])

	_, err = BuildSources([]SourceConfig{{Name: "x", URL: "u", Type: "ftp"}}, nil)
	assert.Error(t, err)
	_, err = BuildSources([]SourceConfig{{Name: "x", URL: "u", Type: TypeSearch}}, nil)
	assert.Error(t, err)
}

func TestMatchesKeywords(t *testing.T) {
	assert.True(t, MatchesKeywords("AI beats humans", AIKeywords))
	assert.True(t, MatchesKeywords("anything", nil))
	assert.False(t, MatchesKeywords("Said again in Thailand", []string{" ai "}))
	assert.True(t, MatchesKeywords("New LLM benchmark", []string{"llm"}))
}
