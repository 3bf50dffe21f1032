package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bilgisen/newsbridge/internal/cache"
	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(url, title string) models.ScrapedItem {
	return models.ScrapedItem{Title: title, URL: url, Source: "test", PublishedAt: time.Now()}
}

func TestIngestDedupsWithinBatch(t *testing.T) {
	store := storage.NewMemoryStore()
	g := NewGate(store)

	n := g.Ingest(context.Background(), []models.ScrapedItem{
		item("https://example.com/a", "First title"),
		item("https://example.com/a", "Second title"),
	})

	assert.Equal(t, 1, n)
	recs, err := store.List(context.Background(), storage.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "First title", recs[0].Title)
	assert.NotEmpty(t, recs[0].Slug)
	assert.Nil(t, recs[0].SummaryPrimary)
	assert.Nil(t, recs[0].SummaryEN)
	assert.Nil(t, recs[0].TitleEN)
}

func TestIngestIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	g := NewGate(store)
	batch := []models.ScrapedItem{item("https://example.com/a", "A"), item("https://example.com/b", "B")}

	assert.Equal(t, 2, g.Ingest(context.Background(), batch))
	assert.Equal(t, 0, g.Ingest(context.Background(), batch))
	assert.Equal(t, 1, g.Ingest(context.Background(), append(batch, item("https://example.com/c", "C"))))
	assert.Equal(t, 3, store.Len())
}

func TestIngestSkipsInvalidItems(t *testing.T) {
	store := storage.NewMemoryStore()
	n := NewGate(store).Ingest(context.Background(), []models.ScrapedItem{
		item("", "no url"),
		item("https://example.com/x", ""),
	})
	assert.Equal(t, 0, n)
}

type flakyStore struct {
	*storage.MemoryStore
	failURL string
}

func (f *flakyStore) ExistsByURL(ctx context.Context, url string) (bool, error) {
	if url == f.failURL {
		return false, errors.New("connection reset")
	}
	return f.MemoryStore.ExistsByURL(ctx, url)
}

func TestIngestContinuesPastItemFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: storage.NewMemoryStore(), failURL: "https://example.com/bad"}
	n := NewGate(store).Ingest(context.Background(), []models.ScrapedItem{
		item("https://example.com/bad", "Bad"),
		item("https://example.com/good", "Good"),
	})
	assert.Equal(t, 1, n)
}

// durableStore stands in for a store that outlives the process.
type durableStore struct {
	*storage.MemoryStore
}

func TestIngestUsesSeenCache(t *testing.T) {
	store := storage.NewMemoryStore()
	c := cache.NewMemoryClient()
	g := NewGate(durableStore{store}, WithCache(c, time.Hour))

	assert.Equal(t, 1, g.Ingest(context.Background(), []models.ScrapedItem{item("https://example.com/a", "A")}))

	// A URL already in storage but missing from the cache is still caught.
	other := NewGate(store)
	assert.Equal(t, 0, other.Ingest(context.Background(), []models.ScrapedItem{item("https://example.com/a#frag", "A again")}))

	// The cached URL short-circuits before storage is asked.
	failing := &flakyStore{MemoryStore: store, failURL: "https://example.com/a"}
	g2 := NewGate(failing, WithCache(c, time.Hour))
	assert.Equal(t, 0, g2.Ingest(context.Background(), []models.ScrapedItem{item("https://example.com/a", "A")}))
	assert.Equal(t, 1, store.Len())
}

func TestIngestIgnoresCacheForMemoryStore(t *testing.T) {
	c := cache.NewMemoryClient()
	first := NewGate(durableStore{storage.NewMemoryStore()}, WithCache(c, time.Hour))
	require.Equal(t, 1, first.Ingest(context.Background(), []models.ScrapedItem{item("https://example.com/a", "A")}))

	// A fresh in-memory store after a restart must not trust the old cache.
	restarted := storage.NewMemoryStore()
	g := NewGate(restarted, WithCache(c, time.Hour))
	assert.Equal(t, 1, g.Ingest(context.Background(), []models.ScrapedItem{item("https://example.com/a", "A")}))
	assert.Equal(t, 1, restarted.Len())
}

func TestCheckRateLimit(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		created *time.Time
		wantErr bool
	}{
		{"empty store", nil, false},
		{"two minutes ago", ptrTime(now.Add(-2 * time.Minute)), true},
		{"exactly cooldown", ptrTime(now.Add(-5 * time.Minute)), false},
		{"an hour ago", ptrTime(now.Add(-time.Hour)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			if tt.created != nil {
				_, err := store.Insert(context.Background(), &models.NewsRecord{
					ID: "1", OriginalURL: "https://example.com/1", Title: "t", CreatedAt: *tt.created,
				})
				require.NoError(t, err)
			}
			err := NewGate(store, WithClock(func() time.Time { return now })).CheckRateLimit(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRateLimited)
				assert.Contains(t, err.Error(), "retry in 3m0s")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
