package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(i int, published time.Time) *models.NewsRecord {
	return &models.NewsRecord{
		ID:          fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
		Slug:        fmt.Sprintf("slug%d", i),
		OriginalURL: fmt.Sprintf("https://example.com/%d", i),
		Source:      "test",
		Title:       fmt.Sprintf("标题 %d", i),
		PublishedAt: published,
	}
}

// runStoreContract exercises behaviour every Store implementation shares.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	t.Run("insert is idempotent on url", func(t *testing.T) {
		rec := newRecord(1, base.Add(-time.Hour))
		ok, err := s.Insert(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)

		dup := newRecord(2, base)
		dup.OriginalURL = rec.OriginalURL
		ok, err = s.Insert(ctx, dup)
		require.NoError(t, err)
		assert.False(t, ok)

		exists, err := s.ExistsByURL(ctx, rec.OriginalURL)
		require.NoError(t, err)
		assert.True(t, exists)

		_, err = s.Get(ctx, dup.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list filters and orders newest first", func(t *testing.T) {
		older := newRecord(3, base.Add(-10*24*time.Hour))
		newer := newRecord(4, base)
		summarized := newRecord(5, base.Add(-2*time.Hour))
		summarized.SummaryPrimary = models.StringPtr("已经有摘要的新闻内容")
		summarized.TitleEN = models.StringPtr("Already translated")
		for _, r := range []*models.NewsRecord{older, newer, summarized} {
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}

		pending, err := s.List(ctx, Query{PendingSummary: true, PublishedSince: base.Add(-7 * 24 * time.Hour)})
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, newer.ID, pending[0].ID)

		missing, err := s.List(ctx, Query{MissingTitleEN: true, Limit: 10})
		require.NoError(t, err)
		for _, r := range missing {
			assert.Nil(t, r.TitleEN)
		}

		found, err := s.List(ctx, Query{TitleContains: "already"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, summarized.ID, found[0].ID)
	})

	t.Run("title search is literal", func(t *testing.T) {
		pct := newRecord(10, base.Add(-3*time.Hour))
		pct.Title = "Revenue up 50% in Q3"
		plain := newRecord(11, base.Add(-3*time.Hour))
		plain.Title = "Revenue up 500 units"
		under := newRecord(12, base.Add(-3*time.Hour))
		under.Title = "model_v2 release"
		other := newRecord(13, base.Add(-3*time.Hour))
		other.Title = "modelXv2 release"
		for _, r := range []*models.NewsRecord{pct, plain, under, other} {
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}

		found, err := s.List(ctx, Query{TitleContains: "50%"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, pct.ID, found[0].ID)

		found, err = s.List(ctx, Query{TitleContains: "l_v"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, under.ID, found[0].ID)
	})

	t.Run("update writes only patched fields", func(t *testing.T) {
		rec := newRecord(6, base)
		rec.SummaryPrimary = models.StringPtr("原始摘要")
		_, err := s.Insert(ctx, rec)
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, rec.ID, models.RecordPatch{TitleEN: models.StringPtr("Title")}))
		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "Title", models.Deref(got.TitleEN))
		assert.Equal(t, "原始摘要", models.Deref(got.SummaryPrimary))
		assert.Equal(t, rec.Title, got.Title)

		err = s.Update(ctx, "00000000-0000-0000-0000-999999999999", models.RecordPatch{Title: models.StringPtr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("latest created at", func(t *testing.T) {
		latest, err := s.LatestCreatedAt(ctx)
		require.NoError(t, err)
		assert.False(t, latest.IsZero())
	})

	t.Run("weekly trends upsert", func(t *testing.T) {
		week := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
		w := &models.WeeklyTrends{
			WeekStart: week, TitleZH: "本周", TitleEN: "This week",
			MessageZH: "消息", MessageEN: "Message",
			TrendsZH: []string{"趋势"}, TrendsEN: []string{"trend"},
		}
		require.NoError(t, s.UpsertWeeklyTrends(ctx, w))
		w.TitleEN = "This week, revised"
		require.NoError(t, s.UpsertWeeklyTrends(ctx, w))

		got, err := s.GetWeeklyTrends(ctx, week)
		require.NoError(t, err)
		assert.Equal(t, "This week, revised", got.TitleEN)

		_, err = s.GetWeeklyTrends(ctx, week.AddDate(0, 0, 7))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rec := newRecord(1, time.Now())
	_, err := s.Insert(ctx, rec)
	require.NoError(t, err)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Title, again.Title)
	assert.Equal(t, 1, s.Len())
}
