package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientProcessed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryClient()
	m.now = func() time.Time { return now }

	seen, err := m.IsProcessed(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, m.MarkProcessed(ctx, "abc", time.Hour))
	seen, _ = m.IsProcessed(ctx, "abc")
	assert.True(t, seen)

	now = now.Add(2 * time.Hour)
	seen, _ = m.IsProcessed(ctx, "abc")
	assert.False(t, seen, "entry should expire")
}

func TestMemoryClientAcquireOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryClient()

	first, err := m.AcquireOnce(ctx, "trends:2026-10-12", time.Hour)
	require.NoError(t, err)
	second, err := m.AcquireOnce(ctx, "trends:2026-10-12", time.Hour)
	require.NoError(t, err)
	other, _ := m.AcquireOnce(ctx, "trends:2026-10-19", time.Hour)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, other)
}

func TestMemoryClientRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryClient()

	ok, _ := m.AcquireOnce(ctx, "trends:2026-10-12", time.Hour)
	require.True(t, ok)
	require.NoError(t, m.Release(ctx, "trends:2026-10-12"))

	ok, _ = m.AcquireOnce(ctx, "trends:2026-10-12", time.Hour)
	assert.True(t, ok)
}
