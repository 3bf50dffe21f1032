package app

import (
	"context"
	"testing"

	"github.com/bilgisen/newsbridge/internal/ai"
	"github.com/bilgisen/newsbridge/internal/config"
	"github.com/bilgisen/newsbridge/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.FromEnv()
	cfg.AIApiKey = "sk-test"
	cfg.DatabaseURL = ""
	cfg.RedisURL = ""
	cfg.SocialWebhookURL = ""
	cfg.SourcesFile = ""
	cfg.R2Bucket = ""
	return cfg
}

func TestNewWithLLMFallsBackToMemory(t *testing.T) {
	a, err := NewWithLLM(context.Background(), testConfig(), &ai.FakeCompleter{})
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Store.(*storage.MemoryStore)
	assert.True(t, ok)
	assert.NotNil(t, a.Workflow)
	assert.NotNil(t, a.Consistency)
	assert.NotNil(t, a.Translate)
	assert.NotNil(t, a.Trends)
	assert.NotNil(t, a.Aggregator)
	assert.Equal(t, 5, a.Scheduler().Len())
}

func TestNewRejectsMissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.AIApiKey = ""
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewRejectsBadSourcesFile(t *testing.T) {
	cfg := testConfig()
	cfg.SourcesFile = "/nonexistent/sources.yaml"
	_, err := NewWithLLM(context.Background(), cfg, &ai.FakeCompleter{})
	assert.Error(t, err)
}
