package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	Set(zerolog.New(&buf))
	t.Cleanup(func() { Set(zerolog.Nop()) })

	Component("ingest").Info().Int("inserted", 3).Msg("done")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ingest", entry["component"])
	assert.Equal(t, float64(3), entry["inserted"])
	assert.Equal(t, "done", entry["message"])
}

func TestGetBeforeInitIsSilent(t *testing.T) {
	Set(zerolog.Nop())
	assert.NotPanics(t, func() {
		Get().Error().Msg("dropped")
	})
}
