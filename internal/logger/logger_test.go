package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", true)
	log.Debug().Str("repo", "o/r").Msg("fetching")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "o/r", line["repo"])
	assert.Equal(t, "fetching", line["message"])
}

func TestNewWithWriterLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "nonsense", true)
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
