package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "prod")
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger.Debug().Msg("скрыто")
	require.Zero(t, buf.Len())

	dev := newLogger(&buf, "dev")
	require.Equal(t, zerolog.DebugLevel, dev.GetLevel())
}

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(newLogger(&buf, "prod"), "scraper")
	logger.Info().Msg("ok")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "scraper", entry["component"])
	require.Equal(t, "recipebox", entry["app"])
}
