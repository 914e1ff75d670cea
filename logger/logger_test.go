package logger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestComponentLoggers(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer func() { Default = nil }()

	ForStrategy("structured").Info().Int("items", 2).Msg("acquired")
	ForStore("redis").Warn().Msg("slow put")
	LogError("ingest", errors.New("boom"), "run %s failed", "abc")
	ForPublisher().Warn().Msg("publish failed")
	ForCache().Warn().Msg("set failed")

	out := buf.String()
	assert.Contains(t, out, "acquired")
	assert.Contains(t, out, "strategy=structured")
	assert.Contains(t, out, "backend=redis")
	assert.Contains(t, out, "run abc failed")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "component=publisher")
	assert.Contains(t, out, "component=cache")
}

func TestGetLogLevel(t *testing.T) {
	os.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, getLogLevel())

	os.Setenv("LOG_LEVEL", "not-a-level")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	os.Unsetenv("LOG_LEVEL")
	os.Setenv("SOLDLISTINGS_ENVIRONMENT", "production")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	os.Unsetenv("SOLDLISTINGS_ENVIRONMENT")
	assert.Equal(t, zerolog.DebugLevel, getLogLevel())
}
