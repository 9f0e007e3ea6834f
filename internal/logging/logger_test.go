package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Setup(LevelWarn, &buf)

	log := Component("test")
	log.Debug().Msg("hidden")
	log.Warn().Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestComponentTagging(t *testing.T) {
	var buf bytes.Buffer
	Setup(LevelInfo, &buf)

	log := Component("playback")
	log.Info().Msg("started")

	assert.True(t, strings.Contains(buf.String(), "playback"))
}

func TestParseLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	Setup("nonsense", &buf)

	log := Component("test")
	log.Info().Msg("filtered")
	assert.Empty(t, buf.String())
}
