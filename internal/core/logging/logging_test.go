package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.raw), tt.raw)
	}
}

func TestSetupWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(&buf, "info", "json")
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	logger.Info().Str("provider", "primary").Msg("attempt")
	logger.Debug().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, `"provider":"primary"`)
	assert.Contains(t, out, `"service":"wbot"`)
	assert.NotContains(t, out, "hidden")
}
