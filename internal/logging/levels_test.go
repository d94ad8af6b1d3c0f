package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "debug", want: zapcore.DebugLevel},
		{in: "info", want: zapcore.InfoLevel},
		{in: "warn", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "fatal", want: zapcore.FatalLevel},
		// Synonyms the legacy module accepted.
		{in: "trace", want: zapcore.DebugLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "none", want: zapcore.FatalLevel},
		// Case-insensitive.
		{in: "WARNING", want: zapcore.WarnLevel},
		{in: "Debug", want: zapcore.DebugLevel},
		// Unrecognized falls back to info with an error.
		{in: "shouting", want: zapcore.InfoLevel, wantErr: true},
		// zap treats empty as info.
		{in: "", want: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	logger := New(zapcore.WarnLevel)
	assert.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
