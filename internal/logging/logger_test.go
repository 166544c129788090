package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"", false, true},
		{"INFO", false, true},
		{"warning", false, false},
		{"error", false, false},
	}

	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := NewWithWriter(tt.level, &buf)
			require.NoError(t, err)

			log.V(1).Info("debug message")
			log.Info("info message", "node", "network")
			log.Error(errors.New("boom"), "error message")

			got := buf.String()
			assert.Equal(t, tt.wantDebug, bytes.Contains([]byte(got), []byte("debug message")))
			assert.Equal(t, tt.wantInfo, bytes.Contains([]byte(got), []byte("info message")))
			assert.Contains(t, got, "error message")
		})
	}
}

func TestNew_UnknownLevel(t *testing.T) {
	_, err := New("verbose")
	assert.EqualError(t, err, `unknown log level "verbose" (expected debug, info, warn, or error)`)
}
