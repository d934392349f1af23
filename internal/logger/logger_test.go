package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG ":  zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Output: &buf})
	require.NoError(t, err)

	log := l.Component("sync")
	log.Debug().Msg("hidden")
	log.Info().Int("files", 3).Msg("sync complete")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "docstore", entry["service"])
	assert.Equal(t, "sync", entry["component"])
	assert.Equal(t, "sync complete", entry["message"])
	assert.Equal(t, 3.0, entry["files"])
	assert.Contains(t, entry, "time")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docstore.log")
	var buf bytes.Buffer

	l, err := New(Config{Level: "debug", Output: &buf, File: path})
	require.NoError(t, err)
	l.LogServerStart("stdio", 8000, true)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "server_start")
	assert.Contains(t, buf.String(), "server_start")
}
