package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/job-tracker/internal/config"
)

func TestLogWriter_Stdout(t *testing.T) {
	assert.Equal(t, os.Stdout, logWriter(&config.Config{}))
}

func TestLogWriter_File(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.File = filepath.Join(t.TempDir(), "tracker.log")
	cfg.Log.MaxSize = 1

	w := logWriter(cfg)
	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logLevel(true))
	assert.Equal(t, slog.LevelInfo, logLevel(false))
}
