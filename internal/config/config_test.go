package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost", "user": "u", "password": "p", "db_name": "d"},
		"ai": {"provider": "openai", "data": {"key": "k"}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, 384, cfg.AI.EmbeddingDim)
	require.Equal(t, 45, cfg.Fetch.ExtractionTimeout)
	require.InDelta(t, 0.40, cfg.Scoring.HeuristicWeight, 0.0001)
	require.Equal(t, 300, cfg.Workers.PollIntervalSeconds)
	require.Equal(t, 24, cfg.Workers.ReuseWindowHours)
	require.Equal(t, 30, cfg.Jobs.DocumentKeepDays)
	require.Equal(t, "0 4 * * *", cfg.Jobs.DocumentPurgeSpec)
}

func TestLoad_KeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9000,
		"database": {"dsn": "postgres://u:p@localhost/d"},
		"ai": {"provider": "gemini", "temperature": 0.7},
		"summarizer": {"chunk_size": 50000},
		"workers": {"poll_interval_seconds": 60}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.InDelta(t, 0.7, cfg.AI.Temperature, 0.0001)
	require.Equal(t, 50000, cfg.Summarizer.ChunkSize)
	require.Equal(t, 60, cfg.Workers.PollIntervalSeconds)
}

func TestLoad_MissingPort(t *testing.T) {
	path := writeConfig(t, `{"database": {"host": "localhost"}, "ai": {"provider": "openai"}}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingProvider(t *testing.T) {
	path := writeConfig(t, `{"port": 8080, "database": {"host": "localhost"}}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingDatabase(t *testing.T) {
	path := writeConfig(t, `{"port": 8080, "ai": {"provider": "openai"}}`)
	_, err := Load(path)
	require.Error(t, err)
}
