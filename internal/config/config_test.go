package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partygames/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StorageTypeMemory, cfg.StorageType)
	assert.Equal(t, 30*time.Second, cfg.TurnTimeout)
	assert.Equal(t, 120*time.Second, cfg.RoundTimeLimit)
	assert.Equal(t, 30*time.Second, cfg.TriviaTimeLimit)
	assert.Equal(t, 180*time.Second, cfg.BusTimeLimit)
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}, cfg.HintOffsets)
	assert.Equal(t, 3*time.Second, cfg.RevealDelay)
	assert.Equal(t, 5, cfg.TimeoutPenalty)
	assert.True(t, cfg.AutoCloseSolo)
	assert.True(t, cfg.LeaveOnDisconnect)
	assert.Equal(t, 5*time.Minute, cfg.TransferTokenTTL)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PARTYGAMES_PORT", "9090")
	t.Setenv("PARTYGAMES_LOG_LEVEL", "debug")
	t.Setenv("PARTYGAMES_TURN_TIMEOUT", "10s")
	t.Setenv("PARTYGAMES_HINT_OFFSETS", "5s,15s")
	t.Setenv("PARTYGAMES_AUTO_CLOSE_SOLO", "false")
	t.Setenv("PARTYGAMES_SCRAPE_URLS", "charades:http://example.com/films,trivia:http://example.com/quiz")
	t.Setenv("PARTYGAMES_SCRAPE_RATE", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 9090, cfg.Server().Port)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	d := cfg.Dispatcher()
	assert.Equal(t, 10*time.Second, d.TurnTimeout)
	assert.Equal(t, []time.Duration{5 * time.Second, 15 * time.Second}, d.HintOffsets)
	assert.False(t, d.AutoCloseSolo)
	assert.True(t, d.LeaveOnDisconnect)

	sources := cfg.ScrapeSources()
	require.Len(t, sources, 2)
	assert.Equal(t, model.GameCharades, sources[0].GameType)
	assert.Equal(t, "http://example.com/films", sources[0].URL)
	assert.Equal(t, "li", sources[0].ItemSelector)
	assert.Equal(t, model.GameTrivia, sources[1].GameType)
	assert.Equal(t, 250*time.Millisecond, cfg.ScrapeInterval())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage type", map[string]string{"PARTYGAMES_STORAGE_TYPE": "postgres"}},
		{"redis without url", map[string]string{"PARTYGAMES_STORAGE_TYPE": "redis"}},
		{"bad log level", map[string]string{"PARTYGAMES_LOG_LEVEL": "loud"}},
		{"bad port", map[string]string{"PARTYGAMES_PORT": "70000"}},
		{"bad duration", map[string]string{"PARTYGAMES_TURN_TIMEOUT": "soon"}},
		{"unknown scrape game type", map[string]string{"PARTYGAMES_SCRAPE_URLS": "chess:http://example.com"}},
		{"non-positive hint offset", map[string]string{"PARTYGAMES_HINT_OFFSETS": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRedisWithURL(t *testing.T) {
	t.Setenv("PARTYGAMES_STORAGE_TYPE", "redis")
	t.Setenv("PARTYGAMES_REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
}
