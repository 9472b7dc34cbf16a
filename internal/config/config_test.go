package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, "127.0.0.1:8093", cfg.FeedAddr)
	assert.Equal(t, "/tmp/murmur.sock", cfg.Socket)
	assert.Equal(t, "15:04:05", cfg.ClockLayout)
	assert.Equal(t, ProviderOpenAI, cfg.GenAI.Provider)
	assert.Equal(t, EngineEspeak, cfg.Voice.Engine)
	assert.Equal(t, 1.1, cfg.Voice.Pitch)
	assert.Equal(t, 1.0, cfg.Voice.Rate)
	assert.False(t, cfg.Voice.Duck)
	assert.Zero(t, cfg.HTTPTimeout)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "w-key")
	t.Setenv("NEWS_API_KEY", "n-key")
	t.Setenv("GENAI_PROVIDER", "anthropic")
	t.Setenv("GENAI_MODEL", "claude-haiku-4-5")
	t.Setenv("MURMUR_STORE", "sqlite")
	t.Setenv("MURMUR_VOICE_RATE", "1.25")
	t.Setenv("MURMUR_DUCK", "true")
	t.Setenv("MURMUR_HTTP_TIMEOUT", "15s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "w-key", cfg.Services.WeatherKey)
	assert.Equal(t, "n-key", cfg.Services.NewsKey)
	assert.Equal(t, ProviderAnthropic, cfg.GenAI.Provider)
	assert.Equal(t, "claude-haiku-4-5", cfg.GenAI.Model)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, 1.25, cfg.Voice.Rate)
	assert.True(t, cfg.Voice.Duck)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
}

func TestEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MURMUR_TEST_ONLY_KEY=from-file\nMURMUR_TTS=log\n"), 0o600))

	t.Setenv("MURMUR_TEST_ONLY_KEY", "")
	os.Unsetenv("MURMUR_TEST_ONLY_KEY")
	t.Setenv("MURMUR_TTS", "")
	os.Unsetenv("MURMUR_TTS")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EngineLog, cfg.Voice.Engine)
	assert.Equal(t, "from-file", os.Getenv("MURMUR_TEST_ONLY_KEY"))
}

func TestInvalid(t *testing.T) {
	tests := map[string]string{
		"MURMUR_STORE":       "redis",
		"GENAI_PROVIDER":     "palm",
		"MURMUR_TTS":         "sapi",
		"MURMUR_VOICE_PITCH": "0",
		"MURMUR_VOICE_RATE":  "fast",
	}

	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
