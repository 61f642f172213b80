package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byAyes/wbot/internal/core/secrets"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty path", input: "", expected: ""},
		{name: "Absolute path", input: "/srv/wbot/scratch", expected: "/srv/wbot/scratch"},
		{name: "Relative path", input: "data/birthdays.json", expected: "data/birthdays.json"},
		{name: "Home directory only", input: "~", expected: home},
		{name: "Home directory with forward slash", input: "~/.cache/wbot", expected: filepath.Join(home, ".cache/wbot")},
		{name: "Home directory with backslash", input: `~\wbot`, expected: filepath.Join(home, "wbot")},
		{name: "Tilde in the middle", input: "/path/~/test", expected: "/path/~/test"},
		{name: "Tilde user form", input: "~user", expected: "~user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandPath(tt.input))
		})
	}
}

func TestLoadFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("language: en\nretry:\n  max_attempts: 5\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.Delay)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.ConfirmTTL)
	assert.Equal(t, int64(15*1024*1024), cfg.Pipeline.InlineLimitBytes())
	assert.True(t, cfg.Retry.ShouldRetryNotFound())
}

func TestSaveFileRoundTripsDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)
	cfg := DefaultConfig()
	cfg.Pipeline.ConfirmTTL = 45 * time.Second

	require.NoError(t, SaveFile(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "confirm_ttl: 45s")
}

func TestApplyEnvOverridesFile(t *testing.T) {
	t.Setenv("API_URL", "https://primary.example")
	t.Setenv("FALLBACK_API_URL", "https://secondary.example")
	t.Setenv("ALTERNATIVE_API_URL", "https://alt.example")
	t.Setenv("PORT", "8081")
	t.Setenv("WBOT_CONFIRM_TTL", "1m")

	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, "https://primary.example", cfg.Providers.Primary.BaseURL)
	assert.Equal(t, "https://secondary.example", cfg.Providers.Secondary.BaseURL)
	assert.Equal(t, "https://alt.example", cfg.Providers.Alternative.BaseURL)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Pipeline.ConfirmTTL)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestUnsealOpensSealedCredentials(t *testing.T) {
	token, err := secrets.Seal("123:bot-token", "open sesame")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Telegram.BotToken = token
	cfg.Providers.Primary.APIKey = "plain-key"

	require.NoError(t, cfg.Unseal("open sesame"))
	assert.Equal(t, "123:bot-token", cfg.Telegram.BotToken)
	assert.Equal(t, "plain-key", cfg.Providers.Primary.APIKey)
}

func TestUnsealNeedsPassphrase(t *testing.T) {
	token, err := secrets.Seal("123:bot-token", "open sesame")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Telegram.BotToken = token
	err = cfg.Unseal("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.bot_token is sealed")

	err = cfg.Unseal("wrong passphrase")
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestDownloadTimeoutDefaultAndEnv(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.Equal(t, 10*time.Minute, cfg.Providers.DownloadTimeout)

	t.Setenv("WBOT_DOWNLOAD_TIMEOUT", "90s")
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, 90*time.Second, cfg.Providers.DownloadTimeout)
}
