package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "!", cfg.Prefix)
	assert.Equal(t, "administrator.db", cfg.DatabasePath)
	assert.Empty(t, cfg.OwnerIDs)
	assert.Equal(t, []string{"extension", "help", "utils", "greetings", "warn", "reminder"}, cfg.Extensions)
	assert.Equal(t, time.Minute, cfg.ReminderInterval)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestParseValues(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("BOT_PREFIX", "?")
	t.Setenv("OWNER_IDS", "1,2")
	t.Setenv("EXTENSIONS", "extension,warn")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REMINDER_INTERVAL", "30s")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.Prefix)
	assert.Equal(t, []string{"1", "2"}, cfg.OwnerIDs)
	assert.Equal(t, []string{"extension", "warn"}, cfg.Extensions)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, 30*time.Second, cfg.ReminderInterval)
}

func TestParseErrors(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	os.Unsetenv("DISCORD_TOKEN")

	_, err := Parse()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), err.Error())

	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("REMINDER_INTERVAL", "often")
	_, err = Parse()
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	os.Unsetenv("DISCORD_TOKEN")
	t.Setenv("DATABASE_PATH", "")
	os.Unsetenv("DATABASE_PATH")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DISCORD_TOKEN=from-file\nDATABASE_PATH=/tmp/bot.db\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.DiscordToken)
	assert.Equal(t, "/tmp/bot.db", cfg.DatabasePath)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLevelFallback(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, (&Config{LogLevel: "loud"}).Level())
	assert.Equal(t, zerolog.WarnLevel, (&Config{LogLevel: "warn"}).Level())
}
