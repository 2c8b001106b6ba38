package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("IMPORT_CHUNK_SIZE=25\nREMINDER_DEFAULT_DAYS=3, 10\nQUEUE_POLL_INTERVAL=250ms\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("IMPORT_CHUNK_SIZE")
		os.Unsetenv("REMINDER_DEFAULT_DAYS")
		os.Unsetenv("QUEUE_POLL_INTERVAL")
	})

	require.NoError(t, Load(path))

	c := Get()
	assert.Equal(t, 25, c.ImportChunkSize)
	assert.Equal(t, 500, c.ImportMaxRows)
	assert.Equal(t, 250*time.Millisecond, c.QueuePollInterval)
	assert.Equal(t, "Asia/Kolkata", c.ReminderTimezone)

	days, err := c.ReminderDays()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 10}, days)
}

func TestLoad_MissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestReminderDays_Invalid(t *testing.T) {
	for _, raw := range []string{"", "7,x", "0", "-3"} {
		c := &Config{ReminderDefaultDays: raw}
		_, err := c.ReminderDays()
		assert.Error(t, err, raw)
	}
}

func TestReminderLocation(t *testing.T) {
	c := &Config{ReminderTimezone: "Asia/Kolkata"}
	loc, err := c.ReminderLocation()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	c.ReminderTimezone = "Mars/Olympus"
	_, err = c.ReminderLocation()
	assert.Error(t, err)
}

func TestPostgresConfigs(t *testing.T) {
	c := &Config{PostgresReadHost: "replica", PostgresWriteHost: "primary", PostgresWritePort: "5433"}
	assert.Equal(t, "replica", c.PostgresRead().Host)
	assert.Equal(t, "primary", c.PostgresWrite().Host)
	assert.Equal(t, "5433", c.PostgresWrite().Port)
}
