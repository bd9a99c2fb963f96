package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/config"
	"expensetracker/internal/log"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("warn", &buf)
	t.Cleanup(func() { SetupLogger("info", nil) })

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, log.ComponentApp, logger.Component())
}

func TestOpenStorage(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("debug", &buf)
	t.Cleanup(func() { SetupLogger("info", nil) })

	cfg := &config.Config{SQLiteDBPath: filepath.Join(t.TempDir(), "cli", "app.db")}
	repo, err := OpenStorage(cfg, logger)
	require.NoError(t, err)
	assert.NoError(t, repo.Close())
	assert.Contains(t, buf.String(), "Storage ready")
	assert.Contains(t, buf.String(), log.FieldComponent+"="+log.ComponentStorage)
}

func TestNewEventClientDisabled(t *testing.T) {
	c, err := NewEventClient(&config.Config{}, log.Discard())
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, Publisher(c), "a missing client must become a nil interface")
}

func TestNewAPIClient(t *testing.T) {
	_, err := NewAPIClient(&config.Config{APIBaseURL: "http://localhost:8000"}, log.Discard())
	assert.NoError(t, err)
}
