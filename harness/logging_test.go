package harness_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"deedles.dev/cascade/harness"
	"deedles.dev/cascade/inhibitor"
	"deedles.dev/cascade/internal/config"
	"deedles.dev/cascade/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swapLogger replaces the shared logger for the rest of t.
func swapLogger(t *testing.T, w *bytes.Buffer) {
	t.Helper()

	old := logger.Logger
	logger.Logger = log.New(w)
	t.Cleanup(func() { logger.Logger = old })
}

func TestLogFormatAlone(t *testing.T) {
	isolate(t)

	var buf bytes.Buffer
	swapLogger(t, &buf)
	harness.SetLogOutput(t, &buf)

	_, err := harness.New([]string{"--log-format", "json"})
	require.NoError(t, err)

	buf.Reset()
	logger.Info("inhibition changed", "holder", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %q", buf.String())
	assert.Equal(t, "inhibition changed", entry["msg"])
	assert.Equal(t, log.InfoLevel, logger.Logger.GetLevel())
}

func TestDescriptorFor(t *testing.T) {
	var buf bytes.Buffer
	swapLogger(t, &buf)

	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.LogFormat = "json"

	desc := harness.DescriptorFor(cfg)
	assert.Equal(t, harness.IntegrationVersion, desc.Version)
	assert.True(t, desc.Has(inhibitor.ManagerInterface))

	cfg.Extensions.Disabled = []string{inhibitor.ManagerInterface}
	assert.Empty(t, harness.DescriptorFor(cfg).Extensions)

	// The shared logger was not reconfigured.
	assert.Equal(t, log.InfoLevel, logger.Logger.GetLevel())
	logger.Info("still text")
	assert.NotContains(t, buf.String(), "{")
	assert.Contains(t, buf.String(), "still text")
}
