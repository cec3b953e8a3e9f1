package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, Default().FlushInterval, cfg.FlushInterval)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Empty(t, cfg.Socket)
	assert.Empty(t, cfg.Extensions.Disabled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cascade.toml")
	data := `
socket = "wayland-test"
flush_interval = "5ms"
log_level = "debug"

[extensions]
disabled = ["zwlr_input_inhibit_manager_v1"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(viper.New(), newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, "wayland-test", cfg.Socket)
	assert.Equal(t, 5*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.ExtensionDisabled("zwlr_input_inhibit_manager_v1"))
	assert.False(t, cfg.ExtensionDisabled("wl_shm"))
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cascade.toml")
	require.NoError(t, os.WriteFile(path, []byte("socket = [unterminated"), 0644))

	_, err := Load(viper.New(), newFlags(t, "--config", path))
	assert.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cascade.toml")
	require.NoError(t, os.WriteFile(path, []byte(`socket = "from-file"`+"\n"+`log_format = "text"`), 0644))
	t.Setenv("CASCADE_SOCKET", "from-env")
	t.Setenv("CASCADE_LOG_FORMAT", "json")

	cfg, err := Load(viper.New(), newFlags(t, "--config", path, "--socket", "from-flag"))
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Socket)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadNilFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, Default().FlushInterval, cfg.FlushInterval)
}
