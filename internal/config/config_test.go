package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.False(t, cfg.Device.Mock)
	assert.Equal(t, 200*time.Millisecond, cfg.Session.SettleDelay)
	assert.Equal(t, 10*time.Second, cfg.Scan.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Demo.StepPause)
	assert.Equal(t, 5*time.Second, cfg.Demo.PresetPause)
	assert.Equal(t, 19, cfg.Demo.RandomColours)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.File.Filename)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lede.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device:
  mock: true
session:
  settleDelay: 350ms
demo:
  randomColours: 4
logging:
  level: debug
`), 0o644))

	t.Setenv("LEDE_DEMO_STEPPAUSE", "1s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Duration("settle-delay", 200*time.Millisecond, "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--settle-delay=75ms"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.True(t, cfg.Device.Mock)
	assert.Equal(t, 75*time.Millisecond, cfg.Session.SettleDelay, "flag beats file")
	assert.Equal(t, "debug", cfg.Logging.Level, "unset flag does not beat file")
	assert.Equal(t, time.Second, cfg.Demo.StepPause, "env beats default")
	assert.Equal(t, 4, cfg.Demo.RandomColours)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lede.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: [unclosed"), 0o644))

	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "read config")
}
