package main

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfigHome(t *testing.T) string {
	if runtime.GOOS == "windows" {
		t.Skip("config directory is not redirectable")
	}
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	return dir
}

func TestConfigRoundTrip(t *testing.T) {
	useConfigHome(t)
	cfg, err := loadConfig("work")
	require.NoError(t, err)
	assert.Empty(t, cfg.Relay)
	assert.Equal(t, "config-work.json", filepath.Base(cfg.path))

	cfg.Relay = "wss://groups.example.com"
	cfg.Group = "pizza"
	cfg.General = []string{"wss://general.example.com"}
	require.NoError(t, saveConfig(cfg))

	got, err := loadConfig("work")
	require.NoError(t, err)
	assert.Equal(t, "wss://groups.example.com", got.Relay)
	assert.Equal(t, "pizza", got.Group)
	assert.Equal(t, cfg.General, clientConfig(got).General)

	names, err := listProfiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, names)
}

func TestDefaultProfilePath(t *testing.T) {
	useConfigHome(t)
	fp, err := configPath("")
	require.NoError(t, err)
	assert.Equal(t, "config.json", filepath.Base(fp))
	assert.Equal(t, appName, filepath.Base(filepath.Dir(fp)))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abcdef01", short("abcdef0123456789"))
	assert.Equal(t, "abc", short("abc"))
}
