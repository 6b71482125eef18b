package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byut/redback/terminal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	kind, err := cfg.Kind()
	require.NoError(t, err)
	assert.Equal(t, terminal.KindWindowed, kind)
	assert.Equal(t, "> ", cfg.Prompt)
	assert.Equal(t, BellTerminal, cfg.Bell)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, log.InfoLevel, lvl)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend = "passthrough"
terminal = "xterm-256color"
prompt = ""
bell = "audio"

[log]
file = "/tmp/redback.log"
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "passthrough", cfg.Backend)
	assert.Equal(t, "xterm-256color", cfg.Terminal)
	assert.Equal(t, "", cfg.Prompt, "an explicit empty prompt is kept")
	assert.Equal(t, BellAudio, cfg.Bell)
	assert.Equal(t, "/tmp/redback.log", cfg.Log.File)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadKeepsUnsetKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, `bell = "none"`))
	require.NoError(t, err)
	assert.Equal(t, BellNone, cfg.Bell)
	assert.Equal(t, "windowed", cfg.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")

	cfg, err := Load(missing)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadFile(missing)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "syntax", body: `backend = `},
		{name: "unknown key", body: "colour = \"red\""},
		{name: "unknown backend", body: `backend = "gui"`},
		{name: "unknown bell", body: `bell = "loud"`},
		{name: "unknown level", body: "[log]\nlevel = \"chatty\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honored on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/xdg/redback/config.toml", path)
}
