package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dingcad.toml", `
[window]
width = 800
title = "Bracket"

[scene]
path = "bracket.js"

[remote]
enabled = true

[log]
level = "debug"
development = true
`)

	cfg, err := LoadConfig(filepath.Join(dir, "dingcad.toml"))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 480, cfg.Window.Height)
	assert.Equal(t, "Bracket", cfg.Window.Title)
	assert.Equal(t, "bracket.js", cfg.Scene.Path)
	assert.True(t, cfg.Scene.Watch)
	assert.True(t, cfg.Remote.Enabled)
	assert.Equal(t, "127.0.0.1:7878", cfg.Remote.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	writeFile(t, dir, "unknown.toml", "[window]\ncolour = 3\n")
	_, err = LoadConfig(filepath.Join(dir, "unknown.toml"))
	assert.Error(t, err)

	writeFile(t, dir, "bad.toml", "[window\n")
	_, err = LoadConfig(filepath.Join(dir, "bad.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero width":     func(c *Config) { c.Window.Width = 0 },
		"zero scale":     func(c *Config) { c.Window.Scale = 0 },
		"zero tps":       func(c *Config) { c.Window.TPS = 0 },
		"watch no path":  func(c *Config) { c.Scene.Path = "" },
		"remote no addr": func(c *Config) { c.Remote.Enabled, c.Remote.Addr = true, "" },
		"bad level":      func(c *Config) { c.Log.Level = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.Scene.Path, cfg.Scene.Watch = "", false
	assert.NoError(t, cfg.Validate())
}
