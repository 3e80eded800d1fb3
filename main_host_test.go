package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/wes321/dingcad/app"
)

func TestParseFlagsDefaults(t *testing.T) {
	o, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.False(t, o.enabled)
	assert.Equal(t, 640, o.cfg.Window.Width)
	assert.Equal(t, 640, o.headless.Width)
	assert.Equal(t, "scene.js", o.cfg.Scene.Path)
}

func TestParseFlagsPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dingcad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[window]
width = 800
height = 600

[remote]
enabled = true
addr = "127.0.0.1:9000"
`), 0o644))

	o, err := parseFlags([]string{"-config", path, "-height", "300", "-headless", "-ticks", "5"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 800, o.cfg.Window.Width, "file beats default")
	assert.Equal(t, 300, o.cfg.Window.Height, "explicit flag beats file")
	assert.Equal(t, "127.0.0.1:9000", o.cfg.Remote.Addr)
	assert.True(t, o.cfg.Remote.Enabled)
	assert.True(t, o.enabled)
	assert.EqualValues(t, 5, o.headless.Ticks)
	assert.Equal(t, 300, o.headless.Height)
}

func TestParseFlagsErrors(t *testing.T) {
	_, err := parseFlags([]string{"-config", filepath.Join(t.TempDir(), "none.toml")}, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-width", "0"}, io.Discard)
	assert.ErrorContains(t, err, "invalid config")

	_, err = parseFlags([]string{"-bogus"}, io.Discard)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger(app.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(app.LogConfig{Level: "shout"})
	assert.Error(t, err)
}
