package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestExportWritesSTL(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scene.js")
	write(t, filepath.Join(dir, "lib", "peg.js"), `exports.peg = () => require("csg").cube(2);`)
	write(t, in, `exports.scene = require("./lib/peg.js").peg();`)
	out := filepath.Join(dir, "scene.stl")

	n, err := export(in, out, "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	fi, err := os.Stat(out)
	require.NoError(t, err)
	assert.EqualValues(t, 84+50*12, fi.Size())
}

func TestExportLibDir(t *testing.T) {
	dir := t.TempDir()
	lib := t.TempDir()
	write(t, filepath.Join(lib, "shapes.js"), `exports.ball = () => require("csg").sphere(3, 8);`)
	in := filepath.Join(dir, "scene.js")
	write(t, in, `exports.scene = require("./shapes.js").ball();`)

	n, err := export(in, filepath.Join(dir, "ball.stl"), lib, zap.NewNop())
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestExportReportsLoadError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scene.js")
	write(t, in, `const x = 1;`)
	out := filepath.Join(dir, "scene.stl")

	_, err := export(in, out, "", zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, "MissingExport: Scene module must export 'scene'", err.Error())
	assert.NoFileExists(t, out)

	_, err = export(filepath.Join(dir, "none.js"), out, "", zap.NewNop())
	assert.Error(t, err)
}
