package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type lines []string

func (l *lines) WriteLineString(s string) { *l = append(*l, s) }

func TestShortPrefersVersion(t *testing.T) {
	v, c := Version, Commit
	t.Cleanup(func() { Version, Commit = v, c })

	Version, Commit = "v1.2.3", "abc123"
	assert.Equal(t, "v1.2.3", Short())

	Version = "dev"
	assert.Equal(t, "abc123", Short())
}

func TestLogBuildVersion(t *testing.T) {
	v := Version
	t.Cleanup(func() { Version = v })
	Version = "v0.4.0"

	var got lines
	LogBuildVersion(&got)
	assert.Equal(t, lines{"DingCAD Build: v0.4.0"}, got)
}
