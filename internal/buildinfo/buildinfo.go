package buildinfo

import "runtime/debug"

// Version is set at build time via -ldflags.
var Version = "dev"

// Commit is set at build time via -ldflags.
var Commit = "unknown"

// Date is set at build time via -ldflags.
var Date = "unknown"

// Short returns a compact build identifier for UI/logging. Without ldflags it
// falls back to the module version recorded by the Go toolchain.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}

// LineWriter is the subset of a line logger LogBuildVersion needs.
type LineWriter interface {
	WriteLineString(s string)
}

// LogBuildVersion writes the startup build banner.
func LogBuildVersion(w LineWriter) {
	w.WriteLineString(Banner())
}

func Banner() string { return "DingCAD Build: " + Short() }
