// Command dingcad-export evaluates a scene script and writes its solid as a
// binary STL file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wes321/dingcad/core/csg"
	"github.com/wes321/dingcad/core/script"
)

func main() {
	var (
		inPath  string
		outPath string
		libDir  string
		verbose bool
	)
	flag.StringVar(&inPath, "in", "", "Scene script to evaluate.")
	flag.StringVar(&outPath, "out", "", "Output STL path (default: input name with .stl).")
	flag.StringVar(&libDir, "lib", "", "Directory of library modules.")
	flag.BoolVar(&verbose, "v", false, "Verbose logging.")
	flag.Parse()

	if inPath == "" {
		fmt.Fprintln(os.Stderr, "error: -in is required")
		os.Exit(2)
	}
	if outPath == "" {
		outPath = strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".stl"
	}

	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			logger = l
		}
	}
	defer func() { _ = logger.Sync() }()

	n, err := export(inPath, outPath, libDir, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d triangles\n", outPath, n)
}

// export loads the scene at inPath and writes it to outPath, returning the
// triangle count.
func export(inPath, outPath, libDir string, logger *zap.Logger) (int, error) {
	src, err := os.ReadFile(inPath)
	if err != nil {
		return 0, err
	}

	res, err := script.NewResolver()
	if err != nil {
		return 0, err
	}
	// The scene's own directory doubles as its library.
	dirs := []string{filepath.Dir(inPath)}
	if libDir != "" {
		dirs = append(dirs, libDir)
	}
	for _, dir := range dirs {
		if _, err := res.LoadDir(dir); err != nil {
			return 0, err
		}
	}

	rt := script.New(script.WithLogger(logger), script.WithResolver(res))
	if err := rt.Initialize(); err != nil {
		return 0, err
	}
	defer rt.Shutdown()

	solid, err := rt.LoadScene(string(src))
	if err != nil {
		var le *script.LoadError
		if errors.As(err, &le) {
			return 0, fmt.Errorf("%s: %s", le.Kind, le.Message)
		}
		return 0, err
	}
	defer solid.Release()

	if err := writeSTL(outPath, solid); err != nil {
		return 0, err
	}
	return solid.NumTri(), nil
}

func writeSTL(path string, s *csg.Solid) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open output %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close output %q: %w", path, cerr)
		}
	}()
	if err := csg.WriteSTL(f, s.Mesh()); err != nil {
		return fmt.Errorf("write STL %q: %w", path, err)
	}
	return nil
}
