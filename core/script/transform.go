package script

import (
	"fmt"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// libraryBanner keeps transformed library code off the first line, which the
// module registry shares with its own function wrapper.
const libraryBanner = "// dingcad module"

// transformOptions lowers ES module syntax to CommonJS and embeds a source
// map so stack positions point into the author's text.
func transformOptions(name, banner, footer string) esbuild.TransformOptions {
	return esbuild.TransformOptions{
		Loader:         esbuild.LoaderJS,
		Format:         esbuild.FormatCommonJS,
		Sourcefile:     name,
		Sourcemap:      esbuild.SourceMapInline,
		SourcesContent: esbuild.SourcesContentExclude,
		Banner:         banner,
		Footer:         footer,
	}
}

// toCommonJS transforms the main module, wrapped as a function taking
// (exports, require, module).
func toCommonJS(name, src string) (string, error) {
	return transform(src, transformOptions(name, moduleWrapperHead, moduleWrapperTail))
}

// libraryToCommonJS transforms a module loaded through require.
func libraryToCommonJS(name string, src []byte) ([]byte, error) {
	out, err := transform(string(src), transformOptions(name, libraryBanner, ""))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func transform(src string, opts esbuild.TransformOptions) (string, error) {
	res := esbuild.Transform(src, opts)
	if len(res.Errors) > 0 {
		return "", &syntaxError{file: opts.Sourcefile, msgs: res.Errors}
	}
	return string(res.Code), nil
}

// syntaxError carries the transformer's diagnostics. Positions are 1-based.
type syntaxError struct {
	file string
	msgs []esbuild.Message
}

func (e *syntaxError) Error() string {
	var b strings.Builder
	for i, m := range e.msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		if loc := m.Location; loc != nil {
			file := loc.File
			if file == "" {
				file = e.file
			}
			fmt.Fprintf(&b, "SyntaxError: %s: Line %d:%d %s", file, loc.Line, loc.Column+1, m.Text)
			continue
		}
		fmt.Fprintf(&b, "SyntaxError: %s: %s", e.file, m.Text)
	}
	return b.String()
}
