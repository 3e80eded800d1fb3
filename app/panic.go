package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var panicFont = &proggy.TinySZ8pt7b

// panicked logs a recovered Step panic, paints the panic screen and returns
// the error that ends the run.
func (a *App) panicked(p any, stack []byte) error {
	a.log.Error("frame panicked", zap.Any("panic", p), zap.ByteString("stack", stack))

	lines := []string{
		"DingCAD panic:",
		fmt.Sprintf("panic: %v", p),
	}
	if len(stack) > 0 {
		lines = append(lines, "stack:")
		for _, line := range strings.Split(string(stack), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
	} else {
		lines = append(lines, "stack: unavailable")
	}

	if l := a.h.Logger(); l != nil {
		for _, line := range lines {
			l.WriteLineString(line)
		}
	}

	err := fmt.Errorf("app: panic: %v", p)
	fb := a.framebuffer()
	if fb == nil {
		return err
	}
	drawPanicScreen(fbDisplay{img: fb.Image()}, lines)
	// The frame that panicked may have left the framebuffer mid-draw.
	func() {
		defer func() { _ = recover() }()
		_ = fb.Present()
	}()
	return err
}

func drawPanicScreen(d fbDisplay, lines []string) {
	if d.img == nil {
		return
	}
	for i := range d.img.Pix {
		d.img.Pix[i] = 0xFF
	}

	fontHeight := int16(panicFont.GetYAdvance())
	_, outboxWidth := tinyfont.LineWidth(panicFont, "0")
	fontWidth := int16(outboxWidth)
	if fontWidth <= 0 || fontHeight <= 0 {
		return
	}

	fg := color.RGBA{A: 255}
	maxW, maxH := d.Size()
	cols := maxW / fontWidth
	if cols <= 0 {
		cols = 1
	}

	y := fontHeight
	for _, line := range lines {
		for len(line) > 0 {
			if y > maxH {
				return
			}
			chunk, rest := takeRunes(line, cols)
			tinyfont.WriteLine(d, panicFont, 0, y, chunk, fg)
			y += fontHeight
			line = strings.TrimLeft(rest, " \t")
		}
	}
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
