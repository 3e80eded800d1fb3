package app

import (
	"image"
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"

	"github.com/wes321/dingcad/core/quarkgl"
)

const (
	statusX = 10
	statusY = 10
)

var statusFont = &freemono.Regular9pt7b

// fbDisplay lets tinyfont draw into an RGBA framebuffer.
type fbDisplay struct {
	img *image.RGBA
}

var _ drivers.Displayer = fbDisplay{}

func (d fbDisplay) Size() (x, y int16) {
	if d.img == nil {
		return 0, 0
	}
	b := d.img.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

func (d fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.img == nil {
		return
	}
	b := d.img.Bounds()
	d.img.SetRGBA(b.Min.X+int(x), b.Min.Y+int(y), c)
}

func (d fbDisplay) Display() error { return nil }

// drawStatus writes the status line with its top-left corner at
// (statusX, statusY). tinyfont positions text by baseline.
func drawStatus(img *image.RGBA, status string) {
	if img == nil || status == "" {
		return
	}
	baseline := int16(statusY) + int16(statusFont.GetYAdvance())*3/4
	tinyfont.WriteLine(fbDisplay{img: img}, statusFont, statusX, baseline, status, quarkgl.DarkGray.ToRGBA())
}
