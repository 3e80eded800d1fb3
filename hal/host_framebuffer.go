package hal

import (
	"image"
	"sync"
	"sync/atomic"
)

type hostFramebuffer struct {
	back *image.RGBA

	mu    sync.Mutex
	front []byte

	presents atomic.Uint64
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	back := image.NewRGBA(image.Rect(0, 0, width, height))
	return &hostFramebuffer{
		back:  back,
		front: make([]byte, len(back.Pix)),
	}
}

func (f *hostFramebuffer) Width() int         { return f.back.Rect.Dx() }
func (f *hostFramebuffer) Height() int        { return f.back.Rect.Dy() }
func (f *hostFramebuffer) Image() *image.RGBA { return f.back }

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	pix := f.back.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i+0] = r
		pix[i+1] = g
		pix[i+2] = b
		pix[i+3] = 0xFF
	}
}

func (f *hostFramebuffer) Present() error {
	f.mu.Lock()
	copy(f.front, f.back.Pix)
	f.mu.Unlock()
	f.presents.Add(1)
	return nil
}

// snapshot copies the last presented frame into dst.
func (f *hostFramebuffer) snapshot(dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.front)
}
