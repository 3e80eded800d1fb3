package hal

import (
	"go.uber.org/zap"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

type hostHAL struct {
	logger *zapLogger
	fb     *hostFramebuffer
	kbd    *hostKeyboard
}

func newHostHAL(width, height int, l *zap.Logger) *hostHAL {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &hostHAL{
		logger: NewLogger(l).(*zapLogger),
		fb:     newHostFramebuffer(width, height),
		kbd:    newHostKeyboard(),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type zapLogger struct {
	l *zap.Logger
}

// NewLogger adapts l to the line-oriented HAL logger. A nil l discards.
func NewLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{l: l.WithOptions(zap.AddCallerSkip(1))}
}

func (l *zapLogger) WriteLineString(s string) { l.l.Info(s) }
func (l *zapLogger) WriteLineBytes(b []byte)  { l.l.Info(string(b)) }
