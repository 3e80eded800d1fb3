// Package app is the per-frame host application: it feeds posted scene
// source to the reload controller, renders the active mesh and draws the
// status line.
package app

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/wes321/dingcad/core/quarkgl"
	"github.com/wes321/dingcad/core/reload"
	"github.com/wes321/dingcad/core/script"
	"github.com/wes321/dingcad/hal"
	"github.com/wes321/dingcad/internal/buildinfo"
	"github.com/wes321/dingcad/internal/inbox"
)

// meshSlots bounds the scene's device meshes. Only one is live at a time.
const meshSlots = 4

const (
	orbitStep float32 = math32.Pi / 12
	zoomStep  float32 = 0.5
)

type Option func(*App)

func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

// WithRuntime supplies the script runtime instead of building one.
func WithRuntime(rt *script.Runtime) Option {
	return func(a *App) { a.rt = rt }
}

type App struct {
	h   hal.HAL
	cfg Config
	log *zap.Logger

	rt       *script.Runtime
	inbox    inbox.Slot
	scene    *quarkgl.Scene
	disp     *display
	ctl      *reload.Controller
	renderer *quarkgl.Renderer
	orbit    quarkgl.OrbitController
	keys     <-chan hal.KeyEvent
}

// display is the render device seen by the controller. It is ready once the
// host has a framebuffer.
type display struct {
	*quarkgl.Scene
	ready bool
}

func (d *display) Ready() bool { return d.ready }

func New(h hal.HAL, cfg Config, opts ...Option) (*App, error) {
	a := &App{
		h:     h,
		cfg:   cfg,
		log:   zap.NewNop(),
		scene: quarkgl.CreateScene(meshSlots),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.rt == nil {
		res, err := script.NewResolver()
		if err != nil {
			return nil, fmt.Errorf("app: module store: %w", err)
		}
		if dir := cfg.Library.Dir; dir != "" {
			n, err := res.LoadDir(dir)
			if err != nil {
				return nil, fmt.Errorf("app: load library %s: %w", dir, err)
			}
			a.log.Info("library loaded", zap.String("dir", dir), zap.Int("modules", n))
		}
		a.rt = script.New(
			script.WithLogger(a.log.Named("script")),
			script.WithResolver(res),
		)
	}

	a.disp = &display{Scene: a.scene}
	a.ctl = reload.New(reload.Config{
		Runtime: a.rt,
		Display: a.disp,
		Logger:  a.log.Named("reload"),
	})

	w, ht := cfg.Window.Width, cfg.Window.Height
	if fb := a.framebuffer(); fb != nil {
		w, ht = fb.Width(), fb.Height()
	}
	a.renderer = quarkgl.NewRenderer(w, ht)
	a.orbit = quarkgl.OrbitFrom(a.scene.Camera)
	a.orbit.MinRadius, a.orbit.MaxRadius = 0.5, 50

	if in := h.Input(); in != nil {
		if kbd := in.Keyboard(); kbd != nil {
			a.keys = kbd.Events()
		}
	}
	return a, nil
}

// LoadSceneFromCode queues code for the next frame. It may be called from
// any goroutine; only the newest unconsumed code is loaded.
func (a *App) LoadSceneFromCode(code string) {
	seq := a.inbox.Post(code)
	a.log.Debug("scene posted", zap.Uint64("seq", seq), zap.Int("bytes", len(code)))
}

// StatusMessage returns the latest load outcome. Safe from any goroutine.
func (a *App) StatusMessage() string { return a.ctl.Status() }

// Step runs one frame.
func (a *App) Step() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = a.panicked(p, debug.Stack())
		}
	}()

	if err := a.pollKeys(); err != nil {
		return err
	}

	if !a.rt.Ready() {
		if err := a.rt.Initialize(); err != nil && !errors.Is(err, script.ErrAlreadyInitialized) {
			return fmt.Errorf("app: initialize runtime: %w", err)
		}
		buildinfo.LogBuildVersion(a.h.Logger())
	}

	fb := a.framebuffer()
	a.disp.ready = fb != nil

	if src, ok := a.inbox.Take(); ok {
		a.ctl.RequestLoad(src)
	}
	a.ctl.ReconcileTick()

	if fb == nil {
		return nil
	}
	img := fb.Image()
	a.renderer.Render(&quarkgl.RGBATarget{Img: img}, a.scene)
	drawStatus(img, a.ctl.Status())
	return fb.Present()
}

func (a *App) pollKeys() error {
	if a.keys == nil {
		return nil
	}
	for {
		select {
		case ev := <-a.keys:
			if !ev.Press {
				continue
			}
			switch {
			case ev.Code == hal.KeyEscape:
				return hal.ErrQuit
			case ev.Code == hal.KeyF5, ev.Rune == 'r', ev.Rune == 'R':
				a.reloadLast()
			case ev.Code == hal.KeyLeft:
				a.orbit.Rotate(-orbitStep, 0)
			case ev.Code == hal.KeyRight:
				a.orbit.Rotate(orbitStep, 0)
			case ev.Code == hal.KeyUp:
				a.orbit.Rotate(0, orbitStep)
			case ev.Code == hal.KeyDown:
				a.orbit.Rotate(0, -orbitStep)
			case ev.Rune == '+', ev.Rune == '=':
				a.orbit.Zoom(-zoomStep)
			case ev.Rune == '-':
				a.orbit.Zoom(zoomStep)
			default:
				continue
			}
			a.orbit.Apply(&a.scene.Camera)
		default:
			return nil
		}
	}
}

// reloadLast re-posts the most recent source, if any was ever posted.
func (a *App) reloadLast() {
	src, seq := a.inbox.Last()
	if seq == 0 {
		return
	}
	a.log.Info("reload requested from keyboard")
	a.inbox.Post(src)
}

func (a *App) framebuffer() hal.Framebuffer {
	d := a.h.Display()
	if d == nil {
		return nil
	}
	return d.Framebuffer()
}

// Close releases the active scene and shuts the runtime down.
func (a *App) Close() {
	a.ctl.Close()
	a.rt.Shutdown()
}
