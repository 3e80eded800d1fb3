// Package reload reconciles scene loads with the render loop.
//
// A Controller holds at most one pending request, one geometry handle and one
// render mesh; a replacement briefly occupies a second device slot when one
// is free. RequestLoad and ReconcileTick must be called from the render
// thread; Status and State may be read from anywhere.
package reload

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wes321/dingcad/core/csg"
	"github.com/wes321/dingcad/core/meshgen"
	"github.com/wes321/dingcad/core/script"
)

// Loader evaluates scene source. *script.Runtime satisfies it.
type Loader interface {
	Ready() bool
	LoadScene(src string) (*csg.Solid, error)
}

var _ Loader = (*script.Runtime)(nil)

// Display is the render device meshes are installed into.
type Display interface {
	meshgen.Device
	Ready() bool
}

type State int32

const (
	StateIdle State = iota
	StateLoadPending
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoadPending:
		return "LoadPending"
	case StateLoaded:
		return "Loaded"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// PendingRequest is a load not yet consumed.
type PendingRequest struct {
	Source  string
	Pending bool
}

const (
	StatusReady   = "Ready"
	StatusLoading = "Loading..."

	errorPrefix          = "Error: "
	statusNotInitialized = errorPrefix + "Runtime not initialized"
)

type Config struct {
	Runtime Loader
	Display Display
	Logger  *zap.Logger
}

type Controller struct {
	rt   Loader
	disp Display
	log  *zap.Logger

	status   atomic.Pointer[string]
	state    atomic.Int32
	revision atomic.Uint64

	pending PendingRequest
	handle  *csg.Solid
	mesh    *meshgen.RenderMesh
	// derived is set once the current handle has been turned into a mesh,
	// or has failed to.
	derived bool
}

func New(cfg Config) *Controller {
	c := &Controller{
		rt:   cfg.Runtime,
		disp: cfg.Display,
		log:  cfg.Logger,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// RequestLoad replaces any unconsumed request with src and, if the runtime
// is ready, loads it now. Otherwise the request waits for ReconcileTick.
func (c *Controller) RequestLoad(src string) {
	c.pending = PendingRequest{Source: src, Pending: true}
	c.setState(StateLoadPending)
	c.setStatus(StatusLoading)

	if !c.rt.Ready() {
		c.setStatus(statusNotInitialized)
		c.log.Debug("load deferred until runtime is ready", zap.Int("bytes", len(src)))
		return
	}
	c.load()
}

// ReconcileTick runs once per frame. It performs a load deferred by an
// unready runtime and derives the mesh for a handle that arrived before the
// display was ready.
func (c *Controller) ReconcileTick() {
	if c.pending.Pending && c.rt.Ready() {
		c.log.Debug("catch-up load")
		c.load()
	}
	if c.handle != nil && !c.derived && c.disp.Ready() {
		c.install()
	}
}

func (c *Controller) load() {
	solid, err := c.rt.LoadScene(c.pending.Source)
	if err != nil {
		c.setStatus(errorPrefix + err.Error())
		c.setState(StateFailed)
		c.log.Info("scene load failed", zap.Error(err))
	} else {
		c.handle.Release()
		c.handle = solid
		c.derived = false
		c.setStatus(script.SuccessMessage)
		c.setState(StateLoaded)
		c.log.Info("scene loaded", zap.Int("vertices", solid.NumVert()), zap.Int("triangles", solid.NumTri()))
		if c.disp.Ready() {
			c.install()
		}
	}
	c.pending.Pending = false
}

// install replaces the active mesh with one derived from the current handle.
// A synthesis or upload error keeps the old mesh on the display. The
// predecessor gives up its slot only when the device has no other room, and
// is uploaded again if the successor still does not fit.
func (c *Controller) install() {
	c.derived = true
	next, err := meshgen.Synthesize(c.handle.Mesh())
	if err != nil {
		c.fail("mesh synthesis failed", err)
		return
	}
	prev := c.mesh
	err = next.Upload(c.disp)
	if errors.Is(err, meshgen.ErrDeviceFull) && prev.Uploaded() {
		prev.Release()
		if err = next.Upload(c.disp); err != nil {
			if rerr := prev.Upload(c.disp); rerr != nil {
				c.log.Warn("previous mesh lost", zap.Error(rerr))
				c.mesh = nil
				c.revision.Add(1)
			}
		}
	}
	if err != nil {
		c.fail("mesh upload failed", err)
		return
	}
	prev.Release()
	c.mesh = next
	c.revision.Add(1)
	c.log.Debug("mesh installed", zap.Int("device_id", next.DeviceID()), zap.Int("triangles", next.TriangleCount()))
}

func (c *Controller) fail(what string, err error) {
	c.setStatus(errorPrefix + err.Error())
	c.setState(StateFailed)
	c.log.Warn(what, zap.Error(err))
}

func (c *Controller) setStatus(s string) {
	c.status.Store(&s)
	c.revision.Add(1)
}

func (c *Controller) setState(s State) { c.state.Store(int32(s)) }

// Status returns the latest outcome text, "Ready" before any request.
func (c *Controller) Status() string {
	if s := c.status.Load(); s != nil && *s != "" {
		return *s
	}
	return StatusReady
}

func (c *Controller) State() State { return State(c.state.Load()) }

// Revision changes whenever the status or the active mesh changes.
func (c *Controller) Revision() uint64 { return c.revision.Load() }

func (c *Controller) Pending() PendingRequest { return c.pending }

// Handle returns the current geometry handle without adding a reference.
func (c *Controller) Handle() *csg.Solid { return c.handle }

// ActiveMesh returns the installed mesh, or nil.
func (c *Controller) ActiveMesh() *meshgen.RenderMesh { return c.mesh }

// Close releases the mesh and the handle and returns to Idle.
func (c *Controller) Close() {
	c.mesh.Release()
	c.mesh = nil
	c.handle.Release()
	c.handle = nil
	c.derived = false
	c.pending = PendingRequest{}
	c.setState(StateIdle)
}
