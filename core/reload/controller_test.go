package reload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wes321/dingcad/core/csg"
	"github.com/wes321/dingcad/core/quarkgl"
	"github.com/wes321/dingcad/core/script"
)

// fakeLoader builds a cube whose edge length is the source's length, and
// fails for sources starting with "!".
type fakeLoader struct {
	ready bool
	calls []string
	made  []*csg.Solid
}

func (l *fakeLoader) Ready() bool { return l.ready }

func (l *fakeLoader) LoadScene(src string) (*csg.Solid, error) {
	l.calls = append(l.calls, src)
	if src[0] == '!' {
		return nil, errors.New(src[1:])
	}
	n := float64(len(src))
	s, err := csg.Cube(r3.Vec{X: n, Y: n, Z: n}, false)
	if err != nil {
		return nil, err
	}
	l.made = append(l.made, s)
	return s, nil
}

type fakeDisplay struct {
	*quarkgl.Scene
	ready bool
	// reject makes the next reject AddMesh calls report a full device.
	reject int
}

func (d *fakeDisplay) Ready() bool { return d.ready }

func (d *fakeDisplay) AddMesh(m quarkgl.Mesh) int {
	if d.reject > 0 {
		d.reject--
		return -1
	}
	return d.Scene.AddMesh(m)
}

func newController(rtReady, dispReady bool) (*Controller, *fakeLoader, *fakeDisplay) {
	rt := &fakeLoader{ready: rtReady}
	disp := &fakeDisplay{Scene: quarkgl.CreateScene(2), ready: dispReady}
	return New(Config{Runtime: rt, Display: disp}), rt, disp
}

func TestInitialStatus(t *testing.T) {
	c, _, _ := newController(true, true)
	assert.Equal(t, "Ready", c.Status())
	assert.Equal(t, StateIdle, c.State())
	assert.Nil(t, c.ActiveMesh())
	assert.Nil(t, c.Handle())
}

func TestSuccessfulLoadInstallsMesh(t *testing.T) {
	c, rt, disp := newController(true, true)
	c.RequestLoad("ab")

	assert.Equal(t, script.SuccessMessage, c.Status())
	assert.Equal(t, StateLoaded, c.State())
	assert.False(t, c.Pending().Pending)
	require.NotNil(t, c.ActiveMesh())
	assert.True(t, c.ActiveMesh().Uploaded())
	assert.Equal(t, 1, disp.MeshCount())
	assert.Equal(t, []string{"ab"}, rt.calls)
	assert.InDelta(t, 2, c.Handle().Bounds().Max.X, 1e-6)
}

func TestFailureKeepsDisplayedMesh(t *testing.T) {
	c, _, disp := newController(true, true)
	c.RequestLoad("good")
	before := c.ActiveMesh()
	require.NotNil(t, before)
	snapshot := *before
	handle := c.Handle()
	beforeID := before.DeviceID()
	stored, ok := disp.Mesh(beforeID)
	require.True(t, ok)

	c.RequestLoad("!Scene module must export 'scene'")

	assert.Equal(t, "Error: Scene module must export 'scene'", c.Status())
	assert.Equal(t, StateFailed, c.State())
	assert.Same(t, before, c.ActiveMesh())
	assert.Equal(t, snapshot, *c.ActiveMesh())
	assert.Same(t, handle, c.Handle())
	assert.False(t, handle.Released())

	after, ok := disp.Mesh(beforeID)
	require.True(t, ok)
	assert.Equal(t, stored, after)
	assert.Equal(t, 1, disp.MeshCount())
}

func TestBackToBackRequestsLastWriteWins(t *testing.T) {
	t.Run("runtime not ready", func(t *testing.T) {
		c, rt, disp := newController(false, true)
		c.RequestLoad("first")
		c.RequestLoad("second!")
		assert.Equal(t, "Error: Runtime not initialized", c.Status())
		assert.Equal(t, StateLoadPending, c.State())
		assert.Equal(t, PendingRequest{Source: "second!", Pending: true}, c.Pending())
		assert.Empty(t, rt.calls)

		rt.ready = true
		c.ReconcileTick()
		assert.Equal(t, []string{"second!"}, rt.calls)
		assert.Equal(t, script.SuccessMessage, c.Status())
		assert.InDelta(t, 7, c.Handle().Bounds().Max.X, 1e-6)
		assert.Equal(t, 1, disp.MeshCount())

		// The request was consumed exactly once.
		c.ReconcileTick()
		assert.Len(t, rt.calls, 1)
	})

	t.Run("runtime ready", func(t *testing.T) {
		c, rt, disp := newController(true, true)
		c.RequestLoad("first")
		first := c.Handle()
		c.RequestLoad("second!")

		assert.True(t, first.Released())
		assert.InDelta(t, 7, c.Handle().Bounds().Max.X, 1e-6)
		assert.Equal(t, 1, disp.MeshCount())
		assert.Len(t, rt.made, 2)
	})
}

func TestDeferredMeshDerivation(t *testing.T) {
	c, _, disp := newController(true, false)
	c.RequestLoad("abc")
	assert.Equal(t, StateLoaded, c.State())
	assert.NotNil(t, c.Handle())
	assert.Nil(t, c.ActiveMesh())
	assert.Equal(t, 0, disp.MeshCount())

	c.ReconcileTick()
	assert.Nil(t, c.ActiveMesh())

	disp.ready = true
	c.ReconcileTick()
	require.NotNil(t, c.ActiveMesh())
	assert.Equal(t, 1, disp.MeshCount())

	id := c.ActiveMesh().DeviceID()
	c.ReconcileTick()
	assert.Equal(t, id, c.ActiveMesh().DeviceID())
	assert.Equal(t, 1, disp.MeshCount())
}

func TestReplacementFitsSingleSlotDevice(t *testing.T) {
	// A single-slot device only fits the successor once the predecessor
	// gives up its slot.
	rt := &fakeLoader{ready: true}
	disp := &fakeDisplay{Scene: quarkgl.CreateScene(1), ready: true}
	c := New(Config{Runtime: rt, Display: disp})

	c.RequestLoad("a")
	c.RequestLoad("bb")
	require.NotNil(t, c.ActiveMesh())
	assert.True(t, c.ActiveMesh().Uploaded())
	assert.Equal(t, 1, disp.MeshCount())
	assert.Equal(t, script.SuccessMessage, c.Status())
}

func TestUploadFailureReportsError(t *testing.T) {
	rt := &fakeLoader{ready: true}
	disp := &fakeDisplay{Scene: quarkgl.CreateScene(1), ready: true}
	disp.AddMesh(quarkgl.Mesh{})
	c := New(Config{Runtime: rt, Display: disp})

	c.RequestLoad("a")
	assert.Equal(t, StateFailed, c.State())
	assert.Contains(t, c.Status(), "Error: ")
	assert.Nil(t, c.ActiveMesh())
	assert.NotNil(t, c.Handle())
}

func TestReplacementKeepsPredecessorWhileDeviceHasRoom(t *testing.T) {
	rt := &fakeLoader{ready: true}
	disp := &fakeDisplay{Scene: quarkgl.CreateScene(2), ready: true}
	c := New(Config{Runtime: rt, Display: disp})

	c.RequestLoad("a")
	first := c.ActiveMesh()
	require.Equal(t, 0, first.DeviceID())

	c.RequestLoad("bb")
	assert.Equal(t, 1, c.ActiveMesh().DeviceID())
	assert.False(t, first.Uploaded())
	assert.Equal(t, 1, disp.MeshCount())
}

func TestFailedReplacementKeepsDisplayedMesh(t *testing.T) {
	rt := &fakeLoader{ready: true}
	disp := &fakeDisplay{Scene: quarkgl.CreateScene(1), ready: true}
	c := New(Config{Runtime: rt, Display: disp})

	c.RequestLoad("a")
	first := c.ActiveMesh()
	require.NotNil(t, first)

	// Neither the first attempt nor the retry after eviction fits.
	disp.reject = 2
	c.RequestLoad("bb")
	assert.Equal(t, StateFailed, c.State())
	assert.Contains(t, c.Status(), "Error: ")
	assert.Same(t, first, c.ActiveMesh())
	assert.True(t, first.Uploaded())
	assert.Equal(t, 1, disp.MeshCount())
	assert.Equal(t, 0, disp.reject)
}

func TestRevisionTracksChanges(t *testing.T) {
	c, _, _ := newController(true, true)
	r0 := c.Revision()
	c.RequestLoad("a")
	r1 := c.Revision()
	assert.Greater(t, r1, r0)
	c.ReconcileTick()
	assert.Equal(t, r1, c.Revision())
}

func TestCloseReleasesEverything(t *testing.T) {
	c, _, disp := newController(true, true)
	c.RequestLoad("abc")
	h := c.Handle()
	c.Close()
	assert.True(t, h.Released())
	assert.Nil(t, c.ActiveMesh())
	assert.Equal(t, 0, disp.MeshCount())
	assert.Equal(t, StateIdle, c.State())
	c.Close()
}

func TestWithScriptRuntime(t *testing.T) {
	rt := script.New()
	disp := &fakeDisplay{Scene: quarkgl.CreateScene(1), ready: true}
	c := New(Config{Runtime: rt, Display: disp})
	defer c.Close()

	c.RequestLoad(`exports.scene = require("csg").cube(10);`)
	assert.Equal(t, "Error: Runtime not initialized", c.Status())

	require.NoError(t, rt.Initialize())
	defer rt.Shutdown()
	c.ReconcileTick()
	assert.Equal(t, "Scene loaded successfully", c.Status())
	require.NotNil(t, c.ActiveMesh())
	assert.Equal(t, 12, c.ActiveMesh().TriangleCount())

	c.RequestLoad(`const csg = require("csg");`)
	assert.Equal(t, "Error: Scene module must export 'scene'", c.Status())
	assert.Equal(t, 12, c.ActiveMesh().TriangleCount())

	c.RequestLoad("")
	assert.Equal(t, "Error: No scene code provided", c.Status())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "LoadPending", StateLoadPending.String())
	assert.Equal(t, "Unknown", State(9).String())
}
