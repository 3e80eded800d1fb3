package quarkgl

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMat4MulIdentity(t *testing.T) {
	a := Mat4Identity()
	b := Mat4LookAt(V3(1, 2, 3), V3(0, 0, 0), V3(0, 1, 0))
	assert.Equal(t, b, Mat4Mul(a, b))
	assert.Equal(t, b, Mat4Mul(b, a))
}

func TestLookAtNotIdentity(t *testing.T) {
	m := Mat4LookAt(V3(0, 0, 3), V3(0, 0, 0), V3(0, 1, 0))
	assert.NotEqual(t, Mat4Identity(), m)
}

func TestCameraTargetProjectsToCenter(t *testing.T) {
	cam := DefaultCamera()
	vp := Mat4Mul(cam.Projection(1), cam.View())
	p := project(vp, cam.Target)
	require.Greater(t, p.W, float32(0))
	assert.InDelta(t, 0, p.X/p.W, 1e-5)
	assert.InDelta(t, 0, p.Y/p.W, 1e-5)
	assert.False(t, behindNear(p))
	assert.True(t, behindNear(project(vp, cam.Position.Add(cam.Position.Sub(cam.Target)))))
}

func TestSceneSlots(t *testing.T) {
	s := CreateScene(2)
	a := s.AddMesh(Mesh{})
	b := s.AddMesh(Mesh{})
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, -1, s.AddMesh(Mesh{}))
	assert.Equal(t, 2, s.MeshCount())

	s.RemoveMesh(a)
	s.RemoveMesh(7)
	assert.Equal(t, 1, s.MeshCount())
	_, ok := s.Mesh(a)
	assert.False(t, ok)
	m, ok := s.Mesh(b)
	require.True(t, ok)
	assert.True(t, m.Enabled)

	assert.Equal(t, 0, s.AddMesh(Mesh{}))
}

func TestClipLine(t *testing.T) {
	_, _, ok := clipLine(-10, -10, -5, -1, 99, 99)
	assert.False(t, ok)

	t0, t1, ok := clipLine(-50, 50, 150, 50, 99, 99)
	require.True(t, ok)
	assert.InDelta(t, 0.25, t0, 1e-4)
	assert.InDelta(t, 0.745, t1, 1e-4)

	t0, t1, ok = clipLine(10, 10, 20, 20, 99, 99)
	require.True(t, ok)
	assert.Equal(t, float32(0), t0)
	assert.Equal(t, float32(1), t1)
}

func TestClippedLineDepthFollowsVisibleSpan(t *testing.T) {
	const w, h = 10, 10
	r := NewRenderer(w, h)
	for i := range r.depthBuf {
		r.depthBuf[i] = 1
	}
	tg := newTarget(w, h)
	// Nine tenths of the segment lies left of the viewport.
	r.drawLine(tg, w, h, screenPoint{X: -90, Y: 5, Z: 0}, screenPoint{X: 9, Y: 5, Z: 1}, RGB(255, 0, 0))

	assert.InDelta(t, 0.909, r.depthBuf[5*w+0], 0.02)
	assert.InDelta(t, 1.0, r.depthBuf[5*w+8], 0.02)
	assert.Greater(t, r.depthBuf[5*w+4], r.depthBuf[5*w+0])
}

func newTarget(w, h int) *RGBATarget {
	return &RGBATarget{Img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func pixel(tg *RGBATarget, x, y int) Color {
	c := tg.Img.RGBAAt(x, y)
	return Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

func TestRenderGridOnBackground(t *testing.T) {
	tg := newTarget(64, 64)
	s := CreateScene(1)
	NewRenderer(64, 64).Render(tg, s)

	assert.Equal(t, RayWhite, pixel(tg, 0, 0))

	grid := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := pixel(tg, x, y)
			if c == s.Grid.Color || c == s.Grid.Axis {
				grid++
			}
		}
	}
	assert.Greater(t, grid, 0)
}

func TestRenderMeshInFrontOfGrid(t *testing.T) {
	red := RGB(255, 0, 0)
	// A triangle centered on the camera target, facing the camera.
	s := CreateScene(1)
	id := s.AddMesh(Mesh{
		Vertices: []Vertex{
			{Pos: V3(2, 2.5, -4), Color: red},
			{Pos: V3(2, -3.5, 2), Color: red},
			{Pos: V3(-4, 2.5, 2), Color: red},
		},
		Indices: []uint16{0, 1, 2},
	})
	require.Equal(t, 0, id)

	tg := newTarget(32, 32)
	NewRenderer(32, 32).Render(tg, s)
	c := pixel(tg, 16, 16)
	assert.Greater(t, c.R, uint8(250))
	assert.Less(t, c.G, uint8(5))

	s.RemoveMesh(id)
	NewRenderer(32, 32).Render(tg, s)
	c = pixel(tg, 16, 16)
	assert.NotEqual(t, uint8(0), c.G)
}

func TestRGBATargetClips(t *testing.T) {
	tg := newTarget(4, 4)
	tg.Clear(DarkGray)
	tg.SetPixel(-1, 0, LightGray)
	tg.SetPixel(4, 4, LightGray)
	tg.SetPixel(1, 2, LightGray)
	assert.Equal(t, DarkGray, pixel(tg, 0, 0))
	assert.Equal(t, LightGray, pixel(tg, 1, 2))
	w, h := tg.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)
}

func TestOrbitFromReproducesCamera(t *testing.T) {
	cam := DefaultCamera()
	o := OrbitFrom(cam)

	got := cam
	o.Apply(&got)
	assert.InDelta(t, cam.Position.X, got.Position.X, 1e-4)
	assert.InDelta(t, cam.Position.Y, got.Position.Y, 1e-4)
	assert.InDelta(t, cam.Position.Z, got.Position.Z, 1e-4)
	assert.Equal(t, cam.Target, got.Target)
}

func TestOrbitRotateAndZoom(t *testing.T) {
	o := OrbitController{Radius: 2, MinRadius: 1, MaxRadius: 4}
	o.Rotate(0, 10)
	assert.Less(t, o.Pitch, float32(1.6))

	var cam Camera
	o.Apply(&cam)
	assert.InDelta(t, 2, Len(cam.Position), 1e-4)
	assert.Greater(t, cam.Position.Y, float32(1.9))
	assert.Equal(t, V3(0, 1, 0), cam.Up)

	o.Zoom(-5)
	assert.Equal(t, float32(1), o.Radius)
	o.Zoom(10)
	assert.Equal(t, float32(4), o.Radius)
}
