package quarkgl

// Renderer is a fixed-pipeline software renderer.
//
// Create it once and reuse it; the depth buffer is resized on demand.
type Renderer struct {
	ClearColor Color
	Depth      bool

	depthBuf []float32
}

func NewRenderer(w, h int) *Renderer {
	r := &Renderer{ClearColor: RayWhite, Depth: true}
	r.ensureDepth(w, h)
	return r
}

func (r *Renderer) ensureDepth(w, h int) {
	if !r.Depth || w <= 0 || h <= 0 {
		r.depthBuf = nil
		return
	}
	if cap(r.depthBuf) < w*h {
		r.depthBuf = make([]float32, w*h)
		return
	}
	r.depthBuf = r.depthBuf[:w*h]
}

// Render clears t, draws the grid and then every enabled mesh in s.
func (r *Renderer) Render(t Target, s *Scene) {
	if r == nil || t == nil || s == nil {
		return
	}
	w, h := t.Size()
	if w <= 0 || h <= 0 {
		return
	}
	t.Clear(r.ClearColor)
	r.ensureDepth(w, h)
	for i := range r.depthBuf {
		r.depthBuf[i] = 1
	}

	vp := Mat4Mul(s.Camera.Projection(float32(w)/float32(h)), s.Camera.View())

	if s.Grid.Enabled {
		r.renderGrid(t, w, h, vp, s.Grid)
	}
	s.eachMesh(func(m *Mesh) {
		if m.Enabled {
			r.renderMesh(t, w, h, vp, m)
		}
	})
}

func (r *Renderer) renderGrid(t Target, w, h int, vp Mat4, g Grid) {
	if g.Slices <= 0 || g.Spacing <= 0 {
		return
	}
	half := g.Slices / 2
	ext := float32(half) * g.Spacing
	for i := -half; i <= half; i++ {
		c := g.Color
		if i == 0 {
			c = g.Axis
		}
		o := float32(i) * g.Spacing
		r.drawLine3D(t, w, h, vp, V3(o, 0, -ext), V3(o, 0, ext), c)
		r.drawLine3D(t, w, h, vp, V3(-ext, 0, o), V3(ext, 0, o), c)
	}
}

func (r *Renderer) renderMesh(t Target, w, h int, vp Mat4, m *Mesh) {
	n := len(m.Vertices)
	if n == 0 || len(m.Indices) < 3 {
		return
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := int(m.Indices[i]), int(m.Indices[i+1]), int(m.Indices[i+2])
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		v0, v1, v2 := m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]

		p0 := project(vp, v0.Pos)
		p1 := project(vp, v1.Pos)
		p2 := project(vp, v2.Pos)
		// Triangles crossing the near plane are dropped.
		if behindNear(p0) || behindNear(p1) || behindNear(p2) {
			continue
		}

		s0 := toScreen(p0, w, h)
		s1 := toScreen(p1, w, h)
		s2 := toScreen(p2, w, h)
		r.fillTriangle(t, w, h, s0, v0.Color, s1, v1.Color, s2, v2.Color)
	}
}

type screenPoint struct {
	X, Y int
	Z    float32 // depth in [0,1]
}

func project(vp Mat4, p Vec3) Vec4 {
	return Mat4MulV4(vp, Vec4{X: p.X, Y: p.Y, Z: p.Z, W: 1})
}

func behindNear(p Vec4) bool { return p.Z+p.W < 0 || p.W <= 0 }

func toScreen(p Vec4, w, h int) screenPoint {
	inv := 1 / p.W
	x := p.X * inv
	y := p.Y * inv
	z := p.Z * inv
	return screenPoint{
		X: int((x*0.5+0.5)*float32(w-1) + 0.5),
		Y: int((1-(y*0.5+0.5))*float32(h-1) + 0.5),
		Z: clampF32(z*0.5+0.5, 0, 1),
	}
}

// depthTest reports whether z is nearer than the stored depth and records it.
func (r *Renderer) depthTest(w, x, y int, z float32) bool {
	if r.depthBuf == nil {
		return true
	}
	idx := y*w + x
	if idx < 0 || idx >= len(r.depthBuf) {
		return false
	}
	if z >= r.depthBuf[idx] {
		return false
	}
	r.depthBuf[idx] = z
	return true
}

func (r *Renderer) drawLine3D(t Target, w, h int, vp Mat4, a, b Vec3, c Color) {
	pa, pb := project(vp, a), project(vp, b)
	da, db := pa.Z+pa.W, pb.Z+pb.W
	if da < 0 && db < 0 {
		return
	}
	// Clip the segment to the near plane (z = -w) in clip space.
	if da < 0 || db < 0 {
		k := da / (da - db)
		mid := Vec4{
			X: pa.X + (pb.X-pa.X)*k,
			Y: pa.Y + (pb.Y-pa.Y)*k,
			Z: pa.Z + (pb.Z-pa.Z)*k,
			W: pa.W + (pb.W-pa.W)*k,
		}
		if da < 0 {
			pa = mid
		} else {
			pb = mid
		}
	}
	if pa.W <= 0 || pb.W <= 0 {
		return
	}
	r.drawLine(t, w, h, toScreen(pa, w, h), toScreen(pb, w, h), c)
}

func (r *Renderer) drawLine(t Target, w, h int, a, b screenPoint, c Color) {
	ax, ay := float32(a.X), float32(a.Y)
	dxf, dyf := float32(b.X)-ax, float32(b.Y)-ay
	t0, t1, ok := clipLine(ax, ay, float32(b.X), float32(b.Y), float32(w-1), float32(h-1))
	if !ok {
		return
	}
	ix0, iy0 := int(ax+t0*dxf+0.5), int(ay+t0*dyf+0.5)
	ix1, iy1 := int(ax+t1*dxf+0.5), int(ay+t1*dyf+0.5)
	// Depth follows the visible span, not the unclipped endpoints.
	za, zb := a.Z+(b.Z-a.Z)*t0, a.Z+(b.Z-a.Z)*t1

	dx := absInt(ix1 - ix0)
	sx := -1
	if ix0 < ix1 {
		sx = 1
	}
	dy := -absInt(iy1 - iy0)
	sy := -1
	if iy0 < iy1 {
		sy = 1
	}
	steps := max(dx, -dy)
	err := dx + dy
	for i := 0; ; i++ {
		z := za
		if steps > 0 {
			z = za + (zb-za)*float32(i)/float32(steps)
		}
		if r.depthTest(w, ix0, iy0, z) {
			t.SetPixel(ix0, iy0, c)
		}
		if ix0 == ix1 && iy0 == iy1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			ix0 += sx
		}
		if e2 <= dx {
			err += dx
			iy0 += sy
		}
	}
}

// clipLine clips a segment to [0,maxX]x[0,maxY] (Liang-Barsky) and returns
// the visible parameter range [t0,t1] along it.
func clipLine(x0, y0, x1, y1, maxX, maxY float32) (t0, t1 float32, ok bool) {
	t0, t1 = 0, 1
	dx, dy := x1-x0, y1-y0
	edges := [4][2]float32{
		{-dx, x0},
		{dx, maxX - x0},
		{-dy, y0},
		{dy, maxY - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, false
			}
			continue
		}
		k := q / p
		if p < 0 {
			if k > t1 {
				return 0, 0, false
			}
			if k > t0 {
				t0 = k
			}
		} else {
			if k < t0 {
				return 0, 0, false
			}
			if k < t1 {
				t1 = k
			}
		}
	}
	return t0, t1, true
}

func (r *Renderer) fillTriangle(t Target, w, h int, p0 screenPoint, c0 Color, p1 screenPoint, c1 Color, p2 screenPoint, c2 Color) {
	minX, maxX := max(min(p0.X, p1.X, p2.X), 0), min(max(p0.X, p1.X, p2.X), w-1)
	minY, maxY := max(min(p0.Y, p1.Y, p2.Y), 0), min(max(p0.Y, p1.Y, p2.Y), h-1)
	if minX > maxX || minY > maxY {
		return
	}

	area := edgeFn(p0.X, p0.Y, p1.X, p1.Y, p2.X, p2.Y)
	if area == 0 {
		return
	}
	// Both windings are drawn; the sign only orients the edge tests.
	sign := 1
	if area < 0 {
		sign = -1
	}
	invArea := 1 / float32(area*sign)

	r0, g0, b0 := float32(c0.R), float32(c0.G), float32(c0.B)
	r1, g1, b1 := float32(c1.R), float32(c1.G), float32(c1.B)
	r2, g2, b2 := float32(c2.R), float32(c2.G), float32(c2.B)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			w0 := sign * edgeFn(p1.X, p1.Y, p2.X, p2.Y, x, y)
			w1 := sign * edgeFn(p2.X, p2.Y, p0.X, p0.Y, x, y)
			w2 := sign * edgeFn(p0.X, p0.Y, p1.X, p1.Y, x, y)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			a0 := float32(w0) * invArea
			a1 := float32(w1) * invArea
			a2 := float32(w2) * invArea
			if !r.depthTest(w, x, y, a0*p0.Z+a1*p1.Z+a2*p2.Z) {
				continue
			}
			t.SetPixel(x, y, Color{
				R: uint8(clampF32(a0*r0+a1*r1+a2*r2, 0, 255)),
				G: uint8(clampF32(a0*g0+a1*g1+a2*g2, 0, 255)),
				B: uint8(clampF32(a0*b0+a1*b1+a2*b2, 0, 255)),
				A: 0xFF,
			})
		}
	}
}

func edgeFn(x0, y0, x1, y1, x, y int) int {
	return (x-x0)*(y1-y0) - (y-y0)*(x1-x0)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
