package csg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const DefaultSegments = 24

// Cube returns an axis-aligned box. With center false the box spans
// [0, size] on every axis.
func Cube(size r3.Vec, center bool) (*Solid, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("%w: cube size %v", ErrInvalidPrimitive, size)
	}
	box := r3.Box{Max: size}
	if center {
		half := r3.Scale(0.5, size)
		box = r3.Box{Min: r3.Scale(-1, half), Max: half}
	}

	var b meshBuilder
	for _, v := range box.Vertices() {
		b.vertex(v.X, v.Y, v.Z)
	}
	// Vertices 0-3 wind CCW around the bottom face seen from +Z, 4-7 the top.
	faces := [12][3]uint32{
		{0, 2, 1}, {0, 3, 2}, // -Z
		{4, 5, 6}, {4, 6, 7}, // +Z
		{0, 1, 5}, {0, 5, 4}, // -Y
		{1, 2, 6}, {1, 6, 5}, // +X
		{2, 3, 7}, {2, 7, 6}, // +Y
		{3, 0, 4}, {3, 4, 7}, // -X
	}
	for _, f := range faces {
		b.tri(f[0], f[1], f[2])
	}
	return newSolid(b.mesh()), nil
}

// Sphere returns a UV sphere centered on the origin with single-vertex poles.
func Sphere(radius float64, segments int) (*Solid, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("%w: sphere radius %g", ErrInvalidPrimitive, radius)
	}
	if segments <= 0 {
		segments = DefaultSegments
	}
	if segments < 3 {
		segments = 3
	}
	slices := segments
	rings := segments / 2
	if rings < 2 {
		rings = 2
	}

	var b meshBuilder
	north := b.vertex(0, 0, radius)
	ring := func(i int) uint32 { return uint32(1 + (i-1)*slices) }
	for i := 1; i < rings; i++ {
		phi := math.Pi * float64(i) / float64(rings)
		z := radius * math.Cos(phi)
		rr := radius * math.Sin(phi)
		for j := 0; j < slices; j++ {
			theta := 2 * math.Pi * float64(j) / float64(slices)
			b.vertex(rr*math.Cos(theta), rr*math.Sin(theta), z)
		}
	}
	south := b.vertex(0, 0, -radius)

	next := func(j int) uint32 { return uint32((j + 1) % slices) }
	for j := 0; j < slices; j++ {
		b.tri(north, ring(1)+uint32(j), ring(1)+next(j))
	}
	for i := 1; i < rings-1; i++ {
		up, lo := ring(i), ring(i+1)
		for j := 0; j < slices; j++ {
			a, bb := up+uint32(j), up+next(j)
			d, c := lo+uint32(j), lo+next(j)
			b.tri(a, d, bb)
			b.tri(bb, d, c)
		}
	}
	last := ring(rings - 1)
	for j := 0; j < slices; j++ {
		b.tri(last+uint32(j), south, last+next(j))
	}
	return newSolid(b.mesh()), nil
}

// Cylinder returns a frustum along +Z with bottom radius r1 and top radius r2.
// A zero r2 produces a cone with a single apex vertex.
func Cylinder(height, r1, r2 float64, segments int, center bool) (*Solid, error) {
	if height <= 0 || r1 <= 0 || r2 < 0 {
		return nil, fmt.Errorf("%w: cylinder h=%g r1=%g r2=%g", ErrInvalidPrimitive, height, r1, r2)
	}
	if segments <= 0 {
		segments = DefaultSegments
	}
	if segments < 3 {
		segments = 3
	}
	z0, z1 := 0.0, height
	if center {
		z0, z1 = -height/2, height/2
	}

	var b meshBuilder
	bottomCenter := b.vertex(0, 0, z0)
	top := b.vertex(0, 0, z1)
	bottom := uint32(2)
	for j := 0; j < segments; j++ {
		theta := 2 * math.Pi * float64(j) / float64(segments)
		b.vertex(r1*math.Cos(theta), r1*math.Sin(theta), z0)
	}
	upper := bottom + uint32(segments)
	if r2 > 0 {
		for j := 0; j < segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			b.vertex(r2*math.Cos(theta), r2*math.Sin(theta), z1)
		}
	}

	next := func(j int) uint32 { return uint32((j + 1) % segments) }
	for j := 0; j < segments; j++ {
		bj, bn := bottom+uint32(j), bottom+next(j)
		b.tri(bottomCenter, bn, bj)
		if r2 == 0 {
			b.tri(top, bj, bn)
			continue
		}
		tj, tn := upper+uint32(j), upper+next(j)
		b.tri(top, tj, tn)
		b.tri(tj, bj, tn)
		b.tri(tn, bj, bn)
	}
	return newSolid(b.mesh()), nil
}

// Torus returns a ring around the Z axis.
func Torus(major, minor float64, segU, segV int) (*Solid, error) {
	if major <= 0 || minor <= 0 || minor >= major {
		return nil, fmt.Errorf("%w: torus R=%g r=%g", ErrInvalidPrimitive, major, minor)
	}
	if segU <= 0 {
		segU = DefaultSegments * 2
	}
	if segV <= 0 {
		segV = DefaultSegments
	}
	segU = max(segU, 3)
	segV = max(segV, 3)

	var b meshBuilder
	for u := 0; u < segU; u++ {
		theta := 2 * math.Pi * float64(u) / float64(segU)
		ct, st := math.Cos(theta), math.Sin(theta)
		for v := 0; v < segV; v++ {
			phi := 2 * math.Pi * float64(v) / float64(segV)
			r := major + minor*math.Cos(phi)
			b.vertex(r*ct, r*st, minor*math.Sin(phi))
		}
	}

	idx := func(u, v int) uint32 { return uint32((u%segU)*segV + v%segV) }
	for u := 0; u < segU; u++ {
		for v := 0; v < segV; v++ {
			i0, i1, i2, i3 := idx(u, v), idx(u+1, v), idx(u+1, v+1), idx(u, v+1)
			b.tri(i0, i1, i2)
			b.tri(i0, i2, i3)
		}
	}
	return newSolid(b.mesh()), nil
}
