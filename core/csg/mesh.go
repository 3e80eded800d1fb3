// Package csg is the geometry kernel behind scene scripts: boundary meshes,
// reference-counted solids, primitives, affine transforms and composition.
package csg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrBadStride        = errors.New("csg: vertex stride must be at least 3")
	ErrBadBuffer        = errors.New("csg: malformed mesh buffer")
	ErrIndexOutOfRange  = errors.New("csg: triangle index out of range")
	ErrReleased         = errors.New("csg: solid already released")
	ErrInvalidPrimitive = errors.New("csg: invalid primitive parameters")
	ErrUnsupported      = errors.New("csg: operation not supported by kernel")
)

// BoundaryMesh is a triangle mesh with NumProp float32 properties per vertex.
//
// Properties 0..2 of every vertex are its position (Z up, millimeters). Any
// further properties are opaque channels carried through transforms.
type BoundaryMesh struct {
	NumProp        int
	VertProperties []float32
	TriVerts       []uint32
}

func (m BoundaryMesh) NumVert() int {
	if m.NumProp <= 0 {
		return 0
	}
	return len(m.VertProperties) / m.NumProp
}

func (m BoundaryMesh) NumTri() int { return len(m.TriVerts) / 3 }

// Empty reports whether the mesh has no vertices or no triangles.
func (m BoundaryMesh) Empty() bool { return m.NumVert() <= 0 || m.NumTri() <= 0 }

// Position returns the position of vertex i. It panics if i is out of range.
func (m BoundaryMesh) Position(i int) r3.Vec {
	off := i * m.NumProp
	p := m.VertProperties[off : off+3]
	return r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

// Validate checks buffer shapes and index ranges.
func (m BoundaryMesh) Validate() error {
	if len(m.VertProperties) == 0 && len(m.TriVerts) == 0 {
		return nil
	}
	if m.NumProp < 3 {
		return fmt.Errorf("%w: got %d", ErrBadStride, m.NumProp)
	}
	if len(m.VertProperties)%m.NumProp != 0 {
		return fmt.Errorf("%w: %d properties is not a multiple of stride %d", ErrBadBuffer, len(m.VertProperties), m.NumProp)
	}
	if len(m.TriVerts)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a multiple of 3", ErrBadBuffer, len(m.TriVerts))
	}
	n := uint32(m.NumVert())
	for i, idx := range m.TriVerts {
		if idx >= n {
			return fmt.Errorf("%w: index %d at %d, %d vertices", ErrIndexOutOfRange, idx, i, n)
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the vertex positions.
// An empty mesh yields the zero Box.
func (m BoundaryMesh) Bounds() r3.Box {
	n := m.NumVert()
	if n == 0 {
		return r3.Box{}
	}
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < n; i++ {
		p := m.Position(i)
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return r3.Box{Min: lo, Max: hi}
}

func (m BoundaryMesh) clone() BoundaryMesh {
	out := BoundaryMesh{NumProp: m.NumProp}
	out.VertProperties = append([]float32(nil), m.VertProperties...)
	out.TriVerts = append([]uint32(nil), m.TriVerts...)
	return out
}

type meshBuilder struct {
	props []float32
	tris  []uint32
}

func (b *meshBuilder) vertex(x, y, z float64) uint32 {
	idx := uint32(len(b.props) / 3)
	b.props = append(b.props, float32(x), float32(y), float32(z))
	return idx
}

func (b *meshBuilder) tri(i0, i1, i2 uint32) {
	b.tris = append(b.tris, i0, i1, i2)
}

func (b *meshBuilder) mesh() BoundaryMesh {
	return BoundaryMesh{NumProp: 3, VertProperties: b.props, TriVerts: b.tris}
}
