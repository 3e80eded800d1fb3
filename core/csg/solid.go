package csg

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// Solid is an immutable, reference-counted boundary representation.
//
// A new Solid holds one reference owned by its creator. Retain adds a
// reference for another owner; Release drops one. When the count reaches zero
// the mesh is dropped and the Solid reads as empty.
type Solid struct {
	mesh atomic.Pointer[BoundaryMesh]
	refs atomic.Int32
}

// NewSolid validates m and wraps it in a Solid holding one reference.
// The Solid takes ownership of m's buffers.
func NewSolid(m BoundaryMesh) (*Solid, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return newSolid(m), nil
}

func newSolid(m BoundaryMesh) *Solid {
	s := &Solid{}
	s.mesh.Store(&m)
	s.refs.Store(1)
	return s
}

// Retain adds a reference and returns s, or nil if s was already released.
func (s *Solid) Retain() *Solid {
	if s == nil {
		return nil
	}
	for {
		n := s.refs.Load()
		if n <= 0 {
			return nil
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return s
		}
	}
}

// Release drops a reference. Extra releases are ignored.
func (s *Solid) Release() {
	if s == nil {
		return
	}
	for {
		n := s.refs.Load()
		if n <= 0 {
			return
		}
		if s.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				s.mesh.Store(nil)
			}
			return
		}
	}
}

// Refs returns the current reference count.
func (s *Solid) Refs() int {
	if s == nil {
		return 0
	}
	return int(s.refs.Load())
}

func (s *Solid) Released() bool { return s.Refs() <= 0 }

// Mesh returns the solid's boundary mesh. The buffers are shared and must not
// be modified. A released solid returns an empty mesh.
func (s *Solid) Mesh() BoundaryMesh {
	if s == nil {
		return BoundaryMesh{}
	}
	if m := s.mesh.Load(); m != nil {
		return *m
	}
	return BoundaryMesh{}
}

func (s *Solid) NumVert() int { return s.Mesh().NumVert() }
func (s *Solid) NumTri() int  { return s.Mesh().NumTri() }

func (s *Solid) Bounds() r3.Box { return s.Mesh().Bounds() }

// Translate returns a copy of s moved by v.
func (s *Solid) Translate(v r3.Vec) (*Solid, error) {
	return s.transform(func(p r3.Vec) r3.Vec { return r3.Add(p, v) }, false)
}

// Rotate returns a copy of s rotated by deg degrees about X, then Y, then Z.
func (s *Solid) Rotate(deg r3.Vec) (*Solid, error) {
	rx := r3.NewRotation(deg.X*math.Pi/180, r3.Vec{X: 1})
	ry := r3.NewRotation(deg.Y*math.Pi/180, r3.Vec{Y: 1})
	rz := r3.NewRotation(deg.Z*math.Pi/180, r3.Vec{Z: 1})
	return s.transform(func(p r3.Vec) r3.Vec {
		return rz.Rotate(ry.Rotate(rx.Rotate(p)))
	}, false)
}

// Scale returns a copy of s scaled per axis. A zero factor is rejected; an
// odd number of negative factors flips triangle winding.
func (s *Solid) Scale(v r3.Vec) (*Solid, error) {
	if v.X == 0 || v.Y == 0 || v.Z == 0 {
		return nil, fmt.Errorf("%w: zero scale factor %v", ErrInvalidPrimitive, v)
	}
	flip := v.X*v.Y*v.Z < 0
	return s.transform(func(p r3.Vec) r3.Vec {
		return r3.Vec{X: p.X * v.X, Y: p.Y * v.Y, Z: p.Z * v.Z}
	}, flip)
}

// Mirror returns a copy of s reflected across the plane through the origin
// with the given normal.
func (s *Solid) Mirror(normal r3.Vec) (*Solid, error) {
	if r3.Norm(normal) == 0 {
		return nil, fmt.Errorf("%w: zero mirror normal", ErrInvalidPrimitive)
	}
	n := r3.Unit(normal)
	return s.transform(func(p r3.Vec) r3.Vec {
		return r3.Sub(p, r3.Scale(2*r3.Dot(p, n), n))
	}, true)
}

func (s *Solid) transform(f func(r3.Vec) r3.Vec, flip bool) (*Solid, error) {
	if s.Released() {
		return nil, ErrReleased
	}
	out := s.Mesh().clone()
	for i := 0; i < out.NumVert(); i++ {
		off := i * out.NumProp
		p := f(out.Position(i))
		out.VertProperties[off+0] = float32(p.X)
		out.VertProperties[off+1] = float32(p.Y)
		out.VertProperties[off+2] = float32(p.Z)
	}
	if flip {
		for i := 0; i+2 < len(out.TriVerts); i += 3 {
			out.TriVerts[i+1], out.TriVerts[i+2] = out.TriVerts[i+2], out.TriVerts[i+1]
		}
	}
	return newSolid(out), nil
}
