package csg

import (
	"fmt"

	"github.com/samber/lo"
)

// Kernel composes solids with boolean operations.
type Kernel interface {
	Union(solids ...*Solid) (*Solid, error)
	Difference(a, b *Solid) (*Solid, error)
	Intersection(a, b *Solid) (*Solid, error)
}

// MergeKernel is the built-in kernel. Union concatenates boundary meshes,
// which is exact for disjoint solids and visually correct for overlapping
// ones. Difference and Intersection need a real boolean kernel.
type MergeKernel struct{}

var _ Kernel = MergeKernel{}

func (MergeKernel) Union(solids ...*Solid) (*Solid, error) {
	if _, ok := lo.Find(solids, func(s *Solid) bool { return s.Released() }); ok {
		return nil, ErrReleased
	}
	meshes := lo.Map(solids, func(s *Solid, _ int) BoundaryMesh { return s.Mesh() })

	// Mixed strides collapse to positions only.
	strides := lo.Uniq(lo.Map(meshes, func(m BoundaryMesh, _ int) int { return m.NumProp }))
	stride := 3
	if len(strides) == 1 && strides[0] >= 3 {
		stride = strides[0]
	}

	out := BoundaryMesh{
		NumProp:        stride,
		VertProperties: make([]float32, 0, stride*lo.SumBy(meshes, BoundaryMesh.NumVert)),
		TriVerts:       make([]uint32, 0, 3*lo.SumBy(meshes, BoundaryMesh.NumTri)),
	}
	for _, m := range meshes {
		base := uint32(out.NumVert())
		for i := 0; i < m.NumVert(); i++ {
			off := i * m.NumProp
			out.VertProperties = append(out.VertProperties, m.VertProperties[off:off+stride]...)
		}
		for _, idx := range m.TriVerts {
			out.TriVerts = append(out.TriVerts, base+idx)
		}
	}
	return newSolid(out), nil
}

func (MergeKernel) Difference(a, b *Solid) (*Solid, error) {
	return nil, fmt.Errorf("difference: %w", ErrUnsupported)
}

func (MergeKernel) Intersection(a, b *Solid) (*Solid, error) {
	return nil, fmt.Errorf("intersection: %w", ErrUnsupported)
}
