// Package meshgen turns kernel boundary meshes into shaded render meshes.
package meshgen

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/wes321/dingcad/core/csg"
	"github.com/wes321/dingcad/core/quarkgl"
)

const (
	// Scale converts kernel millimeters to render units.
	Scale float32 = 0.1

	// MaxVertices is the largest vertex count addressable by uint16 indices.
	MaxVertices = 1 << 16

	minIntensity float32 = 0.3
)

// LightDir is the fixed directional light, unit length.
var LightDir = quarkgl.Normalize(quarkgl.V3(0.45, 0.85, 0.35))

var (
	ErrTooManyVertices = errors.New("meshgen: mesh exceeds 16-bit index range")
	ErrIndexOutOfRange = errors.New("meshgen: triangle index out of range")
	ErrBadStride       = errors.New("meshgen: vertex stride must be at least 3")
	ErrDeviceFull      = errors.New("meshgen: render device has no free mesh slot")
)

// Synthesize converts bm into a render mesh without touching any device.
//
// Positions are remapped from the kernel's Z-up millimeters to Y-up render
// units, normals are accumulated from unnormalized face normals and each
// vertex is shaded by the fixed light. A mesh with no vertices or no
// triangles yields an empty RenderMesh and no error.
func Synthesize(bm csg.BoundaryMesh) (*RenderMesh, error) {
	numVert, numTri := bm.NumVert(), bm.NumTri()
	if numVert <= 0 || numTri <= 0 {
		return &RenderMesh{id: -1}, nil
	}
	if bm.NumProp < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrBadStride, bm.NumProp)
	}
	if numVert > MaxVertices {
		return nil, fmt.Errorf("%w: %d vertices", ErrTooManyVertices, numVert)
	}

	m := &RenderMesh{
		Positions: make([]quarkgl.Vec3, numVert),
		Normals:   make([]quarkgl.Vec3, numVert),
		Colors:    make([]quarkgl.Color, numVert),
		Indices:   make([]uint16, numTri*3),
		id:        -1,
	}

	for i := 0; i < numVert; i++ {
		p := bm.VertProperties[i*bm.NumProp : i*bm.NumProp+3]
		m.Positions[i] = toRenderSpace(p[0], p[1], p[2])
	}

	for t := 0; t < numTri; t++ {
		var idx [3]uint32
		copy(idx[:], bm.TriVerts[t*3:t*3+3])
		for k, v := range idx {
			if v >= uint32(numVert) {
				return nil, fmt.Errorf("%w: index %d, %d vertices", ErrIndexOutOfRange, v, numVert)
			}
			m.Indices[t*3+k] = uint16(v)
		}
		p0, p1, p2 := m.Positions[idx[0]], m.Positions[idx[1]], m.Positions[idx[2]]
		n := quarkgl.Cross(p1.Sub(p0), p2.Sub(p0))
		for _, v := range idx {
			m.Normals[v] = m.Normals[v].Add(n)
		}
	}

	for i := range m.Normals {
		m.Normals[i] = quarkgl.Normalize(m.Normals[i])
		m.Colors[i] = shade(Intensity(m.Normals[i]))
	}
	return m, nil
}

func toRenderSpace(x, y, z float32) quarkgl.Vec3 {
	return quarkgl.V3(x*Scale, z*Scale, -y*Scale)
}

// Intensity is the fixed-light shading term for a unit normal, floored at 0.3.
func Intensity(normal quarkgl.Vec3) float32 {
	return math32.Max(minIntensity, quarkgl.Dot(normal, LightDir))
}

func shade(i float32) quarkgl.Color {
	return quarkgl.Color{
		R: uint8(210 * i),
		G: uint8(210 * i),
		B: uint8(220 * i),
		A: 255,
	}
}

// CreateRenderableMesh synthesizes bm and uploads it to dev.
func CreateRenderableMesh(dev Device, bm csg.BoundaryMesh) (*RenderMesh, error) {
	m, err := Synthesize(bm)
	if err != nil {
		return nil, err
	}
	if err := m.Upload(dev); err != nil {
		return nil, err
	}
	return m, nil
}
