package csg

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const stlHeader = "dingcad binary stl"

// WriteSTL writes m as binary STL. Facet normals are derived from winding.
func WriteSTL(w io.Writer, m BoundaryMesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)

	var header [80]byte
	copy(header[:], stlHeader)
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(m.NumTri())); err != nil {
		return err
	}

	var facet [50]byte
	put := func(off int, v r3.Vec) {
		binary.LittleEndian.PutUint32(facet[off:], math.Float32bits(float32(v.X)))
		binary.LittleEndian.PutUint32(facet[off+4:], math.Float32bits(float32(v.Y)))
		binary.LittleEndian.PutUint32(facet[off+8:], math.Float32bits(float32(v.Z)))
	}
	for t := 0; t < m.NumTri(); t++ {
		p0 := m.Position(int(m.TriVerts[3*t]))
		p1 := m.Position(int(m.TriVerts[3*t+1]))
		p2 := m.Position(int(m.TriVerts[3*t+2]))
		n := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
		if r3.Norm(n) > 0 {
			n = r3.Unit(n)
		}
		put(0, n)
		put(12, p0)
		put(24, p1)
		put(36, p2)
		facet[48], facet[49] = 0, 0
		if _, err := bw.Write(facet[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
