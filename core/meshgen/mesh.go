package meshgen

import "github.com/wes321/dingcad/core/quarkgl"

// Device is the render backend a mesh is uploaded to. *quarkgl.Scene
// satisfies it.
type Device interface {
	AddMesh(m quarkgl.Mesh) int
	RemoveMesh(id int)
}

var _ Device = (*quarkgl.Scene)(nil)

// RenderMesh is a renderer-ready triangle mesh. Once uploaded it occupies a
// device slot until Release.
type RenderMesh struct {
	Positions []quarkgl.Vec3
	Normals   []quarkgl.Vec3
	Colors    []quarkgl.Color
	Indices   []uint16

	dev Device
	id  int
}

func (m *RenderMesh) VertexCount() int   { return len(m.Positions) }
func (m *RenderMesh) TriangleCount() int { return len(m.Indices) / 3 }

// Empty reports whether the mesh has no faces.
func (m *RenderMesh) Empty() bool { return m == nil || len(m.Indices) == 0 }

func (m *RenderMesh) Uploaded() bool { return m != nil && m.dev != nil }

// DeviceID returns the device slot, or -1 when not uploaded.
func (m *RenderMesh) DeviceID() int {
	if !m.Uploaded() {
		return -1
	}
	return m.id
}

// Upload copies the mesh into a device slot. Empty meshes allocate nothing.
// Uploading twice is a no-op.
func (m *RenderMesh) Upload(dev Device) error {
	if m.Empty() || m.Uploaded() {
		return nil
	}
	verts := make([]quarkgl.Vertex, len(m.Positions))
	for i := range verts {
		verts[i] = quarkgl.Vertex{Pos: m.Positions[i], Normal: m.Normals[i], Color: m.Colors[i]}
	}
	id := dev.AddMesh(quarkgl.Mesh{Vertices: verts, Indices: m.Indices})
	if id < 0 {
		return ErrDeviceFull
	}
	m.dev, m.id = dev, id
	return nil
}

// Release frees the device slot. It is safe to call on nil, empty or
// already released meshes.
func (m *RenderMesh) Release() {
	if !m.Uploaded() {
		return
	}
	m.dev.RemoveMesh(m.id)
	m.dev, m.id = nil, -1
}
