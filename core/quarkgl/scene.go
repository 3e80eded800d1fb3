package quarkgl

import "github.com/chewxy/math32"

// Camera is a perspective camera.
type Camera struct {
	Position Vec3
	Target   Vec3
	Up       Vec3
	FOVYDeg  float32
	Near     float32
	Far      float32
}

// DefaultCamera is the fixed scene view: looking at the origin from the
// (+X, +Y, +Z) octant.
func DefaultCamera() Camera {
	return Camera{
		Position: V3(4, 4, 4),
		Target:   V3(0, 0.5, 0),
		Up:       V3(0, 1, 0),
		FOVYDeg:  45,
		Near:     0.05,
		Far:      100,
	}
}

func (c Camera) View() Mat4 {
	up := c.Up
	if up == (Vec3{}) {
		up = V3(0, 1, 0)
	}
	return Mat4LookAt(c.Position, c.Target, up)
}

func (c Camera) Projection(aspect float32) Mat4 {
	fov := c.FOVYDeg
	if fov <= 0 {
		fov = 45
	}
	return Mat4Perspective(fov*math32.Pi/180, aspect, c.Near, c.Far)
}

// Grid is a square ground grid on the XZ plane centered on the origin.
type Grid struct {
	Enabled bool
	Slices  int
	Spacing float32
	Color   Color
	Axis    Color // lines through the origin
}

func DefaultGrid() Grid {
	return Grid{
		Enabled: true,
		Slices:  40,
		Spacing: 0.5,
		Color:   RGB(191, 191, 191),
		Axis:    RGB(128, 128, 128),
	}
}

// Vertex is a mesh vertex in render space (Y up).
type Vertex struct {
	Pos    Vec3
	Normal Vec3
	Color  Color
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Enabled bool

	Vertices []Vertex
	Indices  []uint16
}

// Scene holds the camera, the grid and a fixed number of mesh slots.
type Scene struct {
	Camera Camera
	Grid   Grid

	meshes []Mesh
	alive  []bool
}

// CreateScene allocates a scene with the default camera and grid.
func CreateScene(maxMeshes int) *Scene {
	if maxMeshes < 0 {
		maxMeshes = 0
	}
	return &Scene{
		Camera: DefaultCamera(),
		Grid:   DefaultGrid(),
		meshes: make([]Mesh, maxMeshes),
		alive:  make([]bool, maxMeshes),
	}
}

// AddMesh stores m in a free slot and returns its id, or -1 if the scene is full.
func (s *Scene) AddMesh(m Mesh) int {
	if s == nil {
		return -1
	}
	for i := range s.meshes {
		if s.alive[i] {
			continue
		}
		m.Enabled = true
		s.meshes[i] = m
		s.alive[i] = true
		return i
	}
	return -1
}

// RemoveMesh frees a slot. Unknown ids are ignored.
func (s *Scene) RemoveMesh(id int) {
	if s == nil || id < 0 || id >= len(s.meshes) {
		return
	}
	s.alive[id] = false
	s.meshes[id] = Mesh{}
}

// Mesh returns the mesh in slot id.
func (s *Scene) Mesh(id int) (Mesh, bool) {
	if s == nil || id < 0 || id >= len(s.meshes) || !s.alive[id] {
		return Mesh{}, false
	}
	return s.meshes[id], true
}

// MeshCount returns the number of occupied slots.
func (s *Scene) MeshCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, ok := range s.alive {
		if ok {
			n++
		}
	}
	return n
}

func (s *Scene) eachMesh(fn func(m *Mesh)) {
	for i := range s.meshes {
		if !s.alive[i] {
			continue
		}
		fn(&s.meshes[i])
	}
}
