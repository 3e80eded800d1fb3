package quarkgl

import "github.com/chewxy/math32"

const maxPitch = math32.Pi/2 - 0.05

// OrbitController places a camera on a sphere around a target.
// Yaw is measured about +Y from +Z, pitch above the XZ plane.
type OrbitController struct {
	Target Vec3
	Yaw    float32
	Pitch  float32
	Radius float32

	MinRadius float32
	MaxRadius float32
}

// OrbitFrom returns a controller that reproduces cam's current view.
func OrbitFrom(cam Camera) OrbitController {
	d := cam.Position.Sub(cam.Target)
	r := Len(d)
	c := OrbitController{Target: cam.Target, Radius: r}
	if r > 0 {
		c.Yaw = math32.Atan2(d.X, d.Z)
		c.Pitch = math32.Asin(clampF32(d.Y/r, -1, 1))
	}
	return c
}

func (c *OrbitController) Apply(cam *Camera) {
	if cam == nil {
		return
	}
	r := c.Radius
	if r == 0 {
		r = 3
	}
	if c.MinRadius != 0 && r < c.MinRadius {
		r = c.MinRadius
	}
	if c.MaxRadius != 0 && r > c.MaxRadius {
		r = c.MaxRadius
	}

	sy, cy := math32.Sincos(c.Yaw)
	sp, cp := math32.Sincos(c.Pitch)
	cam.Position = c.Target.Add(V3(r*cp*sy, r*sp, r*cp*cy))
	cam.Target = c.Target
	if cam.Up == (Vec3{}) {
		cam.Up = V3(0, 1, 0)
	}
}

// Rotate turns the view; pitch stops short of the poles.
func (c *OrbitController) Rotate(deltaYaw, deltaPitch float32) {
	c.Yaw += deltaYaw
	c.Pitch = clampF32(c.Pitch+deltaPitch, -maxPitch, maxPitch)
}

func (c *OrbitController) Zoom(delta float32) {
	c.Radius += delta
	if c.MinRadius != 0 && c.Radius < c.MinRadius {
		c.Radius = c.MinRadius
	}
	if c.MaxRadius != 0 && c.Radius > c.MaxRadius {
		c.Radius = c.MaxRadius
	}
}
