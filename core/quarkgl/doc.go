// Package quarkgl is the software 3D renderer that presents scene meshes.
//
// Pipeline (fixed):
//
//	Scene → View/Projection → Near-plane clip → Rasterization → Target.
//
// The renderer draws a ground grid and depth-tested, vertex-colored triangle
// meshes into a caller-provided Target. Mesh slots are owned by the Scene;
// uploading a mesh copies it into a free slot and removing it frees the slot.
// All math is float32.
package quarkgl
