// Package camera holds the orbit camera state driven by camera motions.
package camera

import (
	gomath "math"

	"github.com/Faultbox/mmd-runtime/pkg/math"
)

// Default camera values.
const (
	DefaultDistance = -45
	DefaultFov      = 30 * gomath.Pi / 180
)

// DefaultPosition is the default orbit center.
var DefaultPosition = math.Vec3{Y: 10}

// Camera orbits a center position. Rotation is Euler pitch (X), yaw (Y) and
// roll (Z) in radians, and Distance is the signed offset of the eye along
// the rotated Z axis.
type Camera struct {
	Position math.Vec3
	Rotation math.Vec3
	Distance float32
	Fov      float32 // Vertical, radians
}

// New returns a camera at the defaults.
func New() *Camera {
	c := &Camera{}
	c.Reset()
	return c
}

// Reset restores the defaults.
func (c *Camera) Reset() {
	c.Position = DefaultPosition
	c.Rotation = math.Vec3{}
	c.Distance = DefaultDistance
	c.Fov = DefaultFov
}

// RotationMatrix returns RotY(-yaw) * RotX(-pitch) * RotZ(-roll).
func (c *Camera) RotationMatrix() math.Mat4 {
	return math.RotateY(-c.Rotation.Y).
		Mul(math.RotateX(-c.Rotation.X)).
		Mul(math.RotateZ(-c.Rotation.Z))
}

// EyePosition returns the world position of the eye.
func (c *Camera) EyePosition() math.Vec3 {
	return c.Position.Add(c.RotationMatrix().TransformDirection(math.Vec3{Z: c.Distance}))
}

// ViewMatrix returns the inverse of the eye transform.
func (c *Camera) ViewMatrix() math.Mat4 {
	eye := c.EyePosition()
	world := math.Translate(eye.X, eye.Y, eye.Z).Mul(c.RotationMatrix())
	return world.Inverse()
}

// ProjectionMatrix returns a perspective projection for the camera fov.
func (c *Camera) ProjectionMatrix(aspect, near, far float32) math.Mat4 {
	return math.Perspective(c.Fov, aspect, near, far)
}
