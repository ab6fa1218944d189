package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
// Mul follows the Hamilton product, so a.Mul(b) applies b first.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle rotates by angle radians around a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	return quatFrom(mgl32.QuatRotate(angle, mgl32.Vec3{axis.X, axis.Y, axis.Z}))
}

func (q Quat) mgl() mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}}
}

func quatFrom(q mgl32.Quat) Quat {
	return Quat{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W}
}

// QuatFromEulerXYZ builds RotX(x) * RotY(y) * RotZ(z).
func QuatFromEulerXYZ(x, y, z float32) Quat {
	rx := QuatFromAxisAngle(Vec3{X: 1}, x)
	ry := QuatFromAxisAngle(Vec3{Y: 1}, y)
	rz := QuatFromAxisAngle(Vec3{Z: 1}, z)
	return rx.Mul(ry).Mul(rz)
}

// QuatFromMat4 extracts the rotation of a matrix without scale.
func QuatFromMat4(m Mat4) Quat {
	return quatFrom(mgl32.Mat4ToQuat(mgl32.Mat4(m)))
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Inverse returns the multiplicative inverse.
// Returns identity for a zero quaternion.
func (q Quat) Inverse() Quat {
	lenSq := q.Dot(q)
	if lenSq == 0 {
		return QuatIdentity()
	}
	inv := 1 / lenSq
	return Quat{X: -q.X * inv, Y: -q.Y * inv, Z: -q.Z * inv, W: q.W * inv}
}

// Slerp performs spherical linear interpolation between two quaternions.
// t is usually in [0, 1]; values outside extrapolate along the same arc.
func (q Quat) Slerp(other Quat, t float32) Quat {
	dot := q.Dot(other)
	// Shorter arc.
	if dot < 0 {
		other = Quat{X: -other.X, Y: -other.Y, Z: -other.Z, W: -other.W}
		dot = -dot
	}

	// Nearly parallel: nlerp.
	if dot > 0.9995 {
		return Quat{
			X: q.X + t*(other.X-q.X),
			Y: q.Y + t*(other.Y-q.Y),
			Z: q.Z + t*(other.Z-q.Z),
			W: q.W + t*(other.W-q.W),
		}.Normalize()
	}

	theta0 := float32(math.Acos(float64(dot)))
	theta := theta0 * t

	sinTheta := float32(math.Sin(float64(theta)))
	sinTheta0 := float32(math.Sin(float64(theta0)))

	s0 := float32(math.Cos(float64(theta))) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quat{
		X: q.X*s0 + other.X*s1,
		Y: q.Y*s0 + other.Y*s1,
		Z: q.Z*s0 + other.Z*s1,
		W: q.W*s0 + other.W*s1,
	}
}

// ToMat4 converts the normalized quaternion to a rotation matrix.
func (q Quat) ToMat4() Mat4 {
	return Mat4(q.Normalize().mgl().Mat4())
}

// Mul is the Hamilton product; the result applies other, then q.
func (q Quat) Mul(other Quat) Quat {
	return quatFrom(q.mgl().Mul(other.mgl()))
}

// Rotate applies the rotation to a vector.
func (q Quat) Rotate(v Vec3) Vec3 {
	r := q.mgl().Rotate(mgl32.Vec3{v.X, v.Y, v.Z})
	return Vec3{r[0], r[1], r[2]}
}

// AngleTo returns the rotation angle in radians between two unit quaternions.
func (q Quat) AngleTo(other Quat) float32 {
	dot := float64(q.Dot(other))
	if dot < 0 {
		dot = -dot
	}
	if dot > 1 {
		dot = 1
	}
	return float32(2 * math.Acos(dot))
}
