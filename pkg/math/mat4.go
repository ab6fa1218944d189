package math

import "github.com/go-gl/mathgl/mgl32"

// Mat4 is a 4x4 matrix in column-major order, multiplied with column vectors.
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
//
// The memory layout matches mgl32.Mat4, so the two convert directly.
type Mat4 [16]float32

func Identity() Mat4 { return Mat4(mgl32.Ident4()) }

// Perspective returns an OpenGL style projection. fovY is in radians.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	return Mat4(mgl32.Perspective(fovY, aspect, near, far))
}

func Translate(x, y, z float32) Mat4 { return Mat4(mgl32.Translate3D(x, y, z)) }
func Scale(x, y, z float32) Mat4     { return Mat4(mgl32.Scale3D(x, y, z)) }

// RotateX, RotateY and RotateZ rotate counterclockwise by angle radians
// looking down the positive axis.
func RotateX(angle float32) Mat4 { return Mat4(mgl32.HomogRotate3DX(angle)) }
func RotateY(angle float32) Mat4 { return Mat4(mgl32.HomogRotate3DY(angle)) }
func RotateZ(angle float32) Mat4 { return Mat4(mgl32.HomogRotate3DZ(angle)) }

// Compose builds T(position) * R(rotation) * S(scale).
func Compose(scale Vec3, rotation Quat, position Vec3) Mat4 {
	m := rotation.ToMat4()
	for i, s := range [3]float32{scale.X, scale.Y, scale.Z} {
		m[i*4] *= s
		m[i*4+1] *= s
		m[i*4+2] *= s
	}
	m[12], m[13], m[14] = position.X, position.Y, position.Z
	return m
}

// Decompose splits an affine matrix into scale, rotation and translation.
// A degenerate axis yields the identity rotation.
func (m Mat4) Decompose() (scale Vec3, rotation Quat, translation Vec3) {
	translation = m.Translation()
	scale = Vec3{m.column(0).Length(), m.column(1).Length(), m.column(2).Length()}
	if scale.X == 0 || scale.Y == 0 || scale.Z == 0 {
		return scale, QuatIdentity(), translation
	}
	r := Scale(1/scale.X, 1/scale.Y, 1/scale.Z)
	return scale, QuatFromMat4(m.Mul(r)).Normalize(), translation
}

func (m Mat4) column(i int) Vec3 { return Vec3{m[i*4], m[i*4+1], m[i*4+2]} }

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 { return m.column(3) }

// Mul returns m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(other)))
}

// TransformVec3 transforms a point (w = 1), dividing by w when it is
// neither 0 nor 1.
func (m Mat4) TransformVec3(v Vec3) Vec3 {
	p := mgl32.Mat4(m).Mul4x1(mgl32.Vec4{v.X, v.Y, v.Z, 1})
	if w := p[3]; w != 0 && w != 1 {
		p = p.Mul(1 / w)
	}
	return Vec3{p[0], p[1], p[2]}
}

// TransformDirection transforms a direction, ignoring translation.
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	p := mgl32.Mat4(m).Mul4x1(mgl32.Vec4{d.X, d.Y, d.Z, 0})
	return Vec3{p[0], p[1], p[2]}
}

// Inverse returns the inverse of the matrix, or identity if it is singular.
func (m Mat4) Inverse() Mat4 {
	g := mgl32.Mat4(m)
	if g.Det() == 0 {
		return Identity()
	}
	return Mat4(g.Inv())
}
