package skeleton

import (
	gomath "math"

	"github.com/Faultbox/mmd-runtime/pkg/math"
)

const twoPi = 2 * gomath.Pi

// decomposeXYZ extracts Euler angles of m = RotX(x) * RotY(y) * RotZ(z).
// Of the equivalent angle triples it returns the one closest to before, so
// successive IK steps do not jump across a ±π branch.
func decomposeXYZ(m math.Mat4, before math.Vec3) math.Vec3 {
	var x, y, z float64
	bx, by, bz := float64(before.X), float64(before.Y), float64(before.Z)

	sy := float64(m[8])
	if gomath.Abs(1-gomath.Abs(sy)) < 1e-6 {
		y = gomath.Asin(clamp1(sy))
		if gomath.Abs(gomath.Sin(bx)) < gomath.Abs(gomath.Sin(bz)) {
			if gomath.Cos(bx) > 0 {
				x = 0
				z = gomath.Asin(clamp1(float64(m[1])))
			} else {
				x = gomath.Pi
				z = gomath.Asin(clamp1(float64(-m[1])))
			}
		} else {
			if gomath.Cos(bz) > 0 {
				z = 0
				x = gomath.Asin(clamp1(float64(m[6])))
			} else {
				z = gomath.Pi
				x = gomath.Asin(clamp1(float64(-m[6])))
			}
		}
	} else {
		x = gomath.Atan2(float64(-m[9]), float64(m[10]))
		y = gomath.Asin(clamp1(sy))
		z = gomath.Atan2(float64(-m[4]), float64(m[0]))
	}

	pi := gomath.Pi
	tests := [8][3]float64{
		{x + pi, pi - y, z + pi},
		{x + pi, pi - y, z - pi},
		{x + pi, -pi - y, z + pi},
		{x + pi, -pi - y, z - pi},
		{x - pi, pi - y, z + pi},
		{x - pi, pi - y, z - pi},
		{x - pi, -pi - y, z + pi},
		{x - pi, -pi - y, z - pi},
	}

	errorOf := func(ax, ay, az float64) float64 {
		return gomath.Abs(diffAngle(ax, bx)) + gomath.Abs(diffAngle(ay, by)) + gomath.Abs(diffAngle(az, bz))
	}

	minErr := errorOf(x, y, z)
	for _, t := range tests {
		if err := errorOf(t[0], t[1], t[2]); err < minErr {
			minErr = err
			x, y, z = t[0], t[1], t[2]
		}
	}
	return math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}
}

// normalizeAngle wraps an angle into [0, 2π).
func normalizeAngle(a float64) float64 {
	a = gomath.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

// diffAngle returns a - b wrapped into [-π, π].
func diffAngle(a, b float64) float64 {
	d := normalizeAngle(a) - normalizeAngle(b)
	if d > gomath.Pi {
		return d - twoPi
	}
	if d < -gomath.Pi {
		return d + twoPi
	}
	return d
}

func clamp1(v float64) float64 {
	return gomath.Max(-1, gomath.Min(1, v))
}
