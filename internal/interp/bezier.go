// Package interp provides the keyframe interpolation kernel: the cubic
// Bezier easing used by motion curves and the per-track frame search.
package interp

import "math"

const (
	bezierLoops   = 15
	bezierEpsilon = 1e-5
)

// Bezier evaluates the easing curve through (0,0), (x1,y1), (x2,y2), (1,1)
// at x. The curve parameter is found by bisection on x(t) - x.
func Bezier(x1, x2, y1, y2, x float32) float32 {
	c := float32(0.5)
	t := c
	s := 1 - t

	var sst3, stt3, ttt float32
	for i := 0; i < bezierLoops; i++ {
		sst3 = 3 * s * s * t
		stt3 = 3 * s * t * t
		ttt = t * t * t

		ft := sst3*x1 + stt3*x2 + ttt - x
		if math.Abs(float64(ft)) < bezierEpsilon {
			break
		}

		c *= 0.5
		if ft < 0 {
			t += c
		} else {
			t -= c
		}
		s = 1 - t
	}
	return sst3*y1 + stt3*y2 + ttt
}

// BezierBytes evaluates a curve stored as four control bytes
// (x1, x2, y1, y2 in [0,127]) starting at offset.
func BezierBytes(b []uint8, offset int, x float32) float32 {
	return Bezier(
		float32(b[offset])/127,
		float32(b[offset+1])/127,
		float32(b[offset+2])/127,
		float32(b[offset+3])/127,
		x,
	)
}
