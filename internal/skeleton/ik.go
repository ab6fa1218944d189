package skeleton

import (
	gomath "math"

	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/pmx"
)

// SolveResult is the terminal state of the last Solve call.
type SolveResult int

const (
	// SolveIdle means the solver is disabled and did nothing.
	SolveIdle SolveResult = iota
	// SolveIterating is only observed while a solve is in progress.
	SolveIterating
	// SolveConverged means every iteration improved the distance.
	SolveConverged
	// SolveAbortedNoImprovement means a pass failed to improve and the best
	// rotations were restored.
	SolveAbortedNoImprovement
)

func (r SolveResult) String() string {
	switch r {
	case SolveIdle:
		return "idle"
	case SolveIterating:
		return "iterating"
	case SolveConverged:
		return "converged"
	case SolveAbortedNoImprovement:
		return "aborted"
	default:
		return "unknown"
	}
}

type solveAxis int

const (
	axisNone solveAxis = iota
	axisX
	axisY
	axisZ
)

var axisVectors = [...]math.Vec3{
	axisX: {X: 1},
	axisY: {Y: 1},
	axisZ: {Z: 1},
}

type ikLink struct {
	bone     *Bone
	limited  bool
	min, max math.Vec3
	plane    solveAxis

	prevAngle      math.Vec3
	savedRotation  math.Quat
	planeModeAngle float32
}

func newIKLink(bone *Bone, limit *pmx.IKLimitation) *ikLink {
	link := &ikLink{bone: bone, savedRotation: math.QuatIdentity()}
	if limit == nil {
		return link
	}

	link.limited = true
	lo := math.Vec3{X: limit.Min[0], Y: limit.Min[1], Z: limit.Min[2]}
	hi := math.Vec3{X: limit.Max[0], Y: limit.Max[1], Z: limit.Max[2]}
	link.min = math.Vec3{X: min(lo.X, hi.X), Y: min(lo.Y, hi.Y), Z: min(lo.Z, hi.Z)}
	link.max = math.Vec3{X: max(lo.X, hi.X), Y: max(lo.Y, hi.Y), Z: max(lo.Z, hi.Z)}

	free := func(lo, hi float32) bool { return lo != 0 || hi != 0 }
	fixed := func(lo, hi float32) bool { return lo == 0 || hi == 0 }
	mn, mx := link.min, link.max
	switch {
	case free(mn.X, mx.X) && fixed(mn.Y, mx.Y) && fixed(mn.Z, mx.Z):
		link.plane = axisX
	case free(mn.Y, mx.Y) && fixed(mn.X, mx.X) && fixed(mn.Z, mx.Z):
		link.plane = axisY
	case free(mn.Z, mx.Z) && fixed(mn.X, mx.X) && fixed(mn.Y, mx.Y):
		link.plane = axisZ
	}
	return link
}

func (l *ikLink) axisRange() (lo, hi float32) {
	switch l.plane {
	case axisX:
		return l.min.X, l.max.X
	case axisY:
		return l.min.Y, l.max.Y
	default:
		return l.min.Z, l.max.Z
	}
}

// IKSolver is a CCD solver that rotates a chain of links so the target
// bone reaches the IK bone.
type IKSolver struct {
	IKBone     *Bone
	Target     *Bone
	Iteration  int
	LimitAngle float32 // Per-step rotation bound, radians

	index  int
	states []uint8
	links  []*ikLink

	result       SolveResult
	bestDistance float32
}

// Index returns the solver's slot in the skeleton's IK state array.
func (s *IKSolver) Index() int { return s.index }

// Enabled reports whether the solver runs during updates.
func (s *IKSolver) Enabled() bool { return s.states[s.index] != 0 }

// SetEnabled toggles the solver.
func (s *IKSolver) SetEnabled(enabled bool) {
	if enabled {
		s.states[s.index] = 1
	} else {
		s.states[s.index] = 0
	}
}

// Links returns the chain bones in solve order.
func (s *IKSolver) Links() []*Bone {
	out := make([]*Bone, len(s.links))
	for i, l := range s.links {
		out[i] = l.bone
	}
	return out
}

// Result returns the terminal state of the last Solve.
func (s *IKSolver) Result() SolveResult { return s.result }

// BestDistance returns the smallest target distance accepted by the last Solve.
func (s *IKSolver) BestDistance() float32 { return s.bestDistance }

func (s *IKSolver) distance() float32 {
	return s.Target.WorldPosition().Distance(s.IKBone.WorldPosition())
}

// Solve runs the chain solver. Every pass must strictly reduce the distance
// between the target and the IK bone; the first pass that does not is
// rolled back and ends the solve.
func (s *IKSolver) Solve() SolveResult {
	if !s.Enabled() {
		s.result = SolveIdle
		return s.result
	}

	for _, link := range s.links {
		link.prevAngle = math.Vec3{}
		link.planeModeAngle = 0
		*link.bone.ikRotation = math.QuatIdentity()
		link.savedRotation = math.QuatIdentity()
		link.bone.updateLocalMatrix()
		link.bone.updateWorldMatrix()
	}

	s.result = SolveIterating
	best := s.distance()
	for i := 0; i < s.Iteration; i++ {
		s.solveCore(i)

		d := s.distance()
		if d < best {
			best = d
			for _, link := range s.links {
				link.savedRotation = *link.bone.ikRotation
			}
			continue
		}

		for _, link := range s.links {
			*link.bone.ikRotation = link.savedRotation
			link.bone.updateLocalMatrix()
			link.bone.updateWorldMatrix()
		}
		s.result = SolveAbortedNoImprovement
		break
	}

	if s.result == SolveIterating {
		s.result = SolveConverged
	}
	s.bestDistance = best
	return s.result
}

func (s *IKSolver) solveCore(iteration int) {
	ikPosition := s.IKBone.WorldPosition()

	for _, link := range s.links {
		bone := link.bone
		if bone == s.Target {
			continue
		}

		if link.limited && link.plane != axisNone {
			s.solvePlane(iteration, link, ikPosition)
			continue
		}

		inverse := bone.world.Inverse()
		ikVector := inverse.TransformVec3(ikPosition).Normalize()
		targetVector := inverse.TransformVec3(s.Target.WorldPosition()).Normalize()

		dot := math.Clamp(targetVector.Dot(ikVector), -1, 1)
		angle := float32(gomath.Acos(float64(dot)))
		if angle*180/gomath.Pi < 1e-3 {
			continue
		}
		angle = math.Clamp(angle, -s.LimitAngle, s.LimitAngle)

		cross := targetVector.Cross(ikVector).Normalize()
		if cross.IsZero() {
			continue
		}
		rotation := math.QuatFromAxisAngle(cross, angle)

		animated := bone.morphedRotation()
		chainRotation := bone.ikRotation.Mul(animated).Mul(rotation)
		if link.limited {
			euler := decomposeXYZ(chainRotation.ToMat4(), link.prevAngle)
			delta := euler.Clamp(link.min, link.max).Sub(link.prevAngle)
			limit := math.Vec3{X: s.LimitAngle, Y: s.LimitAngle, Z: s.LimitAngle}
			clamped := delta.Clamp(limit.Scale(-1), limit).Add(link.prevAngle)

			chainRotation = math.QuatFromEulerXYZ(clamped.X, clamped.Y, clamped.Z)
			link.prevAngle = clamped
		}

		*bone.ikRotation = chainRotation.Mul(animated.Inverse())
		bone.updateLocalMatrix()
		bone.updateWorldMatrix()
	}
}

// solvePlane rotates a link about its single free axis.
func (s *IKSolver) solvePlane(iteration int, link *ikLink, ikPosition math.Vec3) {
	bone := link.bone
	axis := axisVectors[link.plane]
	lo, hi := link.axisRange()

	inverse := bone.world.Inverse()
	ikVector := inverse.TransformVec3(ikPosition).Normalize()
	targetVector := inverse.TransformVec3(s.Target.WorldPosition()).Normalize()

	dot := math.Clamp(targetVector.Dot(ikVector), -1, 1)
	angle := float32(gomath.Acos(float64(dot)))
	angle = math.Clamp(angle, -s.LimitAngle, s.LimitAngle)

	dot1 := math.QuatFromAxisAngle(axis, angle).Rotate(targetVector).Dot(ikVector)
	dot2 := math.QuatFromAxisAngle(axis, -angle).Rotate(targetVector).Dot(ikVector)

	newAngle := link.planeModeAngle
	if dot1 > dot2 {
		newAngle += angle
	} else {
		newAngle -= angle
	}

	// On the first pass, start from the mirrored angle when it fits the range
	if iteration == 0 && (newAngle < lo || newAngle > hi) {
		if -newAngle > lo && -newAngle < hi {
			newAngle = -newAngle
		} else {
			half := (lo + hi) * 0.5
			if abs32(half-newAngle) > abs32(half+newAngle) {
				newAngle = -newAngle
			}
		}
	}

	newAngle = math.Clamp(newAngle, lo, hi)
	link.planeModeAngle = newAngle

	*bone.ikRotation = math.QuatFromAxisAngle(axis, newAngle).Mul(bone.morphedRotation().Inverse())
	bone.updateLocalMatrix()
	bone.updateWorldMatrix()
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
