package skeleton

import (
	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/pmx"
)

// AppendSolver makes a bone inherit a fraction of another bone's rotation
// or position, independent of the bone hierarchy.
type AppendSolver struct {
	IsLocal        bool
	AffectRotation bool
	AffectPosition bool
	Ratio          float32 // May be negative
	Target         *Bone

	rotationOffset math.Quat
	positionOffset math.Vec3
}

func newAppendSolver(meta *pmx.Bone, target *Bone) *AppendSolver {
	return &AppendSolver{
		IsLocal:        meta.IsLocalAppend(),
		AffectRotation: meta.AffectsAppendRotation(),
		AffectPosition: meta.AffectsAppendPosition(),
		Ratio:          meta.AppendTransform.Ratio,
		Target:         target,
		rotationOffset: math.QuatIdentity(),
	}
}

// RotationOffset returns the last computed rotation offset.
func (s *AppendSolver) RotationOffset() math.Quat { return s.rotationOffset }

// PositionOffset returns the last computed position offset.
func (s *AppendSolver) PositionOffset() math.Vec3 { return s.positionOffset }

func (s *AppendSolver) reset() {
	s.rotationOffset = math.QuatIdentity()
	s.positionOffset = math.Vec3{}
}

// Update recomputes the offsets from the target's current state.
func (s *AppendSolver) Update() {
	target := s.Target

	if s.AffectRotation {
		var q math.Quat
		switch {
		case s.IsLocal:
			_, q, _ = target.local.Decompose()
		case target.appendSolver != nil && target.appendSolver.AffectRotation:
			q = target.appendSolver.rotationOffset
		default:
			q = target.morphedRotation()
		}

		if !s.IsLocal && target.ikRotation != nil && target.inEnabledChain() {
			q = target.ikRotation.Mul(q)
		}

		if s.Ratio != 1 {
			q = math.QuatIdentity().Slerp(q, s.Ratio)
		}
		s.rotationOffset = q
	}

	if s.AffectPosition {
		var p math.Vec3
		switch {
		case s.IsLocal:
			p = target.local.Translation().Sub(target.restTranslation)
		case target.appendSolver != nil && target.appendSolver.AffectPosition:
			p = target.appendSolver.positionOffset
		default:
			p = target.positionOffset()
		}

		if s.Ratio != 1 {
			p = p.Scale(s.Ratio)
		}
		s.positionOffset = p
	}
}
