// Package animation samples decoded motions into a model and blends several
// motions through weighted spans.
package animation

import (
	"github.com/Faultbox/mmd-runtime/internal/morph"
	"github.com/Faultbox/mmd-runtime/internal/skeleton"
	"github.com/Faultbox/mmd-runtime/pkg/math"
)

// Target is the model a runtime animation binds to.
type Target interface {
	Skeleton() *skeleton.Skeleton
	Morph() *morph.Controller
	SetVisibility(v float32)
}

// PoseWriter receives sampled values. Bone positions are full local
// positions, rest translation included.
type PoseWriter interface {
	SetBoneRotation(b *skeleton.Bone, q math.Quat)
	SetBonePosition(b *skeleton.Bone, p math.Vec3)
	SetMorphWeight(index int, weight float32)
	SetVisibility(v float32)
	SetIKEnabled(s *skeleton.IKSolver, enabled bool)
}

// Runtime is an animation bound to a target.
type Runtime interface {
	// Animate samples frameTime straight into the target.
	Animate(frameTime float32)
	// AnimateTo samples frameTime into w.
	AnimateTo(frameTime float32, w PoseWriter)
	// Bindings lists every target the animation can write.
	Bindings() Bindings
}

// Bindings is the set of targets a runtime animation writes.
type Bindings struct {
	Bones      []*skeleton.Bone
	Morphs     []int
	IKSolvers  []*skeleton.IKSolver
	Visibility bool
}

// targetWriter writes straight into a target.
type targetWriter struct {
	target Target
}

// NewTargetWriter returns a PoseWriter that writes into t.
func NewTargetWriter(t Target) PoseWriter {
	return targetWriter{target: t}
}

func (w targetWriter) SetBoneRotation(b *skeleton.Bone, q math.Quat) { b.SetAnimatedRotation(q) }

func (w targetWriter) SetBonePosition(b *skeleton.Bone, p math.Vec3) { b.SetAnimatedPosition(p) }

func (w targetWriter) SetMorphWeight(index int, weight float32) {
	w.target.Morph().SetMorphWeightFromIndex(index, weight)
}

func (w targetWriter) SetVisibility(v float32) { w.target.SetVisibility(v) }

func (w targetWriter) SetIKEnabled(s *skeleton.IKSolver, enabled bool) { s.SetEnabled(enabled) }

// writeRest writes the rest or neutral value of every binding.
func writeRest(b Bindings, w PoseWriter) {
	for _, bone := range b.Bones {
		w.SetBoneRotation(bone, math.QuatIdentity())
		w.SetBonePosition(bone, bone.RestTranslation())
	}
	for _, index := range b.Morphs {
		w.SetMorphWeight(index, 0)
	}
	for _, s := range b.IKSolvers {
		w.SetIKEnabled(s, true)
	}
	if b.Visibility {
		w.SetVisibility(1)
	}
}

// union merges bindings, dropping duplicates.
func union(all ...Bindings) Bindings {
	var out Bindings
	bones := make(map[*skeleton.Bone]struct{})
	morphs := make(map[int]struct{})
	solvers := make(map[*skeleton.IKSolver]struct{})

	for _, b := range all {
		for _, bone := range b.Bones {
			if _, ok := bones[bone]; !ok {
				bones[bone] = struct{}{}
				out.Bones = append(out.Bones, bone)
			}
		}
		for _, index := range b.Morphs {
			if _, ok := morphs[index]; !ok {
				morphs[index] = struct{}{}
				out.Morphs = append(out.Morphs, index)
			}
		}
		for _, s := range b.IKSolvers {
			if _, ok := solvers[s]; !ok {
				solvers[s] = struct{}{}
				out.IKSolvers = append(out.IKSolvers, s)
			}
		}
		out.Visibility = out.Visibility || b.Visibility
	}
	return out
}
