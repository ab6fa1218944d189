package skeleton

import (
	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/pmx"
)

var unitScale = math.Vec3{X: 1, Y: 1, Z: 1}

// Bone is the runtime state of one skeleton bone.
//
// The local matrix is T(position) * R(rotation) where
//
//	rotation = ikRotation * (animatedRotation * morphRotationOffset) * appendRotationOffset
//	position = animatedPosition + morphPositionOffset + appendPositionOffset
type Bone struct {
	name           string
	index          int
	parent         *Bone
	children       []*Bone
	transformOrder int
	flag           pmx.BoneFlag
	afterPhysics   bool

	restTranslation math.Vec3

	animatedRotation math.Quat
	animatedPosition math.Vec3

	// Written by the morph controller
	MorphPositionOffset math.Vec3
	MorphRotationOffset math.Quat

	// Non-nil only for bones that are links of an IK chain
	ikRotation *math.Quat
	ikChains   []*IKSolver

	appendSolver *AppendSolver
	ikSolver     *IKSolver

	local math.Mat4
	world math.Mat4
}

func newBone(index int, meta *pmx.Bone) *Bone {
	return &Bone{
		name:                meta.Name,
		index:               index,
		transformOrder:      meta.TransformOrder,
		flag:                meta.Flag,
		afterPhysics:        meta.TransformAfterPhysics(),
		animatedRotation:    math.QuatIdentity(),
		MorphRotationOffset: math.QuatIdentity(),
		local:               math.Identity(),
		world:               math.Identity(),
	}
}

// Name returns the bone name.
func (b *Bone) Name() string { return b.name }

// Index returns the bone's position in metadata order.
func (b *Bone) Index() int { return b.index }

// Parent returns the parent bone, or nil for a root.
func (b *Bone) Parent() *Bone { return b.parent }

// Children returns the direct child bones.
func (b *Bone) Children() []*Bone { return b.children }

// TransformOrder returns the sort key of the bone.
func (b *Bone) TransformOrder() int { return b.transformOrder }

// Flag returns the metadata flags.
func (b *Bone) Flag() pmx.BoneFlag { return b.flag }

// TransformAfterPhysics reports whether the bone updates in the after-physics pass.
func (b *Bone) TransformAfterPhysics() bool { return b.afterPhysics }

// RestTranslation returns the bone position relative to its parent at rest.
func (b *Bone) RestTranslation() math.Vec3 { return b.restTranslation }

// AppendSolver returns the bone's append solver, or nil.
func (b *Bone) AppendSolver() *AppendSolver { return b.appendSolver }

// IKSolver returns the IK solver attached to the bone, or nil.
func (b *Bone) IKSolver() *IKSolver { return b.ikSolver }

// IKRotation returns the rotation added by the IK solver. Bones outside any
// IK chain always report identity.
func (b *Bone) IKRotation() math.Quat {
	if b.ikRotation == nil {
		return math.QuatIdentity()
	}
	return *b.ikRotation
}

// AnimatedRotation returns the rotation written by animation.
func (b *Bone) AnimatedRotation() math.Quat { return b.animatedRotation }

// SetAnimatedRotation sets the local rotation driven by animation.
func (b *Bone) SetAnimatedRotation(q math.Quat) { b.animatedRotation = q }

// AnimatedPosition returns the local position written by animation.
func (b *Bone) AnimatedPosition() math.Vec3 { return b.animatedPosition }

// SetAnimatedPosition sets the full local position, rest translation included.
func (b *Bone) SetAnimatedPosition(p math.Vec3) { b.animatedPosition = p }

// ResetPose returns the animated state to rest and clears solver output.
func (b *Bone) ResetPose() {
	b.animatedRotation = math.QuatIdentity()
	b.animatedPosition = b.restTranslation
	if b.ikRotation != nil {
		*b.ikRotation = math.QuatIdentity()
	}
	if b.appendSolver != nil {
		b.appendSolver.reset()
	}
}

// LocalMatrix returns the last computed local matrix.
func (b *Bone) LocalMatrix() math.Mat4 { return b.local }

// WorldMatrix returns the last computed model-space matrix.
func (b *Bone) WorldMatrix() math.Mat4 { return b.world }

// WorldPosition returns the translation of the world matrix.
func (b *Bone) WorldPosition() math.Vec3 { return b.world.Translation() }

// inEnabledChain reports whether any IK solver using this bone as a link
// is enabled.
func (b *Bone) inEnabledChain() bool {
	for _, s := range b.ikChains {
		if s.Enabled() {
			return true
		}
	}
	return false
}

// morphedRotation is the animated rotation with the bone morph offset applied.
func (b *Bone) morphedRotation() math.Quat {
	return b.animatedRotation.Mul(b.MorphRotationOffset)
}

// positionOffset is the morphed position relative to rest.
func (b *Bone) positionOffset() math.Vec3 {
	return b.animatedPosition.Add(b.MorphPositionOffset).Sub(b.restTranslation)
}

// updateLocalMatrix recomputes the local matrix from animation, morph and
// solver state.
func (b *Bone) updateLocalMatrix() {
	rotation := b.morphedRotation()
	if b.ikRotation != nil {
		rotation = b.ikRotation.Mul(rotation)
	}

	position := b.animatedPosition.Add(b.MorphPositionOffset)

	if s := b.appendSolver; s != nil {
		if s.AffectRotation {
			rotation = rotation.Mul(s.rotationOffset)
		}
		if s.AffectPosition {
			position = position.Add(s.positionOffset)
		}
	}

	b.local = math.Compose(unitScale, rotation, position)
}

// updateOwnWorldMatrix refreshes this bone only.
func (b *Bone) updateOwnWorldMatrix() {
	if b.parent != nil {
		b.world = b.parent.world.Mul(b.local)
	} else {
		b.world = b.local
	}
}

// updateWorldMatrix refreshes this bone and its whole subtree.
func (b *Bone) updateWorldMatrix() {
	stack := []*Bone{b}
	for len(stack) > 0 {
		bone := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		bone.updateOwnWorldMatrix()
		stack = append(stack, bone.children...)
	}
}
