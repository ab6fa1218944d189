package animation

import (
	"go.uber.org/zap"

	"github.com/Faultbox/mmd-runtime/internal/interp"
	"github.com/Faultbox/mmd-runtime/internal/logger"
	"github.com/Faultbox/mmd-runtime/internal/skeleton"
	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/motion"
)

// morphWeightFloor is the smallest morph weight written when
// BindOptions.MorphWeightFloor is set.
const morphWeightFloor = 1e-16

// BindOptions configures binding.
type BindOptions struct {
	// RetargetingMap maps model bone and morph names to the names used by
	// the motion.
	RetargetingMap map[string]string
	// MorphWeightFloor clamps sampled morph weights to at least 1e-16 so
	// the morph never leaves the active set.
	MorphWeightFloor bool
	// SearchWindow is the incremental frame search window; 0 uses the default.
	SearchWindow int
}

func (o BindOptions) retarget(name string) string {
	if mapped, ok := o.RetargetingMap[name]; ok {
		return mapped
	}
	return name
}

// Bindable is an animation that can be bound to a target.
type Bindable interface {
	AnimationName() string
	StartFrame() float32
	EndFrame() float32
	Bind(target Target, opts BindOptions) Runtime
}

// Motion adapts decoded motion data to Bindable.
type Motion struct {
	*motion.ModelAnimation
}

// AnimationName returns the motion name.
func (m Motion) AnimationName() string { return m.Name }

// Bind binds the motion to target.
func (m Motion) Bind(target Target, opts BindOptions) Runtime {
	return Bind(m.ModelAnimation, target, opts)
}

// ModelAnimation is a motion bound to one model. Tracks whose bone, morph
// or IK solver could not be resolved are skipped.
type ModelAnimation struct {
	Animation *motion.ModelAnimation

	writer PoseWriter

	bones        []*skeleton.Bone
	movableBones []*skeleton.Bone
	morphs       [][]int
	ikSolvers    []*skeleton.IKSolver

	boneSearch     []*interp.FrameSearch
	movableSearch  []*interp.FrameSearch
	morphSearch    []*interp.FrameSearch
	propertySearch *interp.FrameSearch

	morphFloor bool
	bindings   Bindings
}

// Bind resolves the tracks of anim against target. Each unresolved track
// logs one warning.
func Bind(anim *motion.ModelAnimation, target Target, opts BindOptions) *ModelAnimation {
	a := &ModelAnimation{
		Animation:      anim,
		writer:         NewTargetWriter(target),
		morphFloor:     opts.MorphWeightFloor,
		propertySearch: interp.NewFrameSearch(opts.SearchWindow),
	}

	bonesByName := make(map[string]*skeleton.Bone)
	for _, b := range target.Skeleton().Bones() {
		key := opts.retarget(b.Name())
		if _, dup := bonesByName[key]; !dup {
			bonesByName[key] = b
		}
	}

	resolveBone := func(name string) *skeleton.Bone {
		b, ok := bonesByName[name]
		if !ok {
			logger.Warn("binding failed: bone not found", zap.String("animation", anim.Name), zap.String("bone", name))
			return nil
		}
		a.bindings.Bones = append(a.bindings.Bones, b)
		return b
	}

	a.bones = make([]*skeleton.Bone, len(anim.BoneTracks))
	a.boneSearch = make([]*interp.FrameSearch, len(anim.BoneTracks))
	for i, track := range anim.BoneTracks {
		a.bones[i] = resolveBone(track.Name)
		a.boneSearch[i] = interp.NewFrameSearch(opts.SearchWindow)
	}

	a.movableBones = make([]*skeleton.Bone, len(anim.MovableBoneTracks))
	a.movableSearch = make([]*interp.FrameSearch, len(anim.MovableBoneTracks))
	for i, track := range anim.MovableBoneTracks {
		a.movableBones[i] = resolveBone(track.Name)
		a.movableSearch[i] = interp.NewFrameSearch(opts.SearchWindow)
	}

	controller := target.Morph()
	a.morphs = make([][]int, len(anim.MorphTracks))
	a.morphSearch = make([]*interp.FrameSearch, len(anim.MorphTracks))
	for i, track := range anim.MorphTracks {
		a.morphSearch[i] = interp.NewFrameSearch(opts.SearchWindow)

		name := opts.retarget(track.Name)
		var indices []int
		if controller != nil {
			indices = controller.GetMorphIndices(name)
		}
		if indices == nil {
			logger.Warn("binding failed: morph not found", zap.String("animation", anim.Name), zap.String("morph", name))
			continue
		}
		a.morphs[i] = indices
		a.bindings.Morphs = append(a.bindings.Morphs, indices...)
	}

	if pt := anim.PropertyTrack; pt != nil {
		a.ikSolvers = make([]*skeleton.IKSolver, len(pt.IKBoneNames))
		for i, name := range pt.IKBoneNames {
			b, ok := bonesByName[name]
			if !ok {
				logger.Warn("binding failed: ik bone not found", zap.String("animation", anim.Name), zap.String("bone", name))
				continue
			}
			if b.IKSolver() == nil {
				logger.Warn("binding failed: ik solver not found", zap.String("animation", anim.Name), zap.String("bone", name))
				continue
			}
			a.ikSolvers[i] = b.IKSolver()
			a.bindings.IKSolvers = append(a.bindings.IKSolvers, b.IKSolver())
		}
		a.bindings.Visibility = len(pt.FrameNumbers) > 0
	}

	a.bindings = union(a.bindings)
	return a
}

// AnimationName returns the motion name.
func (a *ModelAnimation) AnimationName() string { return a.Animation.Name }

// StartFrame returns the first keyframe of the motion.
func (a *ModelAnimation) StartFrame() float32 { return a.Animation.StartFrame() }

// EndFrame returns the last keyframe of the motion.
func (a *ModelAnimation) EndFrame() float32 { return a.Animation.EndFrame() }

// Bindings lists the resolved targets.
func (a *ModelAnimation) Bindings() Bindings { return a.bindings }

// Animate samples frameTime into the bound model.
func (a *ModelAnimation) Animate(frameTime float32) {
	a.AnimateTo(frameTime, a.writer)
}

// AnimateTo samples frameTime into w.
func (a *ModelAnimation) AnimateTo(frameTime float32, w PoseWriter) {
	anim := a.Animation

	for i, track := range anim.BoneTracks {
		b := a.bones[i]
		if b == nil {
			continue
		}
		w.SetBoneRotation(b, sampleRotation(track.FrameNumbers, track.Rotations, track.RotationInterpolations, a.boneSearch[i], frameTime))
	}

	for i, track := range anim.MovableBoneTracks {
		b := a.movableBones[i]
		if b == nil {
			continue
		}
		if len(track.FrameNumbers) == 0 {
			w.SetBonePosition(b, b.RestTranslation())
			w.SetBoneRotation(b, math.QuatIdentity())
			continue
		}
		seg := segment(track.FrameNumbers, a.movableSearch[i], frameTime)
		w.SetBonePosition(b, b.RestTranslation().Add(positionAt(seg, track.Positions, track.PositionInterpolations)))
		w.SetBoneRotation(b, rotationAt(seg, track.Rotations, track.RotationInterpolations))
	}

	for i, track := range anim.MorphTracks {
		indices := a.morphs[i]
		if indices == nil {
			continue
		}
		weight := sampleWeight(track.FrameNumbers, track.Weights, a.morphSearch[i], frameTime)
		if a.morphFloor && weight < morphWeightFloor {
			weight = morphWeightFloor
		}
		for _, index := range indices {
			w.SetMorphWeight(index, weight)
		}
	}

	if pt := anim.PropertyTrack; pt != nil && len(pt.FrameNumbers) > 0 {
		step := segment(pt.FrameNumbers, a.propertySearch, frameTime).a
		w.SetVisibility(float32(pt.Visibles[step]))
		for i, s := range a.ikSolvers {
			if s == nil {
				continue
			}
			w.SetIKEnabled(s, pt.IKStates[i][step] != 0)
		}
	}
}

// keySegment brackets a clamped frame time. b is -1 when the time is on or
// past the last keyframe.
type keySegment struct {
	a, b     int
	gradient float32
}

func segment(frames []uint32, search *interp.FrameSearch, frameTime float32) keySegment {
	start, end := float32(frames[0]), float32(frames[len(frames)-1])
	t := math.Clamp(frameTime, start, end)

	upper := search.UpperBound(t, frames)
	if upper >= len(frames) {
		return keySegment{a: upper - 1, b: -1}
	}
	fa, fb := float32(frames[upper-1]), float32(frames[upper])
	return keySegment{a: upper - 1, b: upper, gradient: (t - fa) / (fb - fa)}
}

func quatAt(values []float32, i int) math.Quat {
	o := i * motion.RotationStride
	return math.Quat{X: values[o], Y: values[o+1], Z: values[o+2], W: values[o+3]}
}

func vec3At(values []float32, i int) math.Vec3 {
	o := i * motion.PositionStride
	return math.Vec3{X: values[o], Y: values[o+1], Z: values[o+2]}
}

// sampleRotation returns identity for an empty track.
func sampleRotation(frames []uint32, rotations []float32, curves []uint8, search *interp.FrameSearch, frameTime float32) math.Quat {
	if len(frames) == 0 {
		return math.QuatIdentity()
	}
	return rotationAt(segment(frames, search, frameTime), rotations, curves)
}

func rotationAt(seg keySegment, rotations []float32, curves []uint8) math.Quat {
	if seg.b < 0 {
		return quatAt(rotations, seg.a)
	}
	weight := interp.BezierBytes(curves, seg.b*motion.RotationInterpolationStride, seg.gradient)
	return quatAt(rotations, seg.a).Slerp(quatAt(rotations, seg.b), weight)
}

// positionAt returns the offset from rest.
func positionAt(seg keySegment, positions []float32, curves []uint8) math.Vec3 {
	if seg.b < 0 {
		return vec3At(positions, seg.a)
	}

	pa, pb := vec3At(positions, seg.a), vec3At(positions, seg.b)
	o := seg.b * motion.PositionInterpolationStride
	wx := interp.BezierBytes(curves, o, seg.gradient)
	wy := interp.BezierBytes(curves, o+4, seg.gradient)
	wz := interp.BezierBytes(curves, o+8, seg.gradient)
	return math.Vec3{
		X: pa.X + (pb.X-pa.X)*wx,
		Y: pa.Y + (pb.Y-pa.Y)*wy,
		Z: pa.Z + (pb.Z-pa.Z)*wz,
	}
}

// sampleWeight interpolates linearly; zero for an empty track.
func sampleWeight(frames []uint32, weights []float32, search *interp.FrameSearch, frameTime float32) float32 {
	if len(frames) == 0 {
		return 0
	}
	seg := segment(frames, search, frameTime)
	if seg.b < 0 {
		return weights[seg.a]
	}
	wa, wb := weights[seg.a], weights[seg.b]
	return wa + (wb-wa)*seg.gradient
}
