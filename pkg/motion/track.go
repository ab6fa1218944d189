// Package motion defines decoded, immutable keyframe tracks for model and
// camera animations.
//
// Tracks keep the flat per-frame layout of the motion format: frame numbers
// are strictly increasing, values and Bezier control bytes are packed in
// parallel arrays indexed by keyframe.
package motion

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Track errors.
var (
	ErrFrameOrder  = errors.New("frame numbers are not strictly increasing")
	ErrTrackLength = errors.New("track array length does not match frame count")
)

// Strides of the packed arrays, per keyframe.
const (
	RotationStride              = 4  // xyzw
	RotationInterpolationStride = 4  // x1, x2, y1, y2
	PositionStride              = 3  // xyz
	PositionInterpolationStride = 12 // x_x1, x_x2, x_y1, x_y2, y_..., z_...
	ScalarInterpolationStride   = 4
)

// startFrame returns the first frame number, or 0 with no frames.
func startFrame(frames []uint32) float32 {
	if len(frames) == 0 {
		return 0
	}
	return float32(frames[0])
}

// endFrame returns the last frame number, or 0 with no frames.
func endFrame(frames []uint32) float32 {
	if len(frames) == 0 {
		return 0
	}
	return float32(frames[len(frames)-1])
}

func validateFrames(name string, frames []uint32) error {
	for i := 1; i < len(frames); i++ {
		if frames[i] <= frames[i-1] {
			return fmt.Errorf("track %q at keyframe %d (%d after %d): %w", name, i, frames[i], frames[i-1], ErrFrameOrder)
		}
	}
	return nil
}

func validateLength(name, field string, got, frames, stride int) error {
	if got != frames*stride {
		return fmt.Errorf("track %q %s: got %d values for %d frames: %w", name, field, got, frames, ErrTrackLength)
	}
	return nil
}

// BoneTrack animates a bone's rotation.
type BoneTrack struct {
	Name                   string
	FrameNumbers           []uint32
	Rotations              []float32
	RotationInterpolations []uint8
}

// NewBoneTrack allocates a rotation track for frameCount keyframes.
func NewBoneTrack(name string, frameCount int) *BoneTrack {
	return &BoneTrack{
		Name:                   name,
		FrameNumbers:           make([]uint32, frameCount),
		Rotations:              make([]float32, frameCount*RotationStride),
		RotationInterpolations: make([]uint8, frameCount*RotationInterpolationStride),
	}
}

// StartFrame returns the first keyframe number.
func (t *BoneTrack) StartFrame() float32 { return startFrame(t.FrameNumbers) }

// EndFrame returns the last keyframe number.
func (t *BoneTrack) EndFrame() float32 { return endFrame(t.FrameNumbers) }

// Validate checks ordering and array lengths.
func (t *BoneTrack) Validate() error {
	n := len(t.FrameNumbers)
	return multierr.Combine(
		validateFrames(t.Name, t.FrameNumbers),
		validateLength(t.Name, "rotations", len(t.Rotations), n, RotationStride),
		validateLength(t.Name, "rotation interpolations", len(t.RotationInterpolations), n, RotationInterpolationStride),
	)
}

// MovableBoneTrack animates a bone's position offset and rotation.
type MovableBoneTrack struct {
	Name                   string
	FrameNumbers           []uint32
	Positions              []float32 // Offset from the rest translation
	PositionInterpolations []uint8
	Rotations              []float32
	RotationInterpolations []uint8
}

// NewMovableBoneTrack allocates a position and rotation track.
func NewMovableBoneTrack(name string, frameCount int) *MovableBoneTrack {
	return &MovableBoneTrack{
		Name:                   name,
		FrameNumbers:           make([]uint32, frameCount),
		Positions:              make([]float32, frameCount*PositionStride),
		PositionInterpolations: make([]uint8, frameCount*PositionInterpolationStride),
		Rotations:              make([]float32, frameCount*RotationStride),
		RotationInterpolations: make([]uint8, frameCount*RotationInterpolationStride),
	}
}

// StartFrame returns the first keyframe number.
func (t *MovableBoneTrack) StartFrame() float32 { return startFrame(t.FrameNumbers) }

// EndFrame returns the last keyframe number.
func (t *MovableBoneTrack) EndFrame() float32 { return endFrame(t.FrameNumbers) }

// Validate checks ordering and array lengths.
func (t *MovableBoneTrack) Validate() error {
	n := len(t.FrameNumbers)
	return multierr.Combine(
		validateFrames(t.Name, t.FrameNumbers),
		validateLength(t.Name, "positions", len(t.Positions), n, PositionStride),
		validateLength(t.Name, "position interpolations", len(t.PositionInterpolations), n, PositionInterpolationStride),
		validateLength(t.Name, "rotations", len(t.Rotations), n, RotationStride),
		validateLength(t.Name, "rotation interpolations", len(t.RotationInterpolations), n, RotationInterpolationStride),
	)
}

// MorphTrack animates a morph weight. Weights interpolate linearly.
type MorphTrack struct {
	Name         string
	FrameNumbers []uint32
	Weights      []float32
}

// NewMorphTrack allocates a morph track.
func NewMorphTrack(name string, frameCount int) *MorphTrack {
	return &MorphTrack{
		Name:         name,
		FrameNumbers: make([]uint32, frameCount),
		Weights:      make([]float32, frameCount),
	}
}

// StartFrame returns the first keyframe number.
func (t *MorphTrack) StartFrame() float32 { return startFrame(t.FrameNumbers) }

// EndFrame returns the last keyframe number.
func (t *MorphTrack) EndFrame() float32 { return endFrame(t.FrameNumbers) }

// Validate checks ordering and array lengths.
func (t *MorphTrack) Validate() error {
	return multierr.Combine(
		validateFrames(t.Name, t.FrameNumbers),
		validateLength(t.Name, "weights", len(t.Weights), len(t.FrameNumbers), 1),
	)
}

// PropertyTrack is a step track of visibility and per IK bone enable flags.
type PropertyTrack struct {
	FrameNumbers []uint32
	Visibles     []uint8
	IKBoneNames  []string
	IKStates     [][]uint8 // IKStates[ikIndex][keyframe]
}

// NewPropertyTrack allocates a property track for the given IK bone names.
func NewPropertyTrack(frameCount int, ikBoneNames []string) *PropertyTrack {
	states := make([][]uint8, len(ikBoneNames))
	for i := range states {
		states[i] = make([]uint8, frameCount)
	}
	return &PropertyTrack{
		FrameNumbers: make([]uint32, frameCount),
		Visibles:     make([]uint8, frameCount),
		IKBoneNames:  ikBoneNames,
		IKStates:     states,
	}
}

// StartFrame returns the first keyframe number.
func (t *PropertyTrack) StartFrame() float32 { return startFrame(t.FrameNumbers) }

// EndFrame returns the last keyframe number.
func (t *PropertyTrack) EndFrame() float32 { return endFrame(t.FrameNumbers) }

// Validate checks ordering and array lengths.
func (t *PropertyTrack) Validate() error {
	n := len(t.FrameNumbers)
	err := multierr.Combine(
		validateFrames("property", t.FrameNumbers),
		validateLength("property", "visibles", len(t.Visibles), n, 1),
	)
	if len(t.IKStates) != len(t.IKBoneNames) {
		err = multierr.Append(err, fmt.Errorf("track \"property\": %d ik state rows for %d ik bones: %w", len(t.IKStates), len(t.IKBoneNames), ErrTrackLength))
	}
	for i, states := range t.IKStates {
		err = multierr.Append(err, validateLength("property", "ik states "+t.ikName(i), len(states), n, 1))
	}
	return err
}

func (t *PropertyTrack) ikName(i int) string {
	if i < len(t.IKBoneNames) {
		return t.IKBoneNames[i]
	}
	return fmt.Sprintf("#%d", i)
}

// CameraTrack animates the orbit camera.
type CameraTrack struct {
	FrameNumbers           []uint32
	Positions              []float32
	PositionInterpolations []uint8
	Rotations              []float32 // Euler xyz, radians
	RotationInterpolations []uint8
	Distances              []float32
	DistanceInterpolations []uint8
	Fovs                   []float32 // degrees
	FovInterpolations      []uint8
}

// NewCameraTrack allocates a camera track.
func NewCameraTrack(frameCount int) *CameraTrack {
	return &CameraTrack{
		FrameNumbers:           make([]uint32, frameCount),
		Positions:              make([]float32, frameCount*PositionStride),
		PositionInterpolations: make([]uint8, frameCount*PositionInterpolationStride),
		Rotations:              make([]float32, frameCount*PositionStride),
		RotationInterpolations: make([]uint8, frameCount*ScalarInterpolationStride),
		Distances:              make([]float32, frameCount),
		DistanceInterpolations: make([]uint8, frameCount*ScalarInterpolationStride),
		Fovs:                   make([]float32, frameCount),
		FovInterpolations:      make([]uint8, frameCount*ScalarInterpolationStride),
	}
}

// StartFrame returns the first keyframe number.
func (t *CameraTrack) StartFrame() float32 { return startFrame(t.FrameNumbers) }

// EndFrame returns the last keyframe number.
func (t *CameraTrack) EndFrame() float32 { return endFrame(t.FrameNumbers) }

// Validate checks ordering and array lengths.
func (t *CameraTrack) Validate() error {
	n := len(t.FrameNumbers)
	return multierr.Combine(
		validateFrames("camera", t.FrameNumbers),
		validateLength("camera", "positions", len(t.Positions), n, PositionStride),
		validateLength("camera", "position interpolations", len(t.PositionInterpolations), n, PositionInterpolationStride),
		validateLength("camera", "rotations", len(t.Rotations), n, PositionStride),
		validateLength("camera", "rotation interpolations", len(t.RotationInterpolations), n, ScalarInterpolationStride),
		validateLength("camera", "distances", len(t.Distances), n, 1),
		validateLength("camera", "distance interpolations", len(t.DistanceInterpolations), n, ScalarInterpolationStride),
		validateLength("camera", "fovs", len(t.Fovs), n, 1),
		validateLength("camera", "fov interpolations", len(t.FovInterpolations), n, ScalarInterpolationStride),
	)
}
