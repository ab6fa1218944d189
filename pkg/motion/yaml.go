package motion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// linear is the control-point set that makes a Bezier curve the identity.
var linear = [4]uint8{20, 107, 20, 107}

func linear3() [12]uint8 {
	var out [12]uint8
	for axis := 0; axis < 3; axis++ {
		copy(out[axis*4:], linear[:])
	}
	return out
}

type boneKeyframeDoc struct {
	Frame                 uint32      `yaml:"frame"`
	Rotation              *[4]float32 `yaml:"rotation"`
	Interpolation         *[4]uint8   `yaml:"interpolation"`
	Position              [3]float32  `yaml:"position"`
	PositionInterpolation *[12]uint8  `yaml:"position_interpolation"`
}

type boneTrackDoc struct {
	Name      string            `yaml:"name"`
	Movable   bool              `yaml:"movable"`
	Keyframes []boneKeyframeDoc `yaml:"keyframes"`
}

type morphKeyframeDoc struct {
	Frame  uint32  `yaml:"frame"`
	Weight float32 `yaml:"weight"`
}

type morphTrackDoc struct {
	Name      string             `yaml:"name"`
	Keyframes []morphKeyframeDoc `yaml:"keyframes"`
}

type propertyKeyframeDoc struct {
	Frame   uint32 `yaml:"frame"`
	Visible *bool  `yaml:"visible"`
	IK      []bool `yaml:"ik"`
}

type propertyTrackDoc struct {
	IKBones   []string              `yaml:"ik_bones"`
	Keyframes []propertyKeyframeDoc `yaml:"keyframes"`
}

type modelAnimationDoc struct {
	Name       string            `yaml:"name"`
	Bones      []boneTrackDoc    `yaml:"bones"`
	Morphs     []morphTrackDoc   `yaml:"morphs"`
	Properties *propertyTrackDoc `yaml:"properties"`
}

type cameraKeyframeDoc struct {
	Frame                 uint32     `yaml:"frame"`
	Position              [3]float32 `yaml:"position"`
	Rotation              [3]float32 `yaml:"rotation"`
	Distance              float32    `yaml:"distance"`
	Fov                   float32    `yaml:"fov"`
	PositionInterpolation *[12]uint8 `yaml:"position_interpolation"`
	RotationInterpolation *[4]uint8  `yaml:"rotation_interpolation"`
	DistanceInterpolation *[4]uint8  `yaml:"distance_interpolation"`
	FovInterpolation      *[4]uint8  `yaml:"fov_interpolation"`
}

type cameraAnimationDoc struct {
	Name      string              `yaml:"name"`
	Keyframes []cameraKeyframeDoc `yaml:"keyframes"`
}

func or4(v *[4]uint8) [4]uint8 {
	if v == nil {
		return linear
	}
	return *v
}

func orIdentity(v *[4]float32) [4]float32 {
	if v == nil {
		return [4]float32{0, 0, 0, 1}
	}
	return *v
}

func or12(v *[12]uint8) [12]uint8 {
	if v == nil {
		return linear3()
	}
	return *v
}

// ParseModelAnimation decodes a YAML model motion and validates it.
func ParseModelAnimation(data []byte) (*ModelAnimation, error) {
	var doc modelAnimationDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse model animation: %w", err)
	}

	anim := NewModelAnimation(doc.Name)
	for _, b := range doc.Bones {
		n := len(b.Keyframes)
		if b.Movable {
			t := NewMovableBoneTrack(b.Name, n)
			for i, k := range b.Keyframes {
				t.FrameNumbers[i] = k.Frame
				rot := orIdentity(k.Rotation)
				copy(t.Rotations[i*RotationStride:], rot[:])
				ri := or4(k.Interpolation)
				copy(t.RotationInterpolations[i*RotationInterpolationStride:], ri[:])
				copy(t.Positions[i*PositionStride:], k.Position[:])
				pi := or12(k.PositionInterpolation)
				copy(t.PositionInterpolations[i*PositionInterpolationStride:], pi[:])
			}
			anim.MovableBoneTracks = append(anim.MovableBoneTracks, t)
			continue
		}
		t := NewBoneTrack(b.Name, n)
		for i, k := range b.Keyframes {
			t.FrameNumbers[i] = k.Frame
			rot := orIdentity(k.Rotation)
			copy(t.Rotations[i*RotationStride:], rot[:])
			ri := or4(k.Interpolation)
			copy(t.RotationInterpolations[i*RotationInterpolationStride:], ri[:])
		}
		anim.BoneTracks = append(anim.BoneTracks, t)
	}

	for _, m := range doc.Morphs {
		t := NewMorphTrack(m.Name, len(m.Keyframes))
		for i, k := range m.Keyframes {
			t.FrameNumbers[i] = k.Frame
			t.Weights[i] = k.Weight
		}
		anim.MorphTracks = append(anim.MorphTracks, t)
	}

	if p := doc.Properties; p != nil {
		t := NewPropertyTrack(len(p.Keyframes), p.IKBones)
		for i, k := range p.Keyframes {
			t.FrameNumbers[i] = k.Frame
			t.Visibles[i] = 1
			if k.Visible != nil && !*k.Visible {
				t.Visibles[i] = 0
			}
			for j := range t.IKStates {
				t.IKStates[j][i] = 1
				if j < len(k.IK) && !k.IK[j] {
					t.IKStates[j][i] = 0
				}
			}
		}
		anim.PropertyTrack = t
	}

	if err := anim.Validate(); err != nil {
		return nil, fmt.Errorf("model animation %q: %w", anim.Name, err)
	}
	return anim, nil
}

// LoadModelAnimation reads a YAML model motion from disk.
func LoadModelAnimation(path string) (*ModelAnimation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model animation: %w", err)
	}
	anim, err := ParseModelAnimation(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return anim, nil
}

// ParseCameraAnimation decodes a YAML camera motion and validates it.
func ParseCameraAnimation(data []byte) (*CameraAnimation, error) {
	var doc cameraAnimationDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse camera animation: %w", err)
	}

	t := NewCameraTrack(len(doc.Keyframes))
	for i, k := range doc.Keyframes {
		t.FrameNumbers[i] = k.Frame
		copy(t.Positions[i*PositionStride:], k.Position[:])
		copy(t.Rotations[i*PositionStride:], k.Rotation[:])
		t.Distances[i] = k.Distance
		t.Fovs[i] = k.Fov
		pi := or12(k.PositionInterpolation)
		copy(t.PositionInterpolations[i*PositionInterpolationStride:], pi[:])
		ri := or4(k.RotationInterpolation)
		copy(t.RotationInterpolations[i*ScalarInterpolationStride:], ri[:])
		di := or4(k.DistanceInterpolation)
		copy(t.DistanceInterpolations[i*ScalarInterpolationStride:], di[:])
		fi := or4(k.FovInterpolation)
		copy(t.FovInterpolations[i*ScalarInterpolationStride:], fi[:])
	}

	anim := &CameraAnimation{Name: doc.Name, CameraTrack: t}
	if err := anim.Validate(); err != nil {
		return nil, fmt.Errorf("camera animation %q: %w", anim.Name, err)
	}
	return anim, nil
}

// LoadCameraAnimation reads a YAML camera motion from disk.
func LoadCameraAnimation(path string) (*CameraAnimation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera animation: %w", err)
	}
	anim, err := ParseCameraAnimation(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return anim, nil
}
