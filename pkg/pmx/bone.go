// Package pmx defines the decoded, immutable bone, morph and material metadata
// that a model loader hands to the runtime.
package pmx

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// BoneFlag is the PMX bone flag bit set.
type BoneFlag uint16

// Bone flag bits, PMX 2.0 positions.
const (
	BoneFlagUseBoneIndexAsTailPosition  BoneFlag = 0x0001
	BoneFlagIsRotatable                 BoneFlag = 0x0002
	BoneFlagIsMovable                   BoneFlag = 0x0004
	BoneFlagIsVisible                   BoneFlag = 0x0008
	BoneFlagIsControllable              BoneFlag = 0x0010
	BoneFlagIsIKEnabled                 BoneFlag = 0x0020
	BoneFlagLocalAppendTransform        BoneFlag = 0x0080
	BoneFlagHasAppendRotate             BoneFlag = 0x0100
	BoneFlagHasAppendMove               BoneFlag = 0x0200
	BoneFlagHasAxisLimit                BoneFlag = 0x0400
	BoneFlagHasLocalVector              BoneFlag = 0x0800
	BoneFlagTransformAfterPhysics       BoneFlag = 0x1000
	BoneFlagIsExternalParentTransformed BoneFlag = 0x2000
)

var boneFlagNames = map[string]BoneFlag{
	"tail_index":      BoneFlagUseBoneIndexAsTailPosition,
	"rotatable":       BoneFlagIsRotatable,
	"movable":         BoneFlagIsMovable,
	"visible":         BoneFlagIsVisible,
	"controllable":    BoneFlagIsControllable,
	"ik":              BoneFlagIsIKEnabled,
	"local_append":    BoneFlagLocalAppendTransform,
	"append_rotate":   BoneFlagHasAppendRotate,
	"append_move":     BoneFlagHasAppendMove,
	"axis_limit":      BoneFlagHasAxisLimit,
	"local_vector":    BoneFlagHasLocalVector,
	"after_physics":   BoneFlagTransformAfterPhysics,
	"external_parent": BoneFlagIsExternalParentTransformed,
}

// Has reports whether all bits of f are set.
func (b BoneFlag) Has(f BoneFlag) bool {
	return b&f == f
}

// UnmarshalYAML accepts either a raw integer or a list of flag names.
func (b *BoneFlag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var raw uint16
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*b = BoneFlag(raw)
		return nil
	}

	var names []string
	if err := value.Decode(&names); err != nil {
		return err
	}
	var flag BoneFlag
	for _, name := range names {
		bit, ok := boneFlagNames[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown bone flag %q", name)
		}
		flag |= bit
	}
	*b = flag
	return nil
}

// Bone is the static description of one bone.
type Bone struct {
	Name            string           `yaml:"name"`
	EnglishName     string           `yaml:"english_name,omitempty"`
	Position        [3]float32       `yaml:"position"` // Rest position in model space
	ParentIndex     int              `yaml:"parent"`   // -1 = root
	TransformOrder  int              `yaml:"transform_order"`
	Flag            BoneFlag         `yaml:"flag"`
	AppendTransform *AppendTransform `yaml:"append_transform,omitempty"`
	IK              *IK              `yaml:"ik,omitempty"`
}

// AppendTransform names the bone a fraction of whose transform is inherited.
type AppendTransform struct {
	ParentIndex int     `yaml:"parent"`
	Ratio       float32 `yaml:"ratio"`
}

// IK describes an IK solver owned by the bone.
type IK struct {
	Target             int      `yaml:"target"`
	Iteration          int      `yaml:"iteration"`
	RotationConstraint float32  `yaml:"rotation_constraint"` // radians per step
	Links              []IKLink `yaml:"links"`
}

// IKLink is one chain link, end effector side first.
type IKLink struct {
	Target     int           `yaml:"bone"`
	Limitation *IKLimitation `yaml:"limit,omitempty"`
}

// IKLimitation bounds a link's Euler angles in radians.
type IKLimitation struct {
	Min [3]float32 `yaml:"min"`
	Max [3]float32 `yaml:"max"`
}

// IsLocalAppend reports whether the append transform reads local space.
func (b *Bone) IsLocalAppend() bool {
	return b.Flag.Has(BoneFlagLocalAppendTransform)
}

// AffectsAppendRotation reports whether the append transform inherits rotation.
func (b *Bone) AffectsAppendRotation() bool {
	return b.Flag.Has(BoneFlagHasAppendRotate)
}

// AffectsAppendPosition reports whether the append transform inherits position.
func (b *Bone) AffectsAppendPosition() bool {
	return b.Flag.Has(BoneFlagHasAppendMove)
}

// TransformAfterPhysics reports whether the bone is evaluated after physics.
func (b *Bone) TransformAfterPhysics() bool {
	return b.Flag.Has(BoneFlagTransformAfterPhysics)
}
