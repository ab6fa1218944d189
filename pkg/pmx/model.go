package pmx

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Validation errors.
var (
	ErrParentIndex   = errors.New("parent index out of range")
	ErrSelfParent    = errors.New("bone is its own parent")
	ErrAppendTarget  = errors.New("append transform target out of range")
	ErrIKTarget      = errors.New("ik target out of range")
	ErrIKLink        = errors.New("ik link bone out of range")
	ErrMorphElement  = errors.New("morph element index out of range")
	ErrMaterialIndex = errors.New("material morph index out of range")
)

// Model is the decoded metadata of one model.
type Model struct {
	Name           string     `yaml:"name"`
	Bones          []Bone     `yaml:"bones"`
	Morphs         []Morph    `yaml:"morphs"`
	Materials      []Material `yaml:"materials"`
	RigidBodyCount int        `yaml:"rigid_body_count"`
}

// BoneIndex returns the index of the named bone, or -1.
func (m *Model) BoneIndex(name string) int {
	for i := range m.Bones {
		if m.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks every cross reference and returns all problems combined.
// Use multierr.Errors to split the result.
func (m *Model) Validate() error {
	var err error
	boneCount := len(m.Bones)
	inRange := func(i, n int) bool { return 0 <= i && i < n }

	for i := range m.Bones {
		bone := &m.Bones[i]
		if bone.ParentIndex == i {
			err = multierr.Append(err, fmt.Errorf("bone %d %q: %w", i, bone.Name, ErrSelfParent))
		} else if bone.ParentIndex != -1 && !inRange(bone.ParentIndex, boneCount) {
			err = multierr.Append(err, fmt.Errorf("bone %d %q: parent %d: %w", i, bone.Name, bone.ParentIndex, ErrParentIndex))
		}
		if at := bone.AppendTransform; at != nil && !inRange(at.ParentIndex, boneCount) {
			err = multierr.Append(err, fmt.Errorf("bone %d %q: append target %d: %w", i, bone.Name, at.ParentIndex, ErrAppendTarget))
		}
		if ik := bone.IK; ik != nil {
			if !inRange(ik.Target, boneCount) {
				err = multierr.Append(err, fmt.Errorf("bone %d %q: ik target %d: %w", i, bone.Name, ik.Target, ErrIKTarget))
			}
			for j, link := range ik.Links {
				if !inRange(link.Target, boneCount) {
					err = multierr.Append(err, fmt.Errorf("bone %d %q: ik link %d bone %d: %w", i, bone.Name, j, link.Target, ErrIKLink))
				}
			}
		}
	}

	for i := range m.Morphs {
		morph := &m.Morphs[i]
		switch morph.Kind {
		case MorphKindGroup:
			for _, e := range morph.Group {
				if !inRange(e.Index, len(m.Morphs)) {
					err = multierr.Append(err, fmt.Errorf("morph %d %q: group element %d: %w", i, morph.Name, e.Index, ErrMorphElement))
				}
			}
		case MorphKindBone:
			for _, e := range morph.Bones {
				if !inRange(e.Index, boneCount) {
					err = multierr.Append(err, fmt.Errorf("morph %d %q: bone element %d: %w", i, morph.Name, e.Index, ErrMorphElement))
				}
			}
		case MorphKindMaterial:
			for _, e := range morph.Materials {
				if e.Index != -1 && !inRange(e.Index, len(m.Materials)) {
					err = multierr.Append(err, fmt.Errorf("morph %d %q: material %d: %w", i, morph.Name, e.Index, ErrMaterialIndex))
				}
			}
		}
	}

	return err
}

// ParseModel decodes model metadata from YAML.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}
	return &m, nil
}

// LoadModel reads model metadata from a YAML file and validates it.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
