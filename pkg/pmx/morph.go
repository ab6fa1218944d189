package pmx

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MorphKind tags the payload carried by a Morph.
type MorphKind uint8

// Morph kinds. UV1..UV4 morphs share MorphKindUV.
const (
	MorphKindGroup MorphKind = iota
	MorphKindVertex
	MorphKindBone
	MorphKindUV
	MorphKindMaterial
)

var morphKindNames = [...]string{"group", "vertex", "bone", "uv", "material"}

// String returns the lowercase kind name.
func (k MorphKind) String() string {
	if int(k) < len(morphKindNames) {
		return morphKindNames[k]
	}
	return fmt.Sprintf("MorphKind(%d)", k)
}

// UnmarshalYAML decodes a kind name.
func (k *MorphKind) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	for i, n := range morphKindNames {
		if strings.EqualFold(n, name) {
			*k = MorphKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown morph kind %q", name)
}

// MarshalYAML encodes the kind name.
func (k MorphKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// Morph is one named morph. Only the payload matching Kind is populated.
type Morph struct {
	Name      string            `yaml:"name"`
	Kind      MorphKind         `yaml:"kind"`
	Group     []GroupElement    `yaml:"group,omitempty"`
	Bones     []BoneElement     `yaml:"bones,omitempty"`
	Materials []MaterialElement `yaml:"materials,omitempty"`
	Target    int               `yaml:"target,omitempty"` // Blend-shape target for vertex/UV morphs
}

// GroupElement references another morph by index.
type GroupElement struct {
	Index int     `yaml:"index"`
	Ratio float32 `yaml:"ratio"`
}

// BoneElement offsets one bone.
type BoneElement struct {
	Index    int        `yaml:"index"`
	Position [3]float32 `yaml:"position"`
	Rotation [4]float32 `yaml:"rotation"` // xyzw
}

// MaterialOp selects how a material element combines with the base value.
type MaterialOp uint8

// Material morph operations.
const (
	MaterialOpMultiply MaterialOp = iota
	MaterialOpAdd
)

// UnmarshalYAML decodes "multiply" or "add".
func (o *MaterialOp) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	switch strings.ToLower(name) {
	case "multiply", "mul":
		*o = MaterialOpMultiply
	case "add":
		*o = MaterialOpAdd
	default:
		return fmt.Errorf("unknown material morph op %q", name)
	}
	return nil
}

// MaterialElement adjusts one material, or all of them when Index is -1.
type MaterialElement struct {
	Index              int        `yaml:"index"`
	Op                 MaterialOp `yaml:"op"`
	Diffuse            [4]float32 `yaml:"diffuse"`
	Specular           [3]float32 `yaml:"specular"`
	Shininess          float32    `yaml:"shininess"`
	Ambient            [3]float32 `yaml:"ambient"`
	EdgeColor          [4]float32 `yaml:"edge_color"`
	EdgeSize           float32    `yaml:"edge_size"`
	TextureColor       [4]float32 `yaml:"texture_color"`
	SphereTextureColor [4]float32 `yaml:"sphere_texture_color"`
	ToonTextureColor   [4]float32 `yaml:"toon_texture_color"`
}

// Material is the base state of one material.
type Material struct {
	Name      string     `yaml:"name"`
	Diffuse   [4]float32 `yaml:"diffuse"`
	Specular  [3]float32 `yaml:"specular"`
	Shininess float32    `yaml:"shininess"`
	Ambient   [3]float32 `yaml:"ambient"`
	EdgeColor [4]float32 `yaml:"edge_color"`
	EdgeSize  float32    `yaml:"edge_size"`
}
