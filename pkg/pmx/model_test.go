package pmx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
)

func TestLoadModel(t *testing.T) {
	m, err := LoadModel("testdata/leg.yaml")
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	if len(m.Bones) != 6 {
		t.Fatalf("expected 6 bones, got %d", len(m.Bones))
	}
	if m.Bones[0].ParentIndex != -1 {
		t.Errorf("expected root parent -1, got %d", m.Bones[0].ParentIndex)
	}
	if !m.Bones[0].Flag.Has(BoneFlagIsMovable) {
		t.Error("expected center bone to be movable")
	}

	ik := m.Bones[4].IK
	if ik == nil {
		t.Fatal("expected IK on bone 4")
	}
	if ik.Target != 3 || ik.Iteration != 40 || len(ik.Links) != 2 {
		t.Errorf("unexpected IK %+v", ik)
	}
	if ik.Links[0].Limitation == nil || ik.Links[1].Limitation != nil {
		t.Error("expected only the knee link to be limited")
	}

	// 0x011A = rotatable | visible | controllable | append rotate
	d := &m.Bones[5]
	if !d.AffectsAppendRotation() || d.AffectsAppendPosition() || d.IsLocalAppend() {
		t.Errorf("unexpected append flags %#x", d.Flag)
	}

	if m.Morphs[1].Kind != MorphKindMaterial || m.Morphs[1].Materials[0].Op != MaterialOpAdd {
		t.Errorf("unexpected material morph %+v", m.Morphs[1])
	}
	if m.Morphs[2].Kind != MorphKindGroup || len(m.Morphs[2].Group) != 2 {
		t.Errorf("unexpected group morph %+v", m.Morphs[2])
	}
	if m.RigidBodyCount != 2 {
		t.Errorf("expected 2 rigid bodies, got %d", m.RigidBodyCount)
	}
	if idx := m.BoneIndex("左ひざ"); idx != 2 {
		t.Errorf("BoneIndex: got %d, want 2", idx)
	}
}

func TestValidateAggregates(t *testing.T) {
	m := &Model{
		Bones: []Bone{
			{Name: "a", ParentIndex: -1},
			{Name: "b", ParentIndex: 1},
			{Name: "c", ParentIndex: 7, AppendTransform: &AppendTransform{ParentIndex: 9, Ratio: 1}},
			{Name: "d", ParentIndex: 0, IK: &IK{Target: 12, Links: []IKLink{{Target: 13}}}},
		},
		Morphs: []Morph{
			{Name: "g", Kind: MorphKindGroup, Group: []GroupElement{{Index: 4, Ratio: 1}}},
			{Name: "m", Kind: MorphKindMaterial, Materials: []MaterialElement{{Index: -1}, {Index: 3}}},
		},
	}

	err := m.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	want := []error{ErrSelfParent, ErrParentIndex, ErrAppendTarget, ErrIKTarget, ErrIKLink, ErrMorphElement, ErrMaterialIndex}
	errs := multierr.Errors(err)
	if len(errs) != len(want) {
		t.Fatalf("expected %d errors, got %d: %v", len(want), len(errs), err)
	}
	for i, w := range want {
		if !errors.Is(errs[i], w) {
			t.Errorf("error %d: got %v, want %v", i, errs[i], w)
		}
	}
}

func TestValidateClean(t *testing.T) {
	m, err := LoadModel("testdata/leg.yaml")
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("expected no errors, got %v", err)
	}
}

func TestLoadModelUnknownFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := "bones:\n  - name: x\n    parent: -1\n    flag: [spinning]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := LoadModel(path); err == nil {
		t.Error("expected error for unknown bone flag")
	}
}

func TestMorphKindString(t *testing.T) {
	if MorphKindMaterial.String() != "material" {
		t.Errorf("got %q", MorphKindMaterial.String())
	}
	if MorphKind(42).String() != "MorphKind(42)" {
		t.Errorf("got %q", MorphKind(42).String())
	}
}
