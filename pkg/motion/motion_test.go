package motion

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
)

func TestLoadModelAnimation(t *testing.T) {
	anim, err := LoadModelAnimation("testdata/walk.yaml")
	if err != nil {
		t.Fatalf("LoadModelAnimation() error: %v", err)
	}

	if anim.Name != "walk" {
		t.Errorf("Name = %q, want %q", anim.Name, "walk")
	}
	if len(anim.BoneTracks) != 1 || len(anim.MovableBoneTracks) != 1 || len(anim.MorphTracks) != 1 {
		t.Fatalf("track counts = %d/%d/%d, want 1/1/1", len(anim.BoneTracks), len(anim.MovableBoneTracks), len(anim.MorphTracks))
	}

	knee := anim.BoneTracks[0]
	if knee.Name != "左ひざ" {
		t.Errorf("bone track name = %q", knee.Name)
	}
	if got := knee.Rotations[0:4]; got[3] != 1 {
		t.Errorf("omitted rotation = %v, want identity", got)
	}
	if got := knee.RotationInterpolations[4:8]; got[0] != 0 || got[1] != 127 {
		t.Errorf("rotation interpolation = %v, want [0 127 0 127]", got)
	}
	if got := knee.RotationInterpolations[0:4]; got[0] != 20 || got[1] != 107 || got[2] != 20 || got[3] != 107 {
		t.Errorf("default interpolation = %v, want linear", got)
	}

	center := anim.MovableBoneTracks[0]
	if len(center.PositionInterpolations) != 24 {
		t.Errorf("position interpolation length = %d, want 24", len(center.PositionInterpolations))
	}
	if center.Positions[4] != 2 {
		t.Errorf("Positions[4] = %v, want 2", center.Positions[4])
	}

	prop := anim.PropertyTrack
	if prop.Visibles[0] != 1 || prop.Visibles[1] != 0 {
		t.Errorf("Visibles = %v, want [1 0]", prop.Visibles)
	}
	if prop.IKStates[0][0] != 1 || prop.IKStates[0][1] != 0 {
		t.Errorf("IKStates = %v, want [[1 0]]", prop.IKStates)
	}

	if got := anim.StartFrame(); got != 0 {
		t.Errorf("StartFrame() = %v, want 0", got)
	}
	if got := anim.EndFrame(); got != 40 {
		t.Errorf("EndFrame() = %v, want 40", got)
	}
}

func TestLoadCameraAnimation(t *testing.T) {
	anim, err := LoadCameraAnimation("testdata/camera.yaml")
	if err != nil {
		t.Fatalf("LoadCameraAnimation() error: %v", err)
	}
	track := anim.CameraTrack
	if len(track.FrameNumbers) != 3 {
		t.Fatalf("frames = %d, want 3", len(track.FrameNumbers))
	}
	if track.Distances[1] != -30 || track.Fovs[1] != 45 {
		t.Errorf("keyframe 1 distance/fov = %v/%v, want -30/45", track.Distances[1], track.Fovs[1])
	}
	if anim.EndFrame() != 31 {
		t.Errorf("EndFrame() = %v, want 31", anim.EndFrame())
	}
}

func TestLoadModelAnimationMissing(t *testing.T) {
	_, err := LoadModelAnimation(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseModelAnimationFrameOrder(t *testing.T) {
	data := []byte(`
name: broken
morphs:
  - name: a
    keyframes:
      - {frame: 10, weight: 0}
      - {frame: 10, weight: 1}
  - name: b
    keyframes:
      - {frame: 5, weight: 0}
      - {frame: 1, weight: 1}
`)
	_, err := ParseModelAnimation(data)
	if err == nil {
		t.Fatal("expected frame order error")
	}
	if !errors.Is(err, ErrFrameOrder) {
		t.Errorf("error = %v, want ErrFrameOrder", err)
	}
}

func TestValidateAggregates(t *testing.T) {
	anim := NewModelAnimation("bad")
	bone := NewBoneTrack("a", 2)
	bone.FrameNumbers[0], bone.FrameNumbers[1] = 3, 1
	bone.Rotations = bone.Rotations[:5]
	anim.BoneTracks = append(anim.BoneTracks, bone)
	morph := NewMorphTrack("b", 1)
	morph.Weights = nil
	anim.MorphTracks = append(anim.MorphTracks, morph)

	errs := multierr.Errors(anim.Validate())
	want := []error{ErrFrameOrder, ErrTrackLength, ErrTrackLength}
	if len(errs) != len(want) {
		t.Fatalf("got %d errors (%v), want %d", len(errs), errs, len(want))
	}
	for i, w := range want {
		if !errors.Is(errs[i], w) {
			t.Errorf("errs[%d] = %v, want %v", i, errs[i], w)
		}
	}
}

func TestEmptyTrackBounds(t *testing.T) {
	track := NewBoneTrack("empty", 0)
	if track.StartFrame() != 0 || track.EndFrame() != 0 {
		t.Errorf("bounds = %v..%v, want 0..0", track.StartFrame(), track.EndFrame())
	}
	if err := track.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestClone(t *testing.T) {
	anim, err := LoadModelAnimation("testdata/walk.yaml")
	if err != nil {
		t.Fatalf("LoadModelAnimation() error: %v", err)
	}

	clone, err := anim.Clone("walk-copy")
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	if clone.Name != "walk-copy" || anim.Name != "walk" {
		t.Errorf("names = %q/%q", clone.Name, anim.Name)
	}

	clone.BoneTracks[0].Rotations[0] = 42
	clone.PropertyTrack.IKStates[0][0] = 0
	if anim.BoneTracks[0].Rotations[0] == 42 {
		t.Error("clone shares rotation storage with the source")
	}
	if anim.PropertyTrack.IKStates[0][0] != 1 {
		t.Error("clone shares ik state storage with the source")
	}

	cam, err := LoadCameraAnimation("testdata/camera.yaml")
	if err != nil {
		t.Fatalf("LoadCameraAnimation() error: %v", err)
	}
	camClone, err := cam.Clone("orbit-copy")
	if err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	camClone.CameraTrack.Fovs[0] = 90
	if cam.CameraTrack.Fovs[0] != 30 {
		t.Error("camera clone shares storage with the source")
	}
}

func TestLoadModelAnimationFromTempDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	content := "name: tmp\nmorphs:\n  - name: x\n    keyframes:\n      - {frame: 0, weight: 0.5}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	anim, err := LoadModelAnimation(path)
	if err != nil {
		t.Fatalf("LoadModelAnimation() error: %v", err)
	}
	if anim.MorphTracks[0].Weights[0] != 0.5 {
		t.Errorf("weight = %v, want 0.5", anim.MorphTracks[0].Weights[0])
	}
	if anim.PropertyTrack == nil || len(anim.PropertyTrack.FrameNumbers) != 0 {
		t.Error("expected an empty property track")
	}
}
