package motion

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Faultbox/mmd-runtime/pkg/encoding"
)

func TestLoadPose(t *testing.T) {
	pose, err := LoadPose("testdata/kneel.vpd")
	if err != nil {
		t.Fatalf("LoadPose() error: %v", err)
	}

	if pose.ModelName != "leg.osm" {
		t.Errorf("ModelName = %q, want leg.osm", pose.ModelName)
	}
	if len(pose.Bones) != 2 {
		t.Fatalf("got %d bones, want 2", len(pose.Bones))
	}
	center := pose.Bones[0]
	if center.Name != "センター" || center.Position != [3]float32{0, 1.5, 0} {
		t.Errorf("bone 0 = %+v", center)
	}
	knee := pose.Bones[1]
	if knee.Name != "左ひざ" || knee.Rotation[0] != 0.382683 || knee.Rotation[3] != 0.92388 {
		t.Errorf("bone 1 = %+v", knee)
	}
	if len(pose.Morphs) != 1 || pose.Morphs[0] != (PoseMorph{Name: "笑い", Weight: 0.5}) {
		t.Errorf("morphs = %+v", pose.Morphs)
	}
}

func TestParsePoseUTF8(t *testing.T) {
	data := []byte("Vocaloid Pose Data file\n\nmodel.osm;\n1;\n\nBone0{右腕\n  0,0,0;\n  0,0,0,1;\n}\n")
	pose, err := ParsePose(data)
	if err != nil {
		t.Fatalf("ParsePose() error: %v", err)
	}
	if pose.Bones[0].Name != "右腕" {
		t.Errorf("Name = %q, want 右腕", pose.Bones[0].Name)
	}
	if len(pose.Morphs) != 0 {
		t.Errorf("got %d morphs, want 0", len(pose.Morphs))
	}
}

func TestParsePoseErrors(t *testing.T) {
	const header = "Vocaloid Pose Data file\nm.osm;\n"
	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty", "", ErrPoseSignature},
		{"signature", "Vocaloid Motion Data 0002\nm;\n0;\n", ErrPoseSignature},
		{"count", header + "two;\n", ErrPoseSyntax},
		{"missing semicolon", header + "1;\nBone0{a\n  0,0,0\n  0,0,0,1;\n}\n", ErrPoseSyntax},
		{"value count", header + "1;\nBone0{a\n  0,0;\n  0,0,0,1;\n}\n", ErrPoseSyntax},
		{"value", header + "1;\nBone0{a\n  0,x,0;\n  0,0,0,1;\n}\n", ErrPoseSyntax},
		{"unterminated", header + "1;\nBone0{a\n  0,0,0;\n  0,0,0,1;\n", ErrPoseSyntax},
		{"unknown block", header + "0;\nLight0{a\n  1;\n}\n", ErrPoseSyntax},
		{"bone count", header + "2;\nBone0{a\n  0,0,0;\n  0,0,0,1;\n}\n", ErrPoseCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePose([]byte(tt.text))
			if !errors.Is(err, tt.want) {
				t.Errorf("ParsePose() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPoseEncodeRoundTrip(t *testing.T) {
	pose := &Pose{
		ModelName: "leg.osm",
		Bones: []PoseBone{
			{Name: "左足ＩＫ", Position: [3]float32{0.25, -1, 2}, Rotation: [4]float32{0, 0, 0, 1}},
		},
		Morphs: []PoseMorph{{Name: "まばたき", Weight: 1}},
	}

	var buf bytes.Buffer
	if err := pose.Encode(&buf); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	sig, _ := encoding.EncodeShiftJIS(PoseSignature + "\r\n")
	if !bytes.HasPrefix(buf.Bytes(), sig) {
		t.Errorf("encoded pose does not start with the signature: %q", buf.Bytes()[:32])
	}

	got, err := ParsePose(buf.Bytes())
	if err != nil {
		t.Fatalf("ParsePose() error: %v", err)
	}
	if got.ModelName != pose.ModelName || got.Bones[0] != pose.Bones[0] || got.Morphs[0] != pose.Morphs[0] {
		t.Errorf("round trip = %+v, want %+v", got, pose)
	}
}

func TestPoseEncodeUnsupportedName(t *testing.T) {
	pose := &Pose{Bones: []PoseBone{{Name: "🦴", Rotation: [4]float32{0, 0, 0, 1}}}}
	if err := pose.Encode(&bytes.Buffer{}); err == nil {
		t.Error("expected error for a name outside Shift-JIS")
	}
}

func TestPoseAnimation(t *testing.T) {
	pose, err := LoadPose("testdata/kneel.vpd")
	if err != nil {
		t.Fatalf("LoadPose() error: %v", err)
	}
	anim := pose.Animation("kneel")

	if err := anim.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if anim.Name != "kneel" {
		t.Errorf("Name = %q, want kneel", anim.Name)
	}
	if len(anim.MovableBoneTracks) != 1 || anim.MovableBoneTracks[0].Name != "センター" {
		t.Fatalf("movable tracks = %+v", anim.MovableBoneTracks)
	}
	if got := anim.MovableBoneTracks[0].Positions[1]; got != 1.5 {
		t.Errorf("center y = %v, want 1.5", got)
	}
	if len(anim.BoneTracks) != 1 || anim.BoneTracks[0].Name != "左ひざ" {
		t.Fatalf("bone tracks = %+v", anim.BoneTracks)
	}
	if got := anim.BoneTracks[0].RotationInterpolations; !bytes.Equal(got, linear[:]) {
		t.Errorf("interpolation = %v, want linear", got)
	}
	if len(anim.MorphTracks) != 1 || anim.MorphTracks[0].Weights[0] != 0.5 {
		t.Errorf("morph tracks = %+v", anim.MorphTracks)
	}
	if anim.StartFrame() != 0 || anim.EndFrame() != 0 {
		t.Errorf("frames = %v..%v, want 0..0", anim.StartFrame(), anim.EndFrame())
	}
}
