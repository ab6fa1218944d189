package motion

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/mmd-runtime/pkg/encoding"
)

// PoseSignature is the first line of every VPD file.
const PoseSignature = "Vocaloid Pose Data file"

// Pose errors.
var (
	ErrPoseSignature = errors.New("not a vocaloid pose data file")
	ErrPoseSyntax    = errors.New("malformed pose data")
	ErrPoseCount     = errors.New("pose bone count does not match the bone blocks")
)

// PoseBone is one bone block: a position offset from rest and a rotation.
type PoseBone struct {
	Name     string
	Position [3]float32
	Rotation [4]float32 // xyzw
}

// PoseMorph is one morph block.
type PoseMorph struct {
	Name   string
	Weight float32
}

// Pose is a single-frame model pose as stored in a VPD file.
type Pose struct {
	ModelName string // Parent file the pose was saved from, usually *.osm
	Bones     []PoseBone
	Morphs    []PoseMorph
}

// poseLine is a comment-free, trimmed, non-empty source line.
type poseLine struct {
	n    int
	text string
}

func poseLines(text string) []poseLine {
	var lines []poseLine
	for i, raw := range strings.Split(text, "\n") {
		if c := strings.Index(raw, "//"); c >= 0 {
			raw = raw[:c]
		}
		if s := strings.TrimSpace(raw); s != "" {
			lines = append(lines, poseLine{n: i + 1, text: s})
		}
	}
	return lines
}

func (l poseLine) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", l.n, fmt.Sprintf(format, args...), ErrPoseSyntax)
}

// statement strips the trailing semicolon of a value line.
func (l poseLine) statement() (string, error) {
	s, ok := strings.CutSuffix(l.text, ";")
	if !ok {
		return "", l.errorf("missing ';' after %q", l.text)
	}
	return strings.TrimSpace(s), nil
}

func (l poseLine) floats(want int) ([]float32, error) {
	s, err := l.statement()
	if err != nil {
		return nil, err
	}
	fields := strings.Split(s, ",")
	if len(fields) != want {
		return nil, l.errorf("got %d values, want %d", len(fields), want)
	}
	out := make([]float32, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, l.errorf("value %q", f)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// ParsePose decodes VPD text, either Shift-JIS or UTF-8.
func ParsePose(data []byte) (*Pose, error) {
	text, err := encoding.DecodeText(data)
	if err != nil {
		return nil, err
	}
	lines := poseLines(strings.ReplaceAll(text, "\r\n", "\n"))
	if len(lines) < 3 || lines[0].text != PoseSignature {
		return nil, ErrPoseSignature
	}

	pose := &Pose{}
	if pose.ModelName, err = lines[1].statement(); err != nil {
		return nil, err
	}
	countText, err := lines[2].statement()
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(countText)
	if err != nil || count < 0 {
		return nil, lines[2].errorf("bone count %q", countText)
	}

	rest := lines[3:]
	for len(rest) > 0 {
		head := rest[0]
		open := strings.IndexByte(head.text, '{')
		if open < 0 {
			return nil, head.errorf("expected a Bone or Morph block, got %q", head.text)
		}
		kind, name := head.text[:open], strings.TrimSpace(head.text[open+1:])

		var size int
		switch {
		case strings.HasPrefix(kind, "Bone"):
			size = 2
		case strings.HasPrefix(kind, "Morph"):
			size = 1
		default:
			return nil, head.errorf("unknown block %q", kind)
		}
		if len(rest) < size+2 || rest[size+1].text != "}" {
			return nil, head.errorf("unterminated %s block", kind)
		}

		if size == 2 {
			pos, err := rest[1].floats(3)
			if err != nil {
				return nil, err
			}
			rot, err := rest[2].floats(4)
			if err != nil {
				return nil, err
			}
			b := PoseBone{Name: name}
			copy(b.Position[:], pos)
			copy(b.Rotation[:], rot)
			pose.Bones = append(pose.Bones, b)
		} else {
			w, err := rest[1].floats(1)
			if err != nil {
				return nil, err
			}
			pose.Morphs = append(pose.Morphs, PoseMorph{Name: name, Weight: w[0]})
		}
		rest = rest[size+2:]
	}

	if len(pose.Bones) != count {
		return nil, fmt.Errorf("header says %d, found %d: %w", count, len(pose.Bones), ErrPoseCount)
	}
	return pose, nil
}

// LoadPose reads a VPD file from disk.
func LoadPose(path string) (*Pose, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pose: %w", err)
	}
	pose, err := ParsePose(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pose, nil
}

// Encode writes the pose as Shift-JIS VPD text with CRLF line endings.
func (p *Pose) Encode(w io.Writer) error {
	var sb strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&sb, format, args...)
		sb.WriteString("\r\n")
	}

	line(PoseSignature)
	line("")
	line("%s;\t\t// 親ファイル名", p.ModelName)
	line("%d;\t\t\t\t// 総ポーズボーン数", len(p.Bones))
	line("")
	for i, b := range p.Bones {
		line("Bone%d{%s", i, b.Name)
		line("  %.6f,%.6f,%.6f;\t\t\t\t// trans x,y,z", b.Position[0], b.Position[1], b.Position[2])
		line("  %.6f,%.6f,%.6f,%.6f;\t\t// Quaternion x,y,z,w", b.Rotation[0], b.Rotation[1], b.Rotation[2], b.Rotation[3])
		line("}")
		line("")
	}
	for i, m := range p.Morphs {
		line("Morph%d{%s", i, m.Name)
		line("  %.6f;", m.Weight)
		line("}")
		line("")
	}

	data, err := encoding.EncodeShiftJIS(sb.String())
	if err != nil {
		return fmt.Errorf("pose: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Animation converts the pose to a one-key animation at frame 0. Bones
// with a position offset get a movable track.
func (p *Pose) Animation(name string) *ModelAnimation {
	anim := NewModelAnimation(name)
	for _, b := range p.Bones {
		if b.Position != ([3]float32{}) {
			t := NewMovableBoneTrack(b.Name, 1)
			copy(t.Positions, b.Position[:])
			l := linear3()
			copy(t.PositionInterpolations, l[:])
			copy(t.Rotations, b.Rotation[:])
			copy(t.RotationInterpolations, linear[:])
			anim.MovableBoneTracks = append(anim.MovableBoneTracks, t)
			continue
		}
		t := NewBoneTrack(b.Name, 1)
		copy(t.Rotations, b.Rotation[:])
		copy(t.RotationInterpolations, linear[:])
		anim.BoneTracks = append(anim.BoneTracks, t)
	}
	for _, m := range p.Morphs {
		t := NewMorphTrack(m.Name, 1)
		t.Weights[0] = m.Weight
		anim.MorphTracks = append(anim.MorphTracks, t)
	}
	return anim
}
