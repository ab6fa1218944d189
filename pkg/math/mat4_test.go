package math

import (
	"math"
	"testing"
)

func nearMat(t *testing.T, name string, got, want Mat4) {
	t.Helper()
	for i := range got {
		if abs(got[i]-want[i]) > 0.0001 {
			t.Errorf("%s element %d: got %f, want %f", name, i, got[i], want[i])
		}
	}
}

func nearVec3(a, b Vec3) bool {
	return abs(a.X-b.X) < 0.001 && abs(a.Y-b.Y) < 0.001 && abs(a.Z-b.Z) < 0.001
}

func TestIdentity(t *testing.T) {
	m := Identity()
	for i := range m {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if m[i] != want {
			t.Errorf("Identity()[%d] = %v, want %v", i, m[i], want)
		}
	}
	if got := Translate(1, 2, 3).Mul(m); got != Translate(1, 2, 3) {
		t.Errorf("M * I = %v, want M", got)
	}
}

func TestTransformVec3(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		in   Vec3
		want Vec3
	}{
		{"translate", Translate(10, 20, 30), Vec3{1, 2, 3}, Vec3{11, 22, 33}},
		{"scale", Scale(2, 3, 4), Vec3{1, 2, 3}, Vec3{2, 6, 12}},
		{"rotate x", RotateX(math.Pi / 2), Vec3{0, 1, 0}, Vec3{0, 0, 1}},
		// +X goes to -Z
		{"rotate y", RotateY(math.Pi / 2), Vec3{1, 0, 0}, Vec3{0, 0, -1}},
		{"rotate z", RotateZ(math.Pi / 2), Vec3{1, 0, 0}, Vec3{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.TransformVec3(tt.in); !nearVec3(got, tt.want) {
				t.Errorf("TransformVec3(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransformDirection(t *testing.T) {
	m := Translate(5, 5, 5).Mul(RotateZ(math.Pi / 2))
	if got := m.TransformDirection(Vec3{1, 0, 0}); !nearVec3(got, Vec3{0, 1, 0}) {
		t.Errorf("TransformDirection() = %v, want (0, 1, 0)", got)
	}
}

func TestPerspective(t *testing.T) {
	m := Perspective(math.Pi/2, 2, 0.1, 100)

	if abs(m[5]-1) > 0.0001 {
		t.Errorf("Perspective [5] = %f, want 1 for a 90 degree fov", m[5])
	}
	if abs(m[0]-0.5) > 0.0001 {
		t.Errorf("Perspective [0] = %f, want 0.5 for aspect 2", m[0])
	}
	if m[11] != -1 || m[15] != 0 {
		t.Errorf("Perspective w row = (%f, %f), want (-1, 0)", m[11], m[15])
	}
	// The near plane maps to -1.
	p := m.TransformVec3(Vec3{0, 0, -0.1})
	if abs(p.Z+1) > 0.001 {
		t.Errorf("near plane depth = %f, want -1", p.Z)
	}
}

func TestComposeDecompose(t *testing.T) {
	tests := []struct {
		name  string
		scale Vec3
		axis  Vec3
		angle float32
		pos   Vec3
	}{
		{"unit scale", Vec3{1, 1, 1}, Vec3{0, 1, 0}, math.Pi / 3, Vec3{1, 2, 3}},
		{"non uniform", Vec3{2, 0.5, 3}, Vec3{1, 0, 0}, 0.7, Vec3{-4, 0, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rot := QuatFromAxisAngle(tt.axis, tt.angle)
			m := Compose(tt.scale, rot, tt.pos)

			nearMat(t, "Compose", m, Translate(tt.pos.X, tt.pos.Y, tt.pos.Z).Mul(rot.ToMat4()).Mul(Scale(tt.scale.X, tt.scale.Y, tt.scale.Z)))

			scale, gotRot, pos := m.Decompose()
			if pos != tt.pos {
				t.Errorf("Decompose translation = %v, want %v", pos, tt.pos)
			}
			if !nearVec3(scale, tt.scale) {
				t.Errorf("Decompose scale = %v, want %v", scale, tt.scale)
			}
			if gotRot.AngleTo(rot) > 0.001 {
				t.Errorf("Decompose rotation = %v, want %v", gotRot, rot)
			}
		})
	}
}

func TestDecomposeDegenerate(t *testing.T) {
	_, rot, _ := Scale(1, 0, 1).Decompose()
	if rot != QuatIdentity() {
		t.Errorf("degenerate Decompose rotation = %v, want identity", rot)
	}
}

func TestInverse(t *testing.T) {
	m := Compose(Vec3{1, 2, 1}, QuatFromAxisAngle(Vec3{0, 0, 1}, 1.1), Vec3{-3, 4, 9})
	nearMat(t, "M * M^-1", m.Mul(m.Inverse()), Identity())

	if got := (Mat4{}).Inverse(); got != Identity() {
		t.Errorf("singular inverse should be identity, got %v", got)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
