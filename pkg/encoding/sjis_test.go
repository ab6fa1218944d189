package encoding

import (
	"testing"
)

func TestShiftJISRoundTrip(t *testing.T) {
	names := []string{"センター", "左足ＩＫ", "まばたき", "upper body"}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			encoded, err := EncodeShiftJIS(name)
			if err != nil {
				t.Fatalf("EncodeShiftJIS() error: %v", err)
			}
			got, err := DecodeShiftJIS(encoded)
			if err != nil {
				t.Fatalf("DecodeShiftJIS() error: %v", err)
			}
			if got != name {
				t.Errorf("round trip: got %q, want %q", got, name)
			}
		})
	}
}

func TestEncodeShiftJISUnsupported(t *testing.T) {
	if _, err := EncodeShiftJIS("bone 🦴"); err == nil {
		t.Error("expected error for a rune outside Shift-JIS")
	}
}

func TestShiftJISWidth(t *testing.T) {
	// Kana are double-byte, ASCII single-byte.
	encoded, _ := EncodeShiftJIS("センターA")
	if len(encoded) != 9 {
		t.Errorf("len = %d, want 9", len(encoded))
	}
}

func TestDecodeText(t *testing.T) {
	sjis, _ := EncodeShiftJIS("右腕")
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf8", []byte("右腕"), "右腕"},
		{"utf8 bom", append([]byte("\xef\xbb\xbf"), "右腕"...), "右腕"},
		{"shift-jis", sjis, "右腕"},
		{"ascii", []byte("Bone0{head"), "Bone0{head"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.data)
			if err != nil {
				t.Fatalf("DecodeText() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}
