package interp

import (
	"math"
	"testing"
)

func approx(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func TestBezierEndpoints(t *testing.T) {
	controls := []float32{0.1, 0.25, 0.5, 0.75, 0.9}
	for _, x1 := range controls {
		for _, x2 := range controls {
			for _, y1 := range []float32{0, 0.3, 1} {
				for _, y2 := range []float32{0, 0.6, 1} {
					if got := Bezier(x1, x2, y1, y2, 0); !approx(got, 0, 1e-3) {
						t.Errorf("Bezier(%v,%v,%v,%v,0) = %v, want 0", x1, x2, y1, y2, got)
					}
					if got := Bezier(x1, x2, y1, y2, 1); !approx(got, 1, 1e-3) {
						t.Errorf("Bezier(%v,%v,%v,%v,1) = %v, want 1", x1, x2, y1, y2, got)
					}
				}
			}
		}
	}
}

func TestBezierBounded(t *testing.T) {
	steps := []float32{0, 0.2, 0.4, 0.6, 0.8, 1}
	for _, x1 := range steps {
		for _, x2 := range steps {
			for _, y1 := range steps {
				for _, y2 := range steps {
					for _, x := range steps {
						got := Bezier(x1, x2, y1, y2, x)
						if got < -1e-4 || got > 1+1e-4 {
							t.Fatalf("Bezier(%v,%v,%v,%v,%v) = %v out of [0,1]", x1, x2, y1, y2, x, got)
						}
					}
				}
			}
		}
	}
}

func TestBezierLinear(t *testing.T) {
	if got := BezierBytes([]uint8{0, 127, 0, 127}, 0, 0.5); got != 0.5 {
		t.Errorf("linear midpoint = %v, want exactly 0.5", got)
	}

	tests := []float32{0.1, 0.25, 0.7, 0.9}
	for _, x := range tests {
		if got := BezierBytes([]uint8{20, 107, 20, 107}, 0, x); !approx(got, x, 1e-3) {
			t.Errorf("linear curve at %v = %v", x, got)
		}
	}
}

func TestBezierBytesOffset(t *testing.T) {
	b := []uint8{0, 0, 0, 0, 0, 127, 0, 127}
	if got := BezierBytes(b, 4, 0.5); got != 0.5 {
		t.Errorf("BezierBytes at offset 4 = %v, want 0.5", got)
	}
}

func TestBezierEaseIn(t *testing.T) {
	// Slow start: curve stays below the diagonal
	got := Bezier(0.8, 1, 0, 1, 0.3)
	if got >= 0.3 {
		t.Errorf("ease-in at 0.3 = %v, want < 0.3", got)
	}
}

func TestUpperBound(t *testing.T) {
	frames := []uint32{0, 10, 20, 30}
	tests := []struct {
		time float32
		want int
	}{
		{-1, 0},
		{0, 1},
		{5, 1},
		{10, 2},
		{15, 2},
		{29.5, 3},
		{30, 4},
		{100, 4},
	}

	for _, tt := range tests {
		if got := UpperBound(tt.time, frames); got != tt.want {
			t.Errorf("UpperBound(%v) = %d, want %d", tt.time, got, tt.want)
		}
	}

	if got := UpperBound(3, nil); got != 0 {
		t.Errorf("UpperBound on empty = %d, want 0", got)
	}
}

func TestFrameSearchPathsAgree(t *testing.T) {
	frames := []uint32{0, 10, 20, 30}

	// First query bisects, the rest walk
	s := NewFrameSearch(DefaultSearchWindow)
	if got := s.UpperBound(15, frames); got != 2 {
		t.Errorf("binary path UpperBound(15) = %d, want 2", got)
	}
	if got := s.UpperBound(15, frames); got != 2 {
		t.Errorf("incremental path UpperBound(15) = %d, want 2", got)
	}

	// Walks forward from 0 in small steps
	walk := NewFrameSearch(DefaultSearchWindow)
	for time := float32(0); time <= 15; time += 0.5 {
		walk.UpperBound(time, frames)
	}
	if walk.lastIndex != 2 {
		t.Errorf("incremental walk ended at %d, want 2", walk.lastIndex)
	}

	sequence := []float32{0, 1, 4, 9.5, 10, 12, 30, 28, 25, 19.9, 20, 3, 2.5, 31, 29}
	incremental := NewFrameSearch(DefaultSearchWindow)
	for _, time := range sequence {
		got := incremental.UpperBound(time, frames)
		if want := UpperBound(time, frames); got != want {
			t.Errorf("UpperBound(%v) = %d, binary search gives %d", time, got, want)
		}
	}
}

func TestFrameSearchWindow(t *testing.T) {
	frames := make([]uint32, 100)
	for i := range frames {
		frames[i] = uint32(i)
	}

	s := NewFrameSearch(0)
	if s.window != DefaultSearchWindow {
		t.Errorf("window = %v, want default %d", s.window, DefaultSearchWindow)
	}

	wide := NewFrameSearch(50)
	wide.UpperBound(0, frames)
	if got := wide.UpperBound(40, frames); got != 41 {
		t.Errorf("wide walk UpperBound(40) = %d, want 41", got)
	}

	s.UpperBound(50, frames)
	s.Reset()
	if !math.IsInf(float64(s.lastTime), -1) || s.lastIndex != 0 {
		t.Errorf("Reset left state %v/%d", s.lastTime, s.lastIndex)
	}
}

func TestFrameSearchTrackChange(t *testing.T) {
	// A stale index beyond a shorter track must not overrun it
	s := NewFrameSearch(DefaultSearchWindow)
	s.UpperBound(9, []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	if got := s.UpperBound(9, []uint32{0, 5}); got != 2 {
		t.Errorf("UpperBound on shorter track = %d, want 2", got)
	}
}
