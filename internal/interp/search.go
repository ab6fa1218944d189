package interp

import (
	"math"
	"sort"
)

// DefaultSearchWindow is the distance, in frames, under which a query walks
// from the previous result instead of bisecting.
const DefaultSearchWindow = 6

// FrameSearch finds the keyframe after a frame time for one track. It keeps
// the previous query so monotonic playback walks at most a few entries.
type FrameSearch struct {
	window    float32
	lastTime  float32
	lastIndex int
}

// NewFrameSearch creates a search with the given window. A non-positive
// window uses DefaultSearchWindow.
func NewFrameSearch(window int) *FrameSearch {
	s := &FrameSearch{window: DefaultSearchWindow}
	if window > 0 {
		s.window = float32(window)
	}
	s.Reset()
	return s
}

// Reset forgets the previous query.
func (s *FrameSearch) Reset() {
	s.lastTime = float32(math.Inf(-1))
	s.lastIndex = 0
}

// UpperBound returns the index of the first frame number strictly greater
// than frameTime, or len(frameNumbers) when there is none.
func (s *FrameSearch) UpperBound(frameTime float32, frameNumbers []uint32) int {
	var index int
	if d := frameTime - s.lastTime; d < s.window && d > -s.window {
		index = s.walk(frameTime, frameNumbers)
	} else {
		index = UpperBound(frameTime, frameNumbers)
	}
	s.lastTime = frameTime
	s.lastIndex = index
	return index
}

func (s *FrameSearch) walk(frameTime float32, frameNumbers []uint32) int {
	i := s.lastIndex
	if i > len(frameNumbers) {
		i = len(frameNumbers)
	}
	for i > 0 && frameTime < float32(frameNumbers[i-1]) {
		i--
	}
	for i < len(frameNumbers) && float32(frameNumbers[i]) <= frameTime {
		i++
	}
	return i
}

// UpperBound is the stateless binary search form.
func UpperBound(frameTime float32, frameNumbers []uint32) int {
	return sort.Search(len(frameNumbers), func(i int) bool {
		return frameTime < float32(frameNumbers[i])
	})
}
