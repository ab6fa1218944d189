package animation

import "github.com/tanema/gween/ease"

// AnimationSpan places a slice of an animation on the composite timeline.
type AnimationSpan struct {
	Animation Bindable

	// StartFrame and EndFrame slice the animation, in its own frames.
	StartFrame float32
	EndFrame   float32
	// Offset is where StartFrame lands on the composite timeline.
	Offset float32
	Weight float32

	// EasingFunction shapes the ease-in and ease-out weight ramps. Nil is linear.
	EasingFunction   ease.TweenFunc
	EaseInFrameTime  float32
	EaseOutFrameTime float32
}

// NewAnimationSpan covers the whole animation with weight 1.
func NewAnimationSpan(anim Bindable) *AnimationSpan {
	return &AnimationSpan{
		Animation:  anim,
		StartFrame: anim.StartFrame(),
		EndFrame:   anim.EndFrame(),
		Weight:     1,
	}
}

// Name returns the animation name.
func (s *AnimationSpan) Name() string { return s.Animation.AnimationName() }

// Duration returns the span length in frames.
func (s *AnimationSpan) Duration() float32 { return s.EndFrame - s.StartFrame }

// StartFrameWithOffset returns the span start on the composite timeline.
func (s *AnimationSpan) StartFrameWithOffset() float32 { return s.StartFrame + s.Offset }

// EndFrameWithOffset returns the span end on the composite timeline.
func (s *AnimationSpan) EndFrameWithOffset() float32 { return s.EndFrame + s.Offset }

// IsInSpan reports whether a composite frame time falls inside the span.
func (s *AnimationSpan) IsInSpan(frameTime float32) bool {
	return s.StartFrameWithOffset() <= frameTime && frameTime <= s.EndFrameWithOffset()
}

// GetFrameTime converts a composite frame time to the animation's frames.
func (s *AnimationSpan) GetFrameTime(frameTime float32) float32 {
	return frameTime - s.Offset
}

// GetEasedWeight returns the weight at a span-local frame time. It ramps
// from 0 over EaseInFrameTime after the start and back to 0 over
// EaseOutFrameTime before the end.
func (s *AnimationSpan) GetEasedWeight(frameTime float32) float32 {
	start, end := s.StartFrame, s.EndFrame

	if abs32(frameTime-start) < abs32(frameTime-end) {
		switch {
		case start+s.EaseInFrameTime <= frameTime:
			return s.Weight
		case frameTime <= start:
			return 0
		}
		return s.Weight * s.ease((frameTime-start)/s.EaseInFrameTime)
	}

	switch {
	case frameTime <= end-s.EaseOutFrameTime:
		return s.Weight
	case end <= frameTime:
		return 0
	}
	return s.Weight * (1 - s.ease((frameTime-end+s.EaseOutFrameTime)/s.EaseOutFrameTime))
}

func (s *AnimationSpan) ease(x float32) float32 {
	if s.EasingFunction == nil {
		return x
	}
	return s.EasingFunction(x, 0, 1, 1)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
