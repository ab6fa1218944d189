package motion

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"
	"go.uber.org/multierr"
)

// ModelAnimation is the decoded track set for one model motion.
type ModelAnimation struct {
	Name              string
	BoneTracks        []*BoneTrack
	MovableBoneTracks []*MovableBoneTrack
	MorphTracks       []*MorphTrack
	PropertyTrack     *PropertyTrack
}

// NewModelAnimation creates an empty animation with an empty property track.
func NewModelAnimation(name string) *ModelAnimation {
	return &ModelAnimation{
		Name:          name,
		PropertyTrack: NewPropertyTrack(0, nil),
	}
}

// StartFrame returns the earliest keyframe over all tracks.
func (a *ModelAnimation) StartFrame() float32 {
	first := true
	var start float32
	visit := func(frames []uint32) {
		if len(frames) == 0 {
			return
		}
		if f := float32(frames[0]); first || f < start {
			start = f
			first = false
		}
	}
	a.eachFrames(visit)
	return start
}

// EndFrame returns the latest keyframe over all tracks.
func (a *ModelAnimation) EndFrame() float32 {
	var end float32
	a.eachFrames(func(frames []uint32) {
		if f := endFrame(frames); f > end {
			end = f
		}
	})
	return end
}

func (a *ModelAnimation) eachFrames(fn func([]uint32)) {
	for _, t := range a.BoneTracks {
		fn(t.FrameNumbers)
	}
	for _, t := range a.MovableBoneTracks {
		fn(t.FrameNumbers)
	}
	for _, t := range a.MorphTracks {
		fn(t.FrameNumbers)
	}
	if a.PropertyTrack != nil {
		fn(a.PropertyTrack.FrameNumbers)
	}
}

// Validate checks every track and returns all problems found.
func (a *ModelAnimation) Validate() error {
	var err error
	for _, t := range a.BoneTracks {
		err = multierr.Append(err, t.Validate())
	}
	for _, t := range a.MovableBoneTracks {
		err = multierr.Append(err, t.Validate())
	}
	for _, t := range a.MorphTracks {
		err = multierr.Append(err, t.Validate())
	}
	if a.PropertyTrack != nil {
		err = multierr.Append(err, a.PropertyTrack.Validate())
	}
	return err
}

// Clone returns an independent deep copy under a new name.
func (a *ModelAnimation) Clone(name string) (*ModelAnimation, error) {
	var out ModelAnimation
	if err := deepcopy.Copy(&out, a); err != nil {
		return nil, fmt.Errorf("clone animation %q: %w", a.Name, err)
	}
	out.Name = name
	return &out, nil
}

// CameraAnimation is the decoded track for one camera motion.
type CameraAnimation struct {
	Name        string
	CameraTrack *CameraTrack
}

// NewCameraAnimation creates an empty camera animation.
func NewCameraAnimation(name string) *CameraAnimation {
	return &CameraAnimation{Name: name, CameraTrack: NewCameraTrack(0)}
}

// StartFrame returns the first camera keyframe.
func (a *CameraAnimation) StartFrame() float32 { return a.CameraTrack.StartFrame() }

// EndFrame returns the last camera keyframe.
func (a *CameraAnimation) EndFrame() float32 { return a.CameraTrack.EndFrame() }

// Validate checks the camera track.
func (a *CameraAnimation) Validate() error {
	return a.CameraTrack.Validate()
}

// Clone returns an independent deep copy under a new name.
func (a *CameraAnimation) Clone(name string) (*CameraAnimation, error) {
	var out CameraAnimation
	if err := deepcopy.Copy(&out, a); err != nil {
		return nil, fmt.Errorf("clone camera animation %q: %w", a.Name, err)
	}
	out.Name = name
	return &out, nil
}
