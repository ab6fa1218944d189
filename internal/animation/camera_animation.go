package animation

import (
	gomath "math"

	"github.com/Faultbox/mmd-runtime/internal/camera"
	"github.com/Faultbox/mmd-runtime/internal/interp"
	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/motion"
)

const degToRad = gomath.Pi / 180

// CameraAnimation is a camera motion bound to one camera.
type CameraAnimation struct {
	Animation *motion.CameraAnimation

	camera *camera.Camera
	search *interp.FrameSearch
}

// BindCamera binds anim to cam.
func BindCamera(anim *motion.CameraAnimation, cam *camera.Camera, searchWindow int) *CameraAnimation {
	return &CameraAnimation{
		Animation: anim,
		camera:    cam,
		search:    interp.NewFrameSearch(searchWindow),
	}
}

// Camera returns the bound camera.
func (a *CameraAnimation) Camera() *camera.Camera { return a.camera }

// StartFrame returns the first keyframe.
func (a *CameraAnimation) StartFrame() float32 { return a.Animation.StartFrame() }

// EndFrame returns the last keyframe.
func (a *CameraAnimation) EndFrame() float32 { return a.Animation.EndFrame() }

// Animate samples frameTime into the camera. Adjacent keyframes one frame
// apart are a cut and hold the earlier key.
func (a *CameraAnimation) Animate(frameTime float32) {
	track := a.Animation.CameraTrack
	cam := a.camera

	if track == nil || len(track.FrameNumbers) == 0 {
		cam.Reset()
		return
	}

	seg := segment(track.FrameNumbers, a.search, frameTime)
	i := seg.a
	if seg.b < 0 || track.FrameNumbers[seg.a]+1 == track.FrameNumbers[seg.b] {
		cam.Position = vec3At(track.Positions, i)
		cam.Rotation = vec3At(track.Rotations, i)
		cam.Distance = track.Distances[i]
		cam.Fov = track.Fovs[i] * degToRad
		return
	}

	j := seg.b
	cam.Position = positionAt(seg, track.Positions, track.PositionInterpolations)

	rw := interp.BezierBytes(track.RotationInterpolations, j*motion.ScalarInterpolationStride, seg.gradient)
	cam.Rotation = math.LerpVec3(vec3At(track.Rotations, i), vec3At(track.Rotations, j), rw)

	dw := interp.BezierBytes(track.DistanceInterpolations, j*motion.ScalarInterpolationStride, seg.gradient)
	cam.Distance = lerp(track.Distances[i], track.Distances[j], dw)

	fw := interp.BezierBytes(track.FovInterpolations, j*motion.ScalarInterpolationStride, seg.gradient)
	cam.Fov = lerp(track.Fovs[i], track.Fovs[j], fw) * degToRad
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
