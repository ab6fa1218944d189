// Package runtime drives models and a camera from one playback clock.
//
// Time is measured in frames at the configured frame rate. Each Tick runs
// the two evaluation stages of every model around an optional physics hook:
//
//	BeforePhysics (animation, morphs, bones before physics)
//	PhysicsHook
//	AfterPhysics (bones after physics)
package runtime

import (
	"go.uber.org/zap"

	"github.com/Faultbox/mmd-runtime/internal/animation"
	"github.com/Faultbox/mmd-runtime/internal/camera"
	"github.com/Faultbox/mmd-runtime/internal/config"
	"github.com/Faultbox/mmd-runtime/internal/logger"
	"github.com/Faultbox/mmd-runtime/internal/model"
)

// DefaultFrameRate is the motion frame rate.
const DefaultFrameRate = 30

// Runtime is the playback clock. It is owned by one goroutine.
type Runtime struct {
	// PhysicsHook runs between the two evaluation stages when set.
	PhysicsHook func()

	models      []*model.Model
	unsubscribe map[*model.Model]func()
	spans       map[*model.Model]func()

	camera          *camera.Camera
	cameraAnimation *animation.CameraAnimation

	frameRate      float32
	timeScale      float32
	frameTime      float32
	duration       float32
	manualDuration *float32
	playing        bool

	onPlay            signal
	onPause           signal
	onSeek            signal
	onTick            signal
	onDurationChanged signal
}

// New creates a paused runtime, or a playing one when cfg.AutoPlay is set.
func New(cfg config.EngineConfig) *Runtime {
	r := &Runtime{
		unsubscribe: make(map[*model.Model]func()),
		spans:       make(map[*model.Model]func()),
		frameRate:   cfg.FrameRate,
		timeScale:   cfg.TimeScale,
		playing:     cfg.AutoPlay,
	}
	if r.frameRate <= 0 {
		r.frameRate = DefaultFrameRate
	}
	return r
}

// AddModel adds m to the tick. The duration follows its current animation.
func (r *Runtime) AddModel(m *model.Model) {
	if _, ok := r.unsubscribe[m]; ok {
		return
	}
	r.models = append(r.models, m)
	r.unsubscribe[m] = m.OnCurrentAnimationChanged(func(a *model.Animation) {
		r.followSpans(m, a)
		r.updateDuration()
	})
	r.followSpans(m, m.CurrentAnimation())
	r.updateDuration()
}

// followSpans tracks span changes of the current composite of m, since they
// move its end frame.
func (r *Runtime) followSpans(m *model.Model, a *model.Animation) {
	if unsub, ok := r.spans[m]; ok {
		unsub()
		delete(r.spans, m)
	}
	if a == nil {
		return
	}
	if c, ok := a.Runtime.(*animation.CompositeRuntime); ok {
		r.spans[m] = c.OnSpansChanged(r.updateDuration)
	}
}

// RemoveModel removes m. Unknown models are ignored.
func (r *Runtime) RemoveModel(m *model.Model) {
	unsub, ok := r.unsubscribe[m]
	if !ok {
		return
	}
	unsub()
	delete(r.unsubscribe, m)
	r.followSpans(m, nil)
	for i, other := range r.models {
		if other == m {
			r.models = append(r.models[:i], r.models[i+1:]...)
			break
		}
	}
	r.updateDuration()
}

// Models returns the models in tick order.
func (r *Runtime) Models() []*model.Model { return r.models }

// SetCamera sets the camera and the animation driving it. Either may be nil.
func (r *Runtime) SetCamera(cam *camera.Camera, anim *animation.CameraAnimation) {
	r.camera = cam
	r.cameraAnimation = anim
	r.updateDuration()
}

// Camera returns the camera, or nil.
func (r *Runtime) Camera() *camera.Camera { return r.camera }

// Play resumes playback from the current frame.
func (r *Runtime) Play() {
	if r.playing {
		return
	}
	r.playing = true
	logger.Debug("playback started", zap.Float32("frame", r.frameTime))
	r.onPlay.emit()
}

// Pause stops playback.
func (r *Runtime) Pause() {
	if !r.playing {
		return
	}
	r.playing = false
	logger.Debug("playback paused", zap.Float32("frame", r.frameTime))
	r.onPause.emit()
}

// Seek moves to frameTime, clamped to the duration. Every model resets its
// morph and IK state on its next evaluated frame. With forceEvaluate the
// pose is evaluated now, even when paused.
func (r *Runtime) Seek(frameTime float32, forceEvaluate bool) {
	r.frameTime = max(0, min(frameTime, r.duration))
	for _, m := range r.models {
		m.ResetState()
	}

	if forceEvaluate {
		t := r.frameTime
		r.evaluate(&t)
		r.onTick.emit()
	}
	r.onSeek.emit()
}

// Tick advances the clock by deltaMs milliseconds when playing and
// evaluates every model. Reaching the duration clamps and pauses.
func (r *Runtime) Tick(deltaMs float32) {
	if !r.playing {
		r.evaluate(nil)
		return
	}

	r.frameTime += deltaMs / 1000 * r.frameRate * r.timeScale
	t := r.frameTime
	if r.duration <= t {
		t = r.duration
		r.frameTime = t
		r.playing = false
		logger.Debug("playback reached the end", zap.Float32("frame", t))
		r.onPause.emit()
	}

	r.evaluate(&t)
	r.onTick.emit()
}

func (r *Runtime) evaluate(frameTime *float32) {
	for _, m := range r.models {
		m.BeforePhysics(frameTime)
	}
	if frameTime != nil && r.camera != nil && r.cameraAnimation != nil {
		r.cameraAnimation.Animate(*frameTime)
	}

	if r.PhysicsHook != nil {
		r.PhysicsHook()
	}

	for _, m := range r.models {
		m.AfterPhysics()
	}
}

// IsPlaying reports whether the clock advances on Tick.
func (r *Runtime) IsPlaying() bool { return r.playing }

// TimeScale returns the playback speed multiplier.
func (r *Runtime) TimeScale() float32 { return r.timeScale }

// SetTimeScale sets the playback speed multiplier.
func (r *Runtime) SetTimeScale(s float32) { r.timeScale = s }

// FrameRate returns the clock frame rate.
func (r *Runtime) FrameRate() float32 { return r.frameRate }

// CurrentFrameTime returns the current time in frames.
func (r *Runtime) CurrentFrameTime() float32 { return r.frameTime }

// CurrentTime returns the current time in seconds.
func (r *Runtime) CurrentTime() float32 { return r.frameTime / r.frameRate }

// AnimationFrameTimeDuration returns the duration in frames.
func (r *Runtime) AnimationFrameTimeDuration() float32 { return r.duration }

// AnimationDuration returns the duration in seconds.
func (r *Runtime) AnimationDuration() float32 { return r.duration / r.frameRate }

// SetManualAnimationDuration pins the duration, in frames. Nil goes back to
// following the animations.
func (r *Runtime) SetManualAnimationDuration(frames *float32) {
	if frames != nil {
		d := *frames
		r.manualDuration = &d
		r.setDuration(d)
		return
	}
	r.manualDuration = nil
	r.updateDuration()
}

func (r *Runtime) updateDuration() {
	if r.manualDuration != nil {
		return
	}

	var d float32
	for _, m := range r.models {
		if a := m.CurrentAnimation(); a != nil {
			d = max(d, a.EndFrame())
		}
	}
	if r.cameraAnimation != nil {
		d = max(d, r.cameraAnimation.EndFrame())
	}
	r.setDuration(d)
}

func (r *Runtime) setDuration(d float32) {
	if d == r.duration {
		return
	}
	r.duration = d
	logger.Debug("animation duration changed", zap.Float32("frames", d))
	r.onDurationChanged.emit()
}

// OnPlay registers fn and returns a func that unregisters it.
func (r *Runtime) OnPlay(fn func()) func() { return r.onPlay.add(fn) }

// OnPause registers fn, also called when playback reaches the end.
func (r *Runtime) OnPause(fn func()) func() { return r.onPause.add(fn) }

// OnSeek registers fn and returns a func that unregisters it.
func (r *Runtime) OnSeek(fn func()) func() { return r.onSeek.add(fn) }

// OnTick registers fn, called after every evaluated frame.
func (r *Runtime) OnTick(fn func()) func() { return r.onTick.add(fn) }

// OnDurationChanged registers fn and returns a func that unregisters it.
func (r *Runtime) OnDurationChanged(fn func()) func() { return r.onDurationChanged.add(fn) }
