// Package model ties a skeleton, its morph controller and its animation
// slots into one evaluable model.
package model

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/mmd-runtime/internal/animation"
	"github.com/Faultbox/mmd-runtime/internal/config"
	"github.com/Faultbox/mmd-runtime/internal/logger"
	"github.com/Faultbox/mmd-runtime/internal/morph"
	"github.com/Faultbox/mmd-runtime/internal/skeleton"
	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/pmx"
)

// ErrAnimationNotFound is returned by SetAnimation for an unknown name.
var ErrAnimationNotFound = errors.New("animation not found")

// Host connects a model to whatever draws it.
type Host interface {
	// BlendShapes returns the vertex and UV morph influences, or nil.
	BlendShapes() morph.BlendShapeTargets
	// MaterialChanged receives a material after morphs changed it.
	MaterialChanged(index int, state morph.MaterialState)
	SetVisibility(v float32)
}

type nopHost struct{}

func (nopHost) BlendShapes() morph.BlendShapeTargets     { return nil }
func (nopHost) MaterialChanged(int, morph.MaterialState) {}
func (nopHost) SetVisibility(float32)                    {}

// Options configures model construction and animation binding.
type Options struct {
	IKIterationLimit int
	SearchWindow     int
	MorphWeightFloor bool
}

// OptionsFromConfig takes the model options from the engine settings.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		IKIterationLimit: cfg.IKIterationLimit,
		SearchWindow:     cfg.SearchWindow,
		MorphWeightFloor: cfg.MorphWeightFloor,
	}
}

// Animation is an animation bound to the model.
type Animation struct {
	Source  animation.Bindable
	Runtime animation.Runtime
}

// Name returns the animation name.
func (a *Animation) Name() string { return a.Source.AnimationName() }

// EndFrame returns the last frame of the animation.
func (a *Animation) EndFrame() float32 { return a.Source.EndFrame() }

type disposer interface {
	Dispose()
}

type observer struct {
	id int
	fn func(*Animation)
}

// Model is one runtime model. It is not safe for concurrent use.
type Model struct {
	Name string

	meta      *pmx.Model
	host      Host
	opts      Options
	skeleton  *skeleton.Skeleton
	morph     *morph.Controller
	materials []*morph.StandardMaterialProxy

	rigidBodyStates []uint8
	visibility      float32

	animations     []*Animation
	animationIndex map[string]int
	current        *Animation
	needStateReset bool

	nextID    int
	observers []observer
}

// New validates meta and builds the runtime model. A nil host is allowed.
func New(meta *pmx.Model, host Host, opts Options) (*Model, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("model %q: %w", meta.Name, err)
	}
	if host == nil {
		host = nopHost{}
	}

	m := &Model{
		Name:           meta.Name,
		meta:           meta,
		host:           host,
		opts:           opts,
		skeleton:       skeleton.New(meta.Bones, skeleton.Options{IKIterationLimit: opts.IKIterationLimit}),
		visibility:     1,
		animationIndex: make(map[string]int),
	}

	m.materials = make([]*morph.StandardMaterialProxy, len(meta.Materials))
	proxies := make([]morph.MaterialProxy, len(meta.Materials))
	for i, mat := range meta.Materials {
		m.materials[i] = morph.NewStandardMaterialProxy(mat, func(s morph.MaterialState) {
			m.host.MaterialChanged(i, s)
		})
		proxies[i] = m.materials[i]
	}
	m.morph = morph.NewController(m.skeleton, proxies, host.BlendShapes(), meta.Morphs)

	m.rigidBodyStates = make([]uint8, meta.RigidBodyCount)
	for i := range m.rigidBodyStates {
		m.rigidBodyStates[i] = 1
	}

	logger.Debug("model created",
		zap.String("model", m.Name),
		zap.Int("bones", len(meta.Bones)),
		zap.Int("morphs", len(meta.Morphs)),
		zap.Int("ik_solvers", len(m.skeleton.IKSolvers())))
	return m, nil
}

// Metadata returns the metadata the model was built from.
func (m *Model) Metadata() *pmx.Model { return m.meta }

// Skeleton returns the runtime bones.
func (m *Model) Skeleton() *skeleton.Skeleton { return m.skeleton }

// Morph returns the morph controller.
func (m *Model) Morph() *morph.Controller { return m.morph }

// Materials returns the material proxies in metadata order.
func (m *Model) Materials() []*morph.StandardMaterialProxy { return m.materials }

// IKSolverStates is one enable byte per IK solver, indexed by solver index.
func (m *Model) IKSolverStates() []uint8 { return m.skeleton.IKSolverStates() }

// RigidBodyStates is one enable byte per rigid body for an external physics
// engine. The model itself never reads it.
func (m *Model) RigidBodyStates() []uint8 { return m.rigidBodyStates }

// Visibility returns the last visibility written by an animation.
func (m *Model) Visibility() float32 { return m.visibility }

// SetVisibility records v and forwards it to the host.
func (m *Model) SetVisibility(v float32) {
	m.visibility = v
	m.host.SetVisibility(v)
}

// AddAnimation binds anim to the model under its name. A later animation
// with the same name shadows the earlier one for SetAnimation.
func (m *Model) AddAnimation(anim animation.Bindable, retargetingMap map[string]string) *Animation {
	a := &Animation{
		Source: anim,
		Runtime: anim.Bind(m, animation.BindOptions{
			RetargetingMap:   retargetingMap,
			MorphWeightFloor: m.opts.MorphWeightFloor,
			SearchWindow:     m.opts.SearchWindow,
		}),
	}
	m.animationIndex[a.Name()] = len(m.animations)
	m.animations = append(m.animations, a)
	return a
}

// RemoveAnimation removes the animation at index. Out of range does nothing.
func (m *Model) RemoveAnimation(index int) {
	if index < 0 || index >= len(m.animations) {
		return
	}
	a := m.animations[index]
	if m.current == a {
		m.current = nil
		m.skeleton.ResetPose()
		m.notify(nil)
	}

	m.animations = append(m.animations[:index], m.animations[index+1:]...)
	clear(m.animationIndex)
	for i, other := range m.animations {
		m.animationIndex[other.Name()] = i
	}

	if d, ok := a.Runtime.(disposer); ok {
		d.Dispose()
	}
}

// SetAnimation makes the named animation current. An empty name clears it.
// Switching away from an animation resets the pose and schedules a state
// reset for the next evaluated frame.
func (m *Model) SetAnimation(name string) error {
	if name == "" {
		if m.current != nil {
			m.current = nil
			m.skeleton.ResetPose()
			m.notify(nil)
		}
		return nil
	}

	index, ok := m.animationIndex[name]
	if !ok {
		return fmt.Errorf("model %q: %q: %w", m.Name, name, ErrAnimationNotFound)
	}

	if m.current != nil {
		m.skeleton.ResetPose()
		m.needStateReset = true
	}
	m.current = m.animations[index]
	m.notify(m.current)
	return nil
}

// CurrentAnimation returns the current animation, or nil.
func (m *Model) CurrentAnimation() *Animation { return m.current }

// Animations returns every bound animation in insertion order.
func (m *Model) Animations() []*Animation { return m.animations }

// OnCurrentAnimationChanged registers fn, called with the new current
// animation or nil, and returns a func that unregisters it.
func (m *Model) OnCurrentAnimationChanged(fn func(*Animation)) func() {
	id := m.nextID
	m.nextID++
	m.observers = append(m.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) notify(a *Animation) {
	for _, o := range m.observers {
		o.fn(a)
	}
}

// ResetState schedules a reset of morph weights and IK states for the next
// evaluated frame.
func (m *Model) ResetState() { m.needStateReset = true }

// BeforePhysics samples the current animation at frameTime and runs the
// bones that transform before physics. A nil frameTime skips sampling and
// keeps the current pose.
func (m *Model) BeforePhysics(frameTime *float32) {
	if frameTime != nil {
		if m.needStateReset {
			m.needStateReset = false
			m.morph.ResetMorphWeights()
			m.skeleton.ResetIKStates()
		}
		if m.current != nil {
			m.current.Runtime.Animate(*frameTime)
		}
	}

	m.morph.Update()
	m.skeleton.Update(false)
}

// AfterPhysics runs the bones that transform after physics.
func (m *Model) AfterPhysics() {
	m.skeleton.Update(true)
}

// WorldMatrices appends every bone's world matrix, in metadata order, to dst.
func (m *Model) WorldMatrices(dst []math.Mat4) []math.Mat4 {
	for _, b := range m.skeleton.Bones() {
		dst = append(dst, b.WorldMatrix())
	}
	return dst
}
