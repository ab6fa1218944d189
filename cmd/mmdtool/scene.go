package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tanema/gween/ease"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/mmd-runtime/internal/animation"
	"github.com/Faultbox/mmd-runtime/internal/camera"
	"github.com/Faultbox/mmd-runtime/internal/config"
	"github.com/Faultbox/mmd-runtime/internal/model"
	"github.com/Faultbox/mmd-runtime/internal/runtime"
	"github.com/Faultbox/mmd-runtime/pkg/motion"
	"github.com/Faultbox/mmd-runtime/pkg/pmx"
)

// Scene errors.
var (
	ErrNoModel       = errors.New("scene has no model")
	ErrUnknownMotion = errors.New("span references an unknown motion")
	ErrUnknownEasing = errors.New("unknown easing function")
)

var easings = map[string]ease.TweenFunc{
	"linear":       ease.Linear,
	"in_quad":      ease.InQuad,
	"out_quad":     ease.OutQuad,
	"in_out_quad":  ease.InOutQuad,
	"in_cubic":     ease.InCubic,
	"out_cubic":    ease.OutCubic,
	"in_out_cubic": ease.InOutCubic,
	"in_sine":      ease.InSine,
	"out_sine":     ease.OutSine,
	"in_out_sine":  ease.InOutSine,
}

// SpanDoc places a motion on the composite timeline. Start and End default
// to the whole motion and Weight defaults to 1.
type SpanDoc struct {
	Motion  string   `yaml:"motion"`
	Start   *float32 `yaml:"start"`
	End     *float32 `yaml:"end"`
	Offset  float32  `yaml:"offset"`
	Weight  *float32 `yaml:"weight"`
	EaseIn  float32  `yaml:"ease_in"`
	EaseOut float32  `yaml:"ease_out"`
	Easing  string   `yaml:"easing"`
}

// CompositeDoc is a named set of spans.
type CompositeDoc struct {
	Name  string    `yaml:"name"`
	Spans []SpanDoc `yaml:"spans"`
}

// Scene references a model fixture, motion fixtures and optional composites.
// Paths are relative to the scene file.
type Scene struct {
	Name       string            `yaml:"name"`
	Model      string            `yaml:"model"`
	Camera     string            `yaml:"camera"`
	Motions    []string          `yaml:"motions"`
	Composites []CompositeDoc    `yaml:"composites"`
	Retarget   map[string]string `yaml:"retarget"`
	Animation  string            `yaml:"animation"` // Current animation; defaults to the first motion

	dir string
}

// LoadScene reads a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	if s.Model == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoModel)
	}
	s.dir = filepath.Dir(path)
	return &s, nil
}

// loadMotion reads a YAML motion, or a VPD pose as a one-frame motion
// named after the file.
func loadMotion(path string) (*motion.ModelAnimation, error) {
	if !strings.EqualFold(filepath.Ext(path), ".vpd") {
		return motion.LoadModelAnimation(path)
	}
	pose, err := motion.LoadPose(path)
	if err != nil {
		return nil, err
	}
	return pose.Animation(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))), nil
}

func (s *Scene) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dir, p)
}

// Loaded is a scene with every fixture decoded and bound.
type Loaded struct {
	Meta       *pmx.Model
	Model      *model.Model
	Motions    []*motion.ModelAnimation
	Composites []*animation.CompositeAnimation
	Camera     *camera.Camera
	CameraAnim *motion.CameraAnimation
	Runtime    *runtime.Runtime
}

// Build loads every fixture and wires the scene into a runtime.
func (s *Scene) Build(cfg *config.Config) (*Loaded, error) {
	meta, err := pmx.LoadModel(s.path(s.Model))
	if err != nil {
		return nil, err
	}
	m, err := model.New(meta, nil, model.OptionsFromConfig(cfg.Engine))
	if err != nil {
		return nil, err
	}

	l := &Loaded{Meta: meta, Model: m, Runtime: runtime.New(cfg.Engine)}
	byName := make(map[string]*motion.ModelAnimation)
	for _, p := range s.Motions {
		anim, err := loadMotion(s.path(p))
		if err != nil {
			return nil, err
		}
		l.Motions = append(l.Motions, anim)
		byName[anim.Name] = anim
		m.AddAnimation(animation.Motion{ModelAnimation: anim}, s.Retarget)
	}

	for _, doc := range s.Composites {
		c, err := buildComposite(doc, byName)
		if err != nil {
			return nil, err
		}
		l.Composites = append(l.Composites, c)
		m.AddAnimation(c, s.Retarget)
	}

	current := s.Animation
	if current == "" && len(l.Motions) > 0 {
		current = l.Motions[0].Name
	}
	if err := m.SetAnimation(current); err != nil {
		return nil, err
	}
	l.Runtime.AddModel(m)

	if s.Camera != "" {
		l.CameraAnim, err = motion.LoadCameraAnimation(s.path(s.Camera))
		if err != nil {
			return nil, err
		}
		l.Camera = camera.New()
		l.Runtime.SetCamera(l.Camera, animation.BindCamera(l.CameraAnim, l.Camera, cfg.Engine.SearchWindow))
	}
	return l, nil
}

func buildComposite(doc CompositeDoc, motions map[string]*motion.ModelAnimation) (*animation.CompositeAnimation, error) {
	c := animation.NewCompositeAnimation(doc.Name)
	for i, sd := range doc.Spans {
		anim, ok := motions[sd.Motion]
		if !ok {
			return nil, fmt.Errorf("composite %q span %d: %q: %w", doc.Name, i, sd.Motion, ErrUnknownMotion)
		}
		span := animation.NewAnimationSpan(animation.Motion{ModelAnimation: anim})
		if sd.Start != nil {
			span.StartFrame = *sd.Start
		}
		if sd.End != nil {
			span.EndFrame = *sd.End
		}
		if sd.Weight != nil {
			span.Weight = *sd.Weight
		}
		span.Offset = sd.Offset
		span.EaseInFrameTime = sd.EaseIn
		span.EaseOutFrameTime = sd.EaseOut
		if sd.Easing != "" {
			fn, ok := easings[sd.Easing]
			if !ok {
				return nil, fmt.Errorf("composite %q span %d: %q: %w", doc.Name, i, sd.Easing, ErrUnknownEasing)
			}
			span.EasingFunction = fn
		}
		c.AddSpan(span)
	}
	return c, nil
}

// Validate decodes every fixture without failing fast and returns every
// problem found.
func (s *Scene) Validate() error {
	var err error

	if data, readErr := os.ReadFile(s.path(s.Model)); readErr != nil {
		err = multierr.Append(err, readErr)
	} else if meta, parseErr := pmx.ParseModel(data); parseErr != nil {
		err = multierr.Append(err, parseErr)
	} else {
		err = multierr.Append(err, meta.Validate())
	}

	names := make(map[string]*motion.ModelAnimation)
	for _, p := range s.Motions {
		anim, loadErr := loadMotion(s.path(p))
		if loadErr != nil {
			err = multierr.Append(err, loadErr)
			continue
		}
		names[anim.Name] = anim
	}
	if s.Camera != "" {
		if _, camErr := motion.LoadCameraAnimation(s.path(s.Camera)); camErr != nil {
			err = multierr.Append(err, camErr)
		}
	}
	for _, doc := range s.Composites {
		if _, compErr := buildComposite(doc, names); compErr != nil {
			err = multierr.Append(err, compErr)
		}
	}
	return err
}
