// Package morph owns morph weights and applies vertex, UV, bone, material
// and group morphs to their targets.
package morph

import (
	"go.uber.org/zap"

	"github.com/Faultbox/mmd-runtime/internal/logger"
	"github.com/Faultbox/mmd-runtime/internal/skeleton"
	"github.com/Faultbox/mmd-runtime/pkg/math"
	"github.com/Faultbox/mmd-runtime/pkg/pmx"
)

// BlendShapeTargets is the host's indexed list of blend-shape influences.
type BlendShapeTargets interface {
	Influence(i int) float32
	SetInfluence(i int, v float32)
	Len() int
}

// Morph is the runtime form of one morph.
type Morph struct {
	Name string
	Kind pmx.MorphKind

	groupIndices []int // -1 marks a cut cycle edge
	groupRatios  []float32

	boneIndices   []int
	bonePositions []math.Vec3
	boneRotations []math.Quat

	materials []materialElement

	target int
}

// Controller holds the weight of every morph and applies active morphs on Update.
type Controller struct {
	bones     *skeleton.Skeleton
	materials []MaterialProxy
	targets   BlendShapeTargets

	morphs  []*Morph
	indices map[string][]int
	weights []float32

	active      []string
	activeIndex map[string]struct{}

	touched map[MaterialProxy]struct{}
}

// NewController binds morph metadata to a skeleton, material proxies and
// blend-shape targets. Any of the three may be nil; morphs of the missing
// kind then do nothing.
func NewController(bones *skeleton.Skeleton, materials []MaterialProxy, targets BlendShapeTargets, morphs []pmx.Morph) *Controller {
	c := &Controller{
		bones:       bones,
		materials:   materials,
		targets:     targets,
		morphs:      make([]*Morph, len(morphs)),
		indices:     make(map[string][]int, len(morphs)),
		weights:     make([]float32, len(morphs)),
		activeIndex: make(map[string]struct{}),
		touched:     make(map[MaterialProxy]struct{}),
	}

	for i := range morphs {
		c.morphs[i] = newMorph(&morphs[i])
		c.indices[morphs[i].Name] = append(c.indices[morphs[i].Name], i)
	}
	c.cutGroupCycles()
	return c
}

func newMorph(meta *pmx.Morph) *Morph {
	m := &Morph{Name: meta.Name, Kind: meta.Kind, target: meta.Target}

	switch meta.Kind {
	case pmx.MorphKindGroup:
		for _, e := range meta.Group {
			m.groupIndices = append(m.groupIndices, e.Index)
			m.groupRatios = append(m.groupRatios, e.Ratio)
		}
	case pmx.MorphKindBone:
		for _, e := range meta.Bones {
			m.boneIndices = append(m.boneIndices, e.Index)
			m.bonePositions = append(m.bonePositions, math.Vec3{X: e.Position[0], Y: e.Position[1], Z: e.Position[2]})
			m.boneRotations = append(m.boneRotations, math.Quat{X: e.Rotation[0], Y: e.Rotation[1], Z: e.Rotation[2], W: e.Rotation[3]})
		}
	case pmx.MorphKindMaterial:
		for _, e := range meta.Materials {
			if el := newMaterialElement(e); !el.empty() {
				m.materials = append(m.materials, el)
			}
		}
	}
	return m
}

// cutGroupCycles walks every group graph depth first and cuts edges that
// point back into the ancestor stack.
func (c *Controller) cutGroupCycles() {
	var stack []int
	onStack := func(index int) bool {
		for _, s := range stack {
			if s == index {
				return true
			}
		}
		return false
	}

	var visit func(index int)
	visit = func(index int) {
		m := c.morphs[index]
		if m.Kind != pmx.MorphKindGroup {
			return
		}
		for i, child := range m.groupIndices {
			if onStack(child) {
				logger.Warn("looping group morph detected, resolves to -1",
					zap.String("morph", m.Name),
					zap.String("target", c.morphs[child].Name))
				m.groupIndices[i] = -1
				continue
			}
			if c.valid(child) {
				stack = append(stack, index)
				visit(child)
				stack = stack[:len(stack)-1]
			}
		}
	}

	for i := range c.morphs {
		stack = append(stack[:0], i)
		visit(i)
	}
}

func (c *Controller) valid(index int) bool {
	return 0 <= index && index < len(c.morphs)
}

// Morphs returns the runtime morphs in metadata order.
func (c *Controller) Morphs() []*Morph { return c.morphs }

// Weights returns the weight of every morph, indexed like Morphs.
func (c *Controller) Weights() []float32 { return c.weights }

// SetMorphWeight sets every morph with the given name. Unknown names are ignored.
func (c *Controller) SetMorphWeight(name string, weight float32) {
	indices, ok := c.indices[name]
	if !ok {
		return
	}
	for _, i := range indices {
		c.weights[i] = weight
	}
	if weight != 0 {
		c.activate(name)
	}
}

// GetMorphWeight returns the weight of the first morph with the given name,
// or 0 when there is none.
func (c *Controller) GetMorphWeight(name string) float32 {
	indices, ok := c.indices[name]
	if !ok {
		return 0
	}
	return c.weights[indices[0]]
}

// GetMorphIndices returns every morph index sharing the name, or nil.
func (c *Controller) GetMorphIndices(name string) []int {
	return c.indices[name]
}

// SetMorphWeightFromIndex sets one morph weight. Out of range does nothing.
func (c *Controller) SetMorphWeightFromIndex(index int, weight float32) {
	if !c.valid(index) {
		return
	}
	c.weights[index] = weight
	if weight != 0 {
		c.activate(c.morphs[index].Name)
	}
}

// GetMorphWeightFromIndex returns one morph weight, or 0 out of range.
func (c *Controller) GetMorphWeightFromIndex(index int) float32 {
	if !c.valid(index) {
		return 0
	}
	return c.weights[index]
}

// ResetMorphWeights zeroes every weight. Effects clear on the next Update.
func (c *Controller) ResetMorphWeights() {
	for i := range c.weights {
		c.weights[i] = 0
	}
}

// IsActive reports whether the name is in the active set.
func (c *Controller) IsActive(name string) bool {
	_, ok := c.activeIndex[name]
	return ok
}

func (c *Controller) activate(name string) {
	if _, ok := c.activeIndex[name]; ok {
		return
	}
	c.activeIndex[name] = struct{}{}
	c.active = append(c.active, name)
}

// Update resets the effects of every active morph, applies them again at
// their current weight and pushes touched materials. A morph applied at
// weight 0 leaves the active set afterwards.
func (c *Controller) Update() {
	for _, name := range c.active {
		for _, i := range c.indices[name] {
			c.reset(c.morphs[i])
		}
	}

	kept := c.active[:0]
	for _, name := range c.active {
		remove := false
		for _, i := range c.indices[name] {
			w := c.weights[i]
			c.apply(c.morphs[i], w)
			if w == 0 {
				remove = true
			}
		}
		if remove {
			delete(c.activeIndex, name)
			continue
		}
		kept = append(kept, name)
	}
	for i := len(kept); i < len(c.active); i++ {
		c.active[i] = ""
	}
	c.active = kept

	for m := range c.touched {
		m.ApplyChanges()
		delete(c.touched, m)
	}
}

// flatten calls fn for every non-group morph reachable from a group with
// the accumulated ratio.
func (c *Controller) flatten(group *Morph, ratio float32, fn func(m *Morph, ratio float32)) {
	for i, index := range group.groupIndices {
		if !c.valid(index) {
			continue
		}
		child := c.morphs[index]
		r := group.groupRatios[i] * ratio
		if child.Kind == pmx.MorphKindGroup {
			c.flatten(child, r, fn)
			continue
		}
		fn(child, r)
	}
}

func (c *Controller) reset(m *Morph) {
	switch m.Kind {
	case pmx.MorphKindGroup:
		c.flatten(m, 1, func(child *Morph, _ float32) { c.reset(child) })

	case pmx.MorphKindBone:
		for _, index := range m.boneIndices {
			if b := c.bone(index); b != nil {
				b.MorphPositionOffset = math.Vec3{}
				b.MorphRotationOffset = math.QuatIdentity()
			}
		}

	case pmx.MorphKindMaterial:
		for _, e := range m.materials {
			c.eachMaterial(e.index, func(p MaterialProxy) { p.Reset() })
		}

	case pmx.MorphKindVertex, pmx.MorphKindUV:
		if c.hasTarget(m.target) {
			c.targets.SetInfluence(m.target, 0)
		}
	}
}

func (c *Controller) apply(m *Morph, weight float32) {
	switch m.Kind {
	case pmx.MorphKindGroup:
		c.flatten(m, 1, func(child *Morph, ratio float32) { c.apply(child, weight*ratio) })

	case pmx.MorphKindBone:
		for i, index := range m.boneIndices {
			b := c.bone(index)
			if b == nil {
				continue
			}
			b.MorphPositionOffset = b.MorphPositionOffset.Add(m.bonePositions[i].Scale(weight))
			b.MorphRotationOffset = b.MorphRotationOffset.Slerp(m.boneRotations[i], weight)
		}

	case pmx.MorphKindMaterial:
		for i := range m.materials {
			e := &m.materials[i]
			c.eachMaterial(e.index, func(p MaterialProxy) {
				e.apply(p.State(), weight)
				c.touched[p] = struct{}{}
			})
		}

	case pmx.MorphKindVertex, pmx.MorphKindUV:
		if c.hasTarget(m.target) {
			c.targets.SetInfluence(m.target, c.targets.Influence(m.target)+weight)
		}
	}
}

func (c *Controller) bone(index int) *skeleton.Bone {
	if c.bones == nil {
		return nil
	}
	return c.bones.Bone(index)
}

func (c *Controller) hasTarget(index int) bool {
	return c.targets != nil && 0 <= index && index < c.targets.Len()
}

// eachMaterial calls fn for the indexed material, or for all of them on -1.
func (c *Controller) eachMaterial(index int, fn func(MaterialProxy)) {
	if index == -1 {
		for _, p := range c.materials {
			if p != nil {
				fn(p)
			}
		}
		return
	}
	if 0 <= index && index < len(c.materials) && c.materials[index] != nil {
		fn(c.materials[index])
	}
}
