package morph

import "github.com/Faultbox/mmd-runtime/pkg/pmx"

// MaterialState is the morphable part of one material.
type MaterialState struct {
	Diffuse            [4]float32
	Specular           [3]float32
	Shininess          float32
	Ambient            [3]float32
	EdgeColor          [4]float32
	EdgeSize           float32
	TextureColor       [4]float32
	SphereTextureColor [4]float32
	ToonTextureColor   [4]float32
}

// MaterialProxy is the host side of a material that material morphs write into.
type MaterialProxy interface {
	// Reset restores the initial state.
	Reset()
	// ApplyChanges pushes the current state to the renderer.
	ApplyChanges()
	// State returns the mutable state morphs accumulate into.
	State() *MaterialState
}

// StandardMaterialProxy keeps the initial values of a pmx material and hands
// the morphed state to a sink on ApplyChanges.
type StandardMaterialProxy struct {
	initial MaterialState
	current MaterialState
	sink    func(MaterialState)
}

// NewStandardMaterialProxy creates a proxy over m. sink may be nil.
func NewStandardMaterialProxy(m pmx.Material, sink func(MaterialState)) *StandardMaterialProxy {
	white := [4]float32{1, 1, 1, 1}
	initial := MaterialState{
		Diffuse:            m.Diffuse,
		Specular:           m.Specular,
		Shininess:          m.Shininess,
		Ambient:            m.Ambient,
		EdgeColor:          m.EdgeColor,
		EdgeSize:           m.EdgeSize,
		TextureColor:       white,
		SphereTextureColor: white,
		ToonTextureColor:   white,
	}
	return &StandardMaterialProxy{initial: initial, current: initial, sink: sink}
}

// Reset restores the initial state.
func (p *StandardMaterialProxy) Reset() { p.current = p.initial }

// ApplyChanges hands the current state to the sink.
func (p *StandardMaterialProxy) ApplyChanges() {
	if p.sink != nil {
		p.sink(p.current)
	}
}

// State returns the mutable state.
func (p *StandardMaterialProxy) State() *MaterialState { return &p.current }

// Initial returns the state the proxy resets to.
func (p *StandardMaterialProxy) Initial() MaterialState { return p.initial }

// materialElement is a material morph element with identity fields trimmed.
type materialElement struct {
	index int
	op    pmx.MaterialOp

	diffuse            *[4]float32
	specular           *[3]float32
	shininess          *float32
	ambient            *[3]float32
	edgeColor          *[4]float32
	edgeSize           *float32
	textureColor       *[4]float32
	sphereTextureColor *[4]float32
	toonTextureColor   *[4]float32
}

func newMaterialElement(e pmx.MaterialElement) materialElement {
	var identity float32
	if e.Op == pmx.MaterialOpMultiply {
		identity = 1
	}

	vec4 := func(v [4]float32) *[4]float32 {
		if v[0] == identity && v[1] == identity && v[2] == identity && v[3] == identity {
			return nil
		}
		return &v
	}
	vec3 := func(v [3]float32) *[3]float32 {
		if v[0] == identity && v[1] == identity && v[2] == identity {
			return nil
		}
		return &v
	}
	scalar := func(v float32) *float32 {
		if v == identity {
			return nil
		}
		return &v
	}

	return materialElement{
		index:              e.Index,
		op:                 e.Op,
		diffuse:            vec4(e.Diffuse),
		specular:           vec3(e.Specular),
		shininess:          scalar(e.Shininess),
		ambient:            vec3(e.Ambient),
		edgeColor:          vec4(e.EdgeColor),
		edgeSize:           scalar(e.EdgeSize),
		textureColor:       vec4(e.TextureColor),
		sphereTextureColor: vec4(e.SphereTextureColor),
		toonTextureColor:   vec4(e.ToonTextureColor),
	}
}

// empty reports whether every field was trimmed.
func (e *materialElement) empty() bool {
	return e.diffuse == nil && e.specular == nil && e.shininess == nil &&
		e.ambient == nil && e.edgeColor == nil && e.edgeSize == nil &&
		e.textureColor == nil && e.sphereTextureColor == nil && e.toonTextureColor == nil
}

// apply blends the element into s with weight w.
func (e *materialElement) apply(s *MaterialState, w float32) {
	combine := func(v, m float32) float32 {
		if e.op == pmx.MaterialOpMultiply {
			return v + (v*m-v)*w
		}
		return v + m*w
	}

	if e.diffuse != nil {
		for i := range s.Diffuse {
			s.Diffuse[i] = combine(s.Diffuse[i], e.diffuse[i])
		}
	}
	if e.specular != nil {
		for i := range s.Specular {
			s.Specular[i] = combine(s.Specular[i], e.specular[i])
		}
	}
	if e.shininess != nil {
		s.Shininess = combine(s.Shininess, *e.shininess)
	}
	if e.ambient != nil {
		for i := range s.Ambient {
			s.Ambient[i] = combine(s.Ambient[i], e.ambient[i])
		}
	}
	if e.edgeColor != nil {
		for i := range s.EdgeColor {
			s.EdgeColor[i] = combine(s.EdgeColor[i], e.edgeColor[i])
		}
	}
	if e.edgeSize != nil {
		s.EdgeSize = combine(s.EdgeSize, *e.edgeSize)
	}
	if e.textureColor != nil {
		for i := range s.TextureColor {
			s.TextureColor[i] = combine(s.TextureColor[i], e.textureColor[i])
		}
	}
	if e.sphereTextureColor != nil {
		for i := range s.SphereTextureColor {
			s.SphereTextureColor[i] = combine(s.SphereTextureColor[i], e.sphereTextureColor[i])
		}
	}
	if e.toonTextureColor != nil {
		for i := range s.ToonTextureColor {
			s.ToonTextureColor[i] = combine(s.ToonTextureColor[i], e.toonTextureColor[i])
		}
	}
}
