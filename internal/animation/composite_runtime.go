package animation

import (
	"go.uber.org/zap"

	"github.com/Faultbox/mmd-runtime/internal/logger"
	"github.com/Faultbox/mmd-runtime/internal/skeleton"
	"github.com/Faultbox/mmd-runtime/pkg/math"
)

// CompositeRuntime is a composite animation bound to one model. It keeps one
// runtime animation per span and follows span additions and removals.
type CompositeRuntime struct {
	Animation *CompositeAnimation

	target   Target
	opts     BindOptions
	writer   PoseWriter
	runtimes []Runtime
	children []func() // unsubscribes nested composites, parallel to runtimes
	bindings *Bindings

	unsubscribe []func()
	nextID      int
	changed     []subscription[func()]

	active     []*AnimationSpan
	lastActive []*AnimationSpan
	weights    []float32
	acc        *accumulator
}

// BindComposite binds every span of anim to target.
func BindComposite(anim *CompositeAnimation, target Target, opts BindOptions) *CompositeRuntime {
	r := &CompositeRuntime{
		Animation: anim,
		target:    target,
		opts:      opts,
		writer:    NewTargetWriter(target),
		acc:       newAccumulator(),
	}
	for _, span := range anim.Spans() {
		r.bindSpan(span)
	}

	r.unsubscribe = []func(){
		anim.OnSpanAdded(func(span *AnimationSpan) {
			logger.Debug("composite span added", zap.String("composite", anim.Name), zap.String("span", span.Name()))
			r.bindSpan(span)
			r.invalidate()
		}),
		anim.OnSpanRemoved(func(index int) {
			logger.Debug("composite span removed", zap.String("composite", anim.Name), zap.Int("index", index))
			r.release(index)
			r.runtimes = append(r.runtimes[:index], r.runtimes[index+1:]...)
			r.children = append(r.children[:index], r.children[index+1:]...)
			r.invalidate()
		}),
	}
	return r
}

func (r *CompositeRuntime) bindSpan(span *AnimationSpan) {
	rt := span.Animation.Bind(r.target, r.opts)
	var unsub func()
	if child, ok := rt.(*CompositeRuntime); ok {
		unsub = child.OnSpansChanged(r.invalidate)
	}
	r.runtimes = append(r.runtimes, rt)
	r.children = append(r.children, unsub)
}

// release stops the nested composite bound at index, if any.
func (r *CompositeRuntime) release(index int) {
	if unsub := r.children[index]; unsub != nil {
		unsub()
		r.runtimes[index].(*CompositeRuntime).Dispose()
	}
}

// invalidate drops the cached bindings and notifies span change subscribers.
func (r *CompositeRuntime) invalidate() {
	r.bindings = nil
	for _, s := range r.changed {
		s.fn()
	}
}

// OnSpansChanged registers fn, called after a span of this composite or of a
// nested one is added or removed, and returns a func that unregisters it.
func (r *CompositeRuntime) OnSpansChanged(fn func()) func() {
	id := r.nextID
	r.nextID++
	r.changed = append(r.changed, subscription[func()]{id: id, fn: fn})
	return func() { r.changed = unsubscribe(r.changed, id) }
}

// Dispose stops following span changes.
func (r *CompositeRuntime) Dispose() {
	for _, fn := range r.unsubscribe {
		fn()
	}
	r.unsubscribe = nil
	for i := range r.runtimes {
		r.release(i)
	}
	clear(r.children)
}

// StartFrame returns the composite start.
func (r *CompositeRuntime) StartFrame() float32 { return r.Animation.StartFrame() }

// EndFrame returns the composite end.
func (r *CompositeRuntime) EndFrame() float32 { return r.Animation.EndFrame() }

// AnimationName returns the composite name.
func (r *CompositeRuntime) AnimationName() string { return r.Animation.Name }

// Bindings returns the union of every span's bindings. The union is cached
// until the spans change.
func (r *CompositeRuntime) Bindings() Bindings {
	if r.bindings == nil {
		all := make([]Bindings, len(r.runtimes))
		for i, rt := range r.runtimes {
			all[i] = rt.Bindings()
		}
		b := union(all...)
		r.bindings = &b
	}
	return *r.bindings
}

// Animate blends the active spans at frameTime into the bound model.
func (r *CompositeRuntime) Animate(frameTime float32) {
	r.AnimateTo(frameTime, r.writer)
}

// AnimateTo blends the active spans at frameTime into w.
func (r *CompositeRuntime) AnimateTo(frameTime float32, w PoseWriter) {
	spans := r.Animation.Spans()

	r.active = r.active[:0]
	r.weights = r.weights[:0]
	var runtimes []Runtime
	var total float32
	for i, span := range spans {
		if !span.IsInSpan(frameTime) || span.Weight <= 0 {
			continue
		}
		weight := span.GetEasedWeight(span.GetFrameTime(frameTime))
		r.active = append(r.active, span)
		r.weights = append(r.weights, weight)
		runtimes = append(runtimes, r.runtimes[i])
		total += weight
	}

	changed := !sameSpans(r.active, r.lastActive)
	r.lastActive = append(r.lastActive[:0], r.active...)

	if total == 0 {
		writeRest(r.Bindings(), w)
		return
	}
	if changed {
		writeRest(r.Bindings(), w)
	}

	if len(r.active) == 1 && total == 1 {
		runtimes[0].AnimateTo(r.active[0].GetFrameTime(frameTime), w)
		return
	}

	normalizer := float32(1)
	if total > 1 {
		normalizer = 1 / total
	}

	r.acc.begin()
	for i, span := range r.active {
		r.acc.nextSpan(r.weights[i] * normalizer)
		runtimes[i].AnimateTo(span.GetFrameTime(frameTime), r.acc)
	}
	r.acc.flush(w)
}

func sameSpans(a, b []*AnimationSpan) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type rotationSample struct {
	q      math.Quat
	weight float32
}

type boneSample struct {
	rotations []rotationSample
	rotSpan   int

	position    math.Vec3 // Sum of weight * position
	positionW   float32
	lastPos     math.Vec3
	posSpan     int
	hasPosition bool
}

type scalarSample struct {
	sum  float32
	last float32
	span int
}

type ikSample struct {
	earlier bool // AND over previous spans
	last    bool
	span    int
}

// accumulator collects weighted span samples for one frame. A target
// written twice by the same span keeps only the second value.
type accumulator struct {
	span   int
	weight float32

	bones     map[*skeleton.Bone]*boneSample
	boneOrder []*skeleton.Bone
	morphs    map[int]*scalarSample
	ik        map[*skeleton.IKSolver]*ikSample

	visibility    scalarSample
	hasVisibility bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		bones:  make(map[*skeleton.Bone]*boneSample),
		morphs: make(map[int]*scalarSample),
		ik:     make(map[*skeleton.IKSolver]*ikSample),
	}
}

func (a *accumulator) begin() {
	a.span = 0
	a.boneOrder = a.boneOrder[:0]
	clear(a.bones)
	clear(a.morphs)
	clear(a.ik)
	a.visibility = scalarSample{}
	a.hasVisibility = false
}

func (a *accumulator) nextSpan(weight float32) {
	a.span++
	a.weight = weight
}

func (a *accumulator) bone(b *skeleton.Bone) *boneSample {
	s, ok := a.bones[b]
	if !ok {
		s = &boneSample{}
		a.bones[b] = s
		a.boneOrder = append(a.boneOrder, b)
	}
	return s
}

func (a *accumulator) SetBoneRotation(b *skeleton.Bone, q math.Quat) {
	s := a.bone(b)
	if s.rotSpan == a.span && len(s.rotations) > 0 {
		s.rotations[len(s.rotations)-1].q = q
		return
	}
	s.rotSpan = a.span
	s.rotations = append(s.rotations, rotationSample{q: q, weight: a.weight})
}

func (a *accumulator) SetBonePosition(b *skeleton.Bone, p math.Vec3) {
	s := a.bone(b)
	if s.posSpan == a.span && s.hasPosition {
		s.position = s.position.Sub(s.lastPos.Scale(a.weight))
	} else {
		s.positionW += a.weight
	}
	s.position = s.position.Add(p.Scale(a.weight))
	s.lastPos = p
	s.posSpan = a.span
	s.hasPosition = true
}

func (a *accumulator) SetMorphWeight(index int, weight float32) {
	s, ok := a.morphs[index]
	if !ok {
		s = &scalarSample{}
		a.morphs[index] = s
	}
	add(s, a.span, a.weight, weight)
}

func (a *accumulator) SetVisibility(v float32) {
	add(&a.visibility, a.span, a.weight, v-1)
	a.hasVisibility = true
}

func (a *accumulator) SetIKEnabled(solver *skeleton.IKSolver, enabled bool) {
	s, ok := a.ik[solver]
	if !ok {
		a.ik[solver] = &ikSample{earlier: true, last: enabled, span: a.span}
		return
	}
	if s.span != a.span {
		s.earlier = s.earlier && s.last
		s.span = a.span
	}
	s.last = enabled
}

// add accumulates weight*v, replacing an earlier write of the same span.
func add(s *scalarSample, span int, weight, v float32) {
	if s.span == span {
		s.sum -= s.last * weight
	}
	s.sum += v * weight
	s.last = v
	s.span = span
}

// flush writes the blended values to w. Rotation is a slerp chain starting
// from the rest rotation weighted by whatever weight the spans left over.
func (a *accumulator) flush(w PoseWriter) {
	for _, b := range a.boneOrder {
		s := a.bones[b]

		if len(s.rotations) > 0 {
			var sum float32
			for _, r := range s.rotations {
				sum += r.weight
			}
			running := max(1-sum, 0)
			q := math.QuatIdentity()
			for _, r := range s.rotations {
				running += r.weight
				if running > 0 {
					q = q.Slerp(r.q, r.weight/running)
				}
			}
			w.SetBoneRotation(b, q)
		}

		if s.hasPosition {
			rest := b.RestTranslation()
			w.SetBonePosition(b, rest.Scale(1-s.positionW).Add(s.position))
		}
	}

	for index, s := range a.morphs {
		w.SetMorphWeight(index, s.sum)
	}
	for solver, s := range a.ik {
		w.SetIKEnabled(solver, s.earlier && s.last)
	}
	if a.hasVisibility {
		w.SetVisibility(1 + a.visibility.sum)
	}
}
