package animation

type subscription[F any] struct {
	id int
	fn F
}

// CompositeAnimation combines several animations on one timeline through
// weighted spans.
type CompositeAnimation struct {
	Name string

	spans      []*AnimationSpan
	startFrame float32
	endFrame   float32

	nextID  int
	added   []subscription[func(*AnimationSpan)]
	removed []subscription[func(int)]
}

// NewCompositeAnimation creates an empty composite.
func NewCompositeAnimation(name string) *CompositeAnimation {
	return &CompositeAnimation{Name: name}
}

// AnimationName returns the composite name.
func (c *CompositeAnimation) AnimationName() string { return c.Name }

// StartFrame returns the earliest span start, offset included.
func (c *CompositeAnimation) StartFrame() float32 { return c.startFrame }

// EndFrame returns the latest span end, offset included.
func (c *CompositeAnimation) EndFrame() float32 { return c.endFrame }

// Spans returns the spans in insertion order.
func (c *CompositeAnimation) Spans() []*AnimationSpan { return c.spans }

// AddSpan appends a span and notifies subscribers.
func (c *CompositeAnimation) AddSpan(span *AnimationSpan) {
	if len(c.spans) == 0 {
		c.startFrame = span.StartFrameWithOffset()
		c.endFrame = span.EndFrameWithOffset()
	} else {
		c.startFrame = min(c.startFrame, span.StartFrameWithOffset())
		c.endFrame = max(c.endFrame, span.EndFrameWithOffset())
	}
	c.spans = append(c.spans, span)

	for _, s := range c.added {
		s.fn(span)
	}
}

// RemoveSpan removes span if present.
func (c *CompositeAnimation) RemoveSpan(span *AnimationSpan) {
	for i, s := range c.spans {
		if s == span {
			c.RemoveSpanFromIndex(i)
			return
		}
	}
}

// RemoveSpanFromIndex removes the span at index. Out of range does nothing.
func (c *CompositeAnimation) RemoveSpanFromIndex(index int) {
	if index < 0 || index >= len(c.spans) {
		return
	}
	c.spans = append(c.spans[:index], c.spans[index+1:]...)

	c.startFrame, c.endFrame = 0, 0
	for i, s := range c.spans {
		if i == 0 {
			c.startFrame, c.endFrame = s.StartFrameWithOffset(), s.EndFrameWithOffset()
			continue
		}
		c.startFrame = min(c.startFrame, s.StartFrameWithOffset())
		c.endFrame = max(c.endFrame, s.EndFrameWithOffset())
	}

	for _, s := range c.removed {
		s.fn(index)
	}
}

// OnSpanAdded registers fn and returns a func that unregisters it.
func (c *CompositeAnimation) OnSpanAdded(fn func(*AnimationSpan)) func() {
	id := c.nextID
	c.nextID++
	c.added = append(c.added, subscription[func(*AnimationSpan)]{id: id, fn: fn})
	return func() { c.added = unsubscribe(c.added, id) }
}

// OnSpanRemoved registers fn, called with the removed index, and returns a
// func that unregisters it.
func (c *CompositeAnimation) OnSpanRemoved(fn func(int)) func() {
	id := c.nextID
	c.nextID++
	c.removed = append(c.removed, subscription[func(int)]{id: id, fn: fn})
	return func() { c.removed = unsubscribe(c.removed, id) }
}

func unsubscribe[F any](subs []subscription[F], id int) []subscription[F] {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// Bind binds every span to target.
func (c *CompositeAnimation) Bind(target Target, opts BindOptions) Runtime {
	return BindComposite(c, target, opts)
}
