package runtime

type listener struct {
	id int
	fn func()
}

// signal is an ordered list of callbacks.
type signal struct {
	nextID    int
	listeners []listener
}

func (s *signal) add(fn func()) func() {
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *signal) emit() {
	for _, l := range s.listeners {
		l.fn()
	}
}
