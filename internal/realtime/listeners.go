package realtime

import "sync"

// listenerSet fans one event kind out to any number of callbacks. add returns
// an unsubscribe func that removes exactly the callback it registered;
// removing one listener never touches the others.
type listenerSet[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (s *listenerSet[T]) add(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *listenerSet[T]) emit(event T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	// callbacks run outside the lock so a listener may unsubscribe itself
	for _, fn := range fns {
		fn(event)
	}
}
