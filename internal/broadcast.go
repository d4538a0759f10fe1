package internal

// subscribers fans snapshots out to latest-wins channels. It is owned by a
// loop and has no locking of its own.
type subscribers[T any] struct {
	chans map[int]chan T
	next  int
}

func newSubscribers[T any]() *subscribers[T] {
	return &subscribers[T]{chans: make(map[int]chan T)}
}

// add registers a channel primed with current.
func (s *subscribers[T]) add(current T) (int, chan T) {
	ch := make(chan T, 1)
	ch <- current
	id := s.next
	s.next++
	s.chans[id] = ch
	return id, ch
}

func (s *subscribers[T]) remove(id int) {
	if ch, ok := s.chans[id]; ok {
		delete(s.chans, id)
		close(ch)
	}
}

// publish replaces whatever a subscriber has not read yet with v.
func (s *subscribers[T]) publish(v T) {
	for _, ch := range s.chans {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (s *subscribers[T]) closeAll() {
	for id := range s.chans {
		s.remove(id)
	}
}
