package model

import "sync"

// Sequence hands out monotonically increasing identifiers. Each owner (directory,
// scheduling service) holds its own, so tests get deterministic ids per instance.
type Sequence struct {
	mu   sync.Mutex
	next int
}

func NewSequence(start int) *Sequence {
	if start < 1 {
		start = 1
	}
	return &Sequence{next: start}
}

func (s *Sequence) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}

// Observe moves the sequence past an identifier assigned elsewhere (e.g. loaded from storage).
func (s *Sequence) Observe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id >= s.next {
		s.next = id + 1
	}
}
