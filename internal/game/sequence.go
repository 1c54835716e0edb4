package game

import (
	"fmt"
	"sync"
)

// SequenceSource replays fixed draws in order. Used to force outcomes in tests.
type SequenceSource struct {
	mu     sync.Mutex
	values []int
	next   int
}

func NewSequenceSource(values ...int) *SequenceSource {
	return &SequenceSource{values: values}
}

func (s *SequenceSource) Intn(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.values) {
		return 0, fmt.Errorf("sequence source exhausted after %d draws", s.next)
	}
	v := s.values[s.next]
	s.next++
	if v < 0 || v >= n {
		return 0, fmt.Errorf("sequence value %d out of range [0,%d)", v, n)
	}
	return v, nil
}

// Remaining reports how many draws are left.
func (s *SequenceSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.next
}
