package state

import (
	"errors"
	"sync"
)

// Errors for Slot access.
var (
	ErrSlotWritten = errors.New("slot already written in this generation")
	ErrSlotEmpty   = errors.New("slot read before it was written")
)

// Slot holds a value produced by one step and consumed by a later one.
// It can be written once per generation; Reset starts a new generation.
type Slot[T any] struct {
	mu         sync.Mutex
	generation uint64
	written    bool
	value      T
}

// Reset discards the value and starts a new generation.
func (s *Slot[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	s.value = zero
	s.written = false
	s.generation++
}

// Store writes the value for the current generation.
func (s *Slot[T]) Store(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.written {
		return ErrSlotWritten
	}
	s.value = v
	s.written = true
	return nil
}

// Load returns the value of the current generation.
func (s *Slot[T]) Load() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.written {
		var zero T
		return zero, ErrSlotEmpty
	}
	return s.value, nil
}

// Generation returns the number of resets so far.
func (s *Slot[T]) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}
