package store

import (
	"fmt"
	"sync"
)

// SampleStore is a fixed-capacity circular buffer of samples.
//
// Reading the buffer starting at writeIndex and walking capacity slots
// forward (modulo capacity) always yields samples oldest to newest. A single
// mutex guards both the slots and the index; every critical section is
// bounded by capacity.
type SampleStore struct {
	mu          sync.Mutex
	buffer      []float64
	writeIndex  int
	filled      int
	placeholder float64
}

var _ Store = (*SampleStore)(nil)

// NewSampleStore creates a [SampleStore] with every slot set to placeholder.
//
// Returns an error if capacity is not positive.
func NewSampleStore(capacity int, placeholder float64) (*SampleStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}

	buffer := make([]float64, capacity)
	for i := range buffer {
		buffer[i] = placeholder
	}

	return &SampleStore{
		buffer:      buffer,
		placeholder: placeholder,
	}, nil
}

// Append writes value into the next slot and advances the write index.
//
// Append never fails. Once the buffer has wrapped, each call overwrites the
// oldest sample.
func (s *SampleStore) Append(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer[s.writeIndex] = value
	s.writeIndex = (s.writeIndex + 1) % len(s.buffer)
	if s.filled < len(s.buffer) {
		s.filled++
	}
}

// Snapshot returns a copy of all slots, oldest first.
func (s *SampleStore) Snapshot() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.orderedLocked()
}

// History returns the snapshot together with capacity and fill count, all
// taken from the same state.
func (s *SampleStore) History() History {
	s.mu.Lock()
	defer s.mu.Unlock()

	return History{
		Capacity: len(s.buffer),
		Filled:   s.filled,
		Samples:  s.orderedLocked(),
	}
}

// Latest returns the most recently appended sample.
// ok is false if nothing has been appended yet.
func (s *SampleStore) Latest() (value float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filled == 0 {
		return s.placeholder, false
	}
	last := (s.writeIndex - 1 + len(s.buffer)) % len(s.buffer)
	return s.buffer[last], true
}

// Capacity returns the fixed number of slots.
func (s *SampleStore) Capacity() int {
	return len(s.buffer)
}

// WriteIndex returns the slot that will receive the next write.
func (s *SampleStore) WriteIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeIndex
}

// Filled returns how many slots hold real samples (at most Capacity).
func (s *SampleStore) Filled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filled
}

// Placeholder returns the value unfilled slots are initialised to.
func (s *SampleStore) Placeholder() float64 {
	return s.placeholder
}

// orderedLocked copies the buffer starting at writeIndex. Caller holds s.mu.
func (s *SampleStore) orderedLocked() []float64 {
	out := make([]float64, len(s.buffer))
	n := copy(out, s.buffer[s.writeIndex:])
	copy(out[n:], s.buffer[:s.writeIndex])
	return out
}
