package service

import "sync"

// Serializer grants exclusive access to the shared storage connection.
// At most one logical operation touches the connection at a time; waiters
// block indefinitely and acquisition order is whatever the runtime gives
// (no fairness promise). Cancellation of a waiting caller is the
// transport's concern, not the store's.
type Serializer struct {
	mu sync.Mutex
}

// NewSerializer creates a serializer for one storage connection.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Do runs fn while holding exclusive access and returns fn's error.
// Keep the function body to the storage interaction itself; parsing and
// validation belong outside the guarded region.
func (s *Serializer) Do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
