// Package inbox hands scene source from producer goroutines to the render
// thread.
package inbox

import "sync"

// Slot holds the newest posted source. Posts overwrite each other; the
// consumer sees only the latest one, and sees it once.
//
// Any number of goroutines may Post. Take is meant for a single consumer.
type Slot struct {
	mu    sync.Mutex
	seq   uint64
	taken uint64
	src   string
}

// Post stores src and bumps the sequence counter, which it returns.
func (s *Slot) Post(src string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = src
	s.seq++
	return s.seq
}

// Take returns the newest post not yet taken.
func (s *Slot) Take() (src string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken == s.seq {
		return "", false
	}
	s.taken = s.seq
	return s.src, true
}

// Last returns the newest post whether or not it was taken, and its sequence
// number. Zero means nothing was ever posted.
func (s *Slot) Last() (src string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src, s.seq
}
