package csg

import "sync"

// Arena owns the creator reference of every solid made inside one script
// execution context. Close releases them all; a solid that must outlive the
// arena has to be retained first.
type Arena struct {
	mu     sync.Mutex
	solids []*Solid
	seen   map[*Solid]struct{}
	closed bool
}

func NewArena() *Arena {
	return &Arena{seen: make(map[*Solid]struct{})}
}

// Track hands ownership of s to the arena and returns s. Tracking the same
// solid twice is a no-op. Tracking on a closed arena releases s immediately.
func (a *Arena) Track(s *Solid) *Solid {
	if s == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		s.Release()
		return s
	}
	if _, ok := a.seen[s]; ok {
		return s
	}
	a.seen[s] = struct{}{}
	a.solids = append(a.solids, s)
	return s
}

func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.solids)
}

// Close releases every tracked solid. It is safe to call more than once.
func (a *Arena) Close() {
	a.mu.Lock()
	solids := a.solids
	a.solids = nil
	a.seen = nil
	a.closed = true
	a.mu.Unlock()

	for _, s := range solids {
		s.Release()
	}
}
