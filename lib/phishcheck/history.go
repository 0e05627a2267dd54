package phishcheck

import (
	"container/ring"
	"sync"
)

// LastResults keeps track of last N checks, thread-safe.
type LastResults struct {
	checks *ring.Ring
	size   int
	lock   sync.RWMutex
}

// NewLastResults creates new checks tracker
func NewLastResults(size int) *LastResults {
	// minimum size is 1
	if size < 1 {
		size = 1
	}
	return &LastResults{
		checks: ring.New(size),
		size:   size,
	}
}

// Push adds new check to the history
func (h *LastResults) Push(c Check) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.checks.Value = c
	h.checks = h.checks.Next()
}

// Last returns up to n last checks, newest first
func (h *LastResults) Last(n int) []Check {
	if n < 1 {
		return []Check{}
	}

	h.lock.RLock()
	defer h.lock.RUnlock()

	if n > h.size {
		n = h.size
	}

	result := make([]Check, 0, n)
	// current position is the oldest slot, walk backwards from the newest one
	for r := h.checks.Prev(); len(result) < n; r = r.Prev() {
		c, ok := r.Value.(Check)
		if !ok {
			break // empty slot, nothing older
		}
		result = append(result, c)
		if r == h.checks {
			break
		}
	}
	return result
}

// Size returns the capacity of the history
func (h *LastResults) Size() int {
	return h.size
}
