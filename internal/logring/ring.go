// Package logring keeps the most recent output lines of the process in a
// bounded, insertion-ordered ring so they can be served over HTTP.
package logring

import "sync"

// DefaultCapacity is the number of lines kept when NewRing is given n <= 0.
const DefaultCapacity = 3000

// Ring is a fixed-size line store. When full, appending drops the oldest line.
// Readers and writers share a single RWMutex.
type Ring struct {
	mu    sync.RWMutex
	lines []string
	head  int // next write position
	size  int
}

// NewRing creates a ring holding at most capacity lines.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{lines: make([]string, capacity)}
}

// Append stores line, evicting the oldest entry once the ring is full.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.size < len(r.lines) {
		r.size++
	}
	r.mu.Unlock()
}

// Last returns up to n of the most recent lines, oldest first.
// The returned slice is a copy and safe to modify.
func (r *Ring) Last(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || r.size == 0 {
		return []string{}
	}
	if n > r.size {
		n = r.size
	}
	out := make([]string, n)
	start := (r.head - n + len(r.lines)) % len(r.lines)
	for i := 0; i < n; i++ {
		out[i] = r.lines[(start+i)%len(r.lines)]
	}
	return out
}

// Len reports how many lines are currently stored.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap reports the maximum number of lines the ring can hold.
func (r *Ring) Cap() int { return len(r.lines) }
