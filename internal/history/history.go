// Package history keeps the scroll-back shown above the composition
// box: a fixed number of rendered lines, oldest evicted first.
package history

import "iter"

// DefaultCapacity is the number of lines a session keeps.
const DefaultCapacity = 24

// Ring is a bounded, insertion-ordered list of display lines.  When
// full, Push drops the oldest line before appending.  There is no
// growth past the capacity and no reordering on access.
type Ring struct {
	lines    []string
	capacity int
}

// New returns an empty ring holding at most capacity lines (minimum 1).
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{lines: make([]string, 0, capacity), capacity: capacity}
}

// Push appends line, evicting the oldest line when at capacity.
func (r *Ring) Push(line string) {
	if len(r.lines) == r.capacity {
		copy(r.lines, r.lines[1:])
		r.lines[len(r.lines)-1] = line
		return
	}
	r.lines = append(r.lines, line)
}

// Clear drops every line.
func (r *Ring) Clear() {
	clear(r.lines)
	r.lines = r.lines[:0]
}

// Len returns the number of lines held.
func (r *Ring) Len() int { return len(r.lines) }

// Cap returns the capacity.
func (r *Ring) Cap() int { return r.capacity }

// All yields the held lines oldest first.  The sequence may be ranged
// over any number of times and never mutates the ring.
func (r *Ring) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, l := range r.lines {
			if !yield(l) {
				return
			}
		}
	}
}

// Lines returns a copy of the held lines, oldest first.
func (r *Ring) Lines() []string {
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}
