// Package editor implements the composition buffer: a bounded rune
// buffer with an insertion cursor, plus the translation of that cursor
// into terminal coordinates.
//
// Screen coordinates are never stored.  They are derived from the
// cursor index and a Geometry on every call, so a resize between two
// keystrokes cannot leave them stale.
package editor

import (
	"unicode"

	"github.com/mattn/go-runewidth"
)

// DefaultCapacity mirrors a 255-character buffer plus terminator.
const DefaultCapacity = 256

// Buffer holds the text being composed.
//
// Invariant: 0 <= Cursor() <= Len() <= Capacity()-1.
type Buffer struct {
	text     []rune
	cursor   int
	capacity int
}

// New returns an empty buffer that holds at most capacity-1 runes.
// Capacities below 2 are raised to 2.
func New(capacity int) *Buffer {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer{
		text:     make([]rune, 0, capacity-1),
		capacity: capacity,
	}
}

// Len returns the number of runes held.
func (b *Buffer) Len() int { return len(b.text) }

// Cursor returns the logical insertion point.
func (b *Buffer) Cursor() int { return b.cursor }

// Capacity returns the configured capacity, terminator slot included.
func (b *Buffer) Capacity() int { return b.capacity }

// Full reports whether a further Insert would be rejected.
func (b *Buffer) Full() bool { return len(b.text) >= b.capacity-1 }

// String returns the buffer contents.
func (b *Buffer) String() string { return string(b.text) }

// Insert puts r at the cursor and advances it.  A full buffer or a
// non-printable rune leaves the buffer untouched and returns false.
func (b *Buffer) Insert(r rune) bool {
	if b.Full() || !unicode.IsPrint(r) {
		return false
	}
	b.text = append(b.text, 0)
	copy(b.text[b.cursor+1:], b.text[b.cursor:])
	b.text[b.cursor] = r
	b.cursor++
	return true
}

// DeleteBeforeCursor removes the rune left of the cursor.
func (b *Buffer) DeleteBeforeCursor() bool {
	if b.cursor == 0 {
		return false
	}
	copy(b.text[b.cursor-1:], b.text[b.cursor:])
	b.text = b.text[:len(b.text)-1]
	b.cursor--
	return true
}

// MoveLeft steps the cursor back one rune.
func (b *Buffer) MoveLeft() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor--
	return true
}

// MoveRight steps the cursor forward one rune.
func (b *Buffer) MoveRight() bool {
	if b.cursor == len(b.text) {
		return false
	}
	b.cursor++
	return true
}

// MoveToStart puts the cursor before the first rune.
func (b *Buffer) MoveToStart() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor = 0
	return true
}

// MoveToEnd puts the cursor after the last rune.
func (b *Buffer) MoveToEnd() bool {
	if b.cursor == len(b.text) {
		return false
	}
	b.cursor = len(b.text)
	return true
}

// Clear empties the buffer and homes the cursor.
func (b *Buffer) Clear() {
	b.text = b.text[:0]
	b.cursor = 0
}

// ── geometry ─────────────────────────────────────────────────────────

// Geometry is where the composition box starts and how wide the
// terminal is.  It is recomputed by the renderer on every draw.
type Geometry struct {
	HomeRow int
	HomeCol int
	Width   int
}

// Cell is a screen coordinate.
type Cell struct {
	Row int
	Col int
}

// Layout returns the screen cell of every rune followed by the cell of
// the end-of-text position, so len(result) == Len()+1.
//
// Text flows from (HomeRow, HomeCol) and wraps at Width.  A rune two
// cells wide never straddles a row: if only one cell is left it moves
// to the start of the next row.
func (b *Buffer) Layout(g Geometry) []Cell {
	width := g.Width
	if width < 1 {
		width = 1
	}
	cells := make([]Cell, 0, len(b.text)+1)
	p := g.HomeCol
	for _, r := range b.text {
		w := runewidth.RuneWidth(r)
		if w < 1 {
			w = 1
		}
		if w > 1 && width > 1 && p%width+w > width {
			p += width - p%width
		}
		cells = append(cells, Cell{Row: g.HomeRow + p/width, Col: p % width})
		p += w
	}
	cells = append(cells, Cell{Row: g.HomeRow + p/width, Col: p % width})
	return cells
}

// Position returns the screen coordinate of the cursor.  For
// single-cell runes it is HomeRow + (HomeCol+i)/Width and
// (HomeCol+i)%Width, including i == Len().
func (b *Buffer) Position(g Geometry) (row, col int) {
	c := b.Layout(g)[b.cursor]
	return c.Row, c.Col
}
