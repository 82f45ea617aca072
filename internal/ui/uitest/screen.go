// Package uitest provides an in-memory ui.Screen for tests.
package uitest

import (
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Screen records what was drawn.  It is safe for concurrent use so a
// test can inspect it while a session loop is drawing.
type Screen struct {
	mu      sync.Mutex
	width   int
	height  int
	cells   map[[2]int]rune
	cursorX int
	cursorY int
	shows   int
}

// NewScreen returns a blank width x height screen.
func NewScreen(width, height int) *Screen {
	return &Screen{width: width, height: height, cells: map[[2]int]rune{}}
}

func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells = map[[2]int]rune{}
}

func (s *Screen) SetContent(x, y int, primary rune, _ []rune, _ tcell.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return
	}
	s.cells[[2]int{x, y}] = primary
}

func (s *Screen) ShowCursor(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorX, s.cursorY = x, y
}

func (s *Screen) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *Screen) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows++
}

// SetSize changes the dimensions reported by Size.
func (s *Screen) SetSize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

// Row returns the text on row y with trailing blanks removed.
func (s *Screen) Row(y int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for x := 0; x < s.width; x++ {
		r, ok := s.cells[[2]int{x, y}]
		if !ok {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

// Cursor returns the last cursor position as (x, y).
func (s *Screen) Cursor() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursorX, s.cursorY
}

// Shows returns how many times the screen was flushed.
func (s *Screen) Shows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shows
}
