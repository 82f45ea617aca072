// Package ui draws the chat screen and turns terminal events into
// editor actions.
package ui

import "github.com/gdamore/tcell/v2"

// Screen is the drawing surface the renderer needs.  tcell.Screen
// satisfies it, and so does tcell's simulation screen used in tests.
type Screen interface {
	Clear()
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	ShowCursor(x, y int)
	Size() (width, height int)
	Show()
}
