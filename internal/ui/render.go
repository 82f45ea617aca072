package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"ltmsg/internal/editor"
	"ltmsg/internal/handshake"
	"ltmsg/internal/history"
)

const (
	// Prompt precedes the composition box.
	Prompt = "> "

	headerRows = 2
	ruleWidth  = 50
)

// Renderer redraws the whole screen from the history and the editor.
// Nothing is cached between draws: size and geometry are read back
// from the screen every time.
type Renderer struct {
	screen Screen
	header string
	rows   int
	style  tcell.Style
}

// NewRenderer prepares a renderer for historyRows lines of scroll-back.
func NewRenderer(screen Screen, peer handshake.Peer, historyRows int) *Renderer {
	return &Renderer{
		screen: screen,
		header: fmt.Sprintf("Host: %s (%s). Client: %s (%s).",
			peer.HostName, peer.HostIP, peer.ClientName, peer.ClientIP),
		rows:  historyRows,
		style: tcell.StyleDefault,
	}
}

// Geometry returns where the composition box starts on the current
// screen.
func (r *Renderer) Geometry() editor.Geometry {
	width, _ := r.screen.Size()
	return editor.Geometry{
		HomeRow: headerRows + r.rows + 1,
		HomeCol: runewidth.StringWidth(Prompt),
		Width:   max(width, 1),
	}
}

// Draw clears the screen, writes header, history, box and buffer,
// places the cursor and flushes.
func (r *Renderer) Draw(lines *history.Ring, buf *editor.Buffer) {
	g := r.Geometry()
	r.screen.Clear()

	r.writeLine(0, r.header, g.Width)
	r.writeLine(1, strings.Repeat("=", ruleWidth-1), g.Width)

	row := headerRows
	for line := range lines.All() {
		if row >= headerRows+r.rows {
			break
		}
		r.writeLine(row, line, g.Width)
		row++
	}
	// Rows left blank keep the box at a fixed height.

	r.writeLine(headerRows+r.rows, strings.Repeat("=", ruleWidth), g.Width)
	r.writeLine(g.HomeRow, Prompt, g.Width)

	text := []rune(buf.String())
	for i, c := range buf.Layout(g)[:len(text)] {
		r.screen.SetContent(c.Col, c.Row, text[i], nil, r.style)
	}

	row, col := buf.Position(g)
	r.screen.ShowCursor(col, row)
	r.screen.Show()
}

// writeLine writes s on row, cut to width cells.
func (r *Renderer) writeLine(row int, s string, width int) {
	s = runewidth.Truncate(s, width, "")
	col := 0
	for _, ch := range s {
		r.screen.SetContent(col, row, ch, nil, r.style)
		col += max(runewidth.RuneWidth(ch), 1)
	}
}
