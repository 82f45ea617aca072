// Package chat runs an established chat session: it routes every line
// typed locally or received from the peer through the Dispatcher and
// drives the screen from the Engine's single event loop.
package chat

import (
	"fmt"
	"strings"

	"ltmsg/internal/history"
	"ltmsg/internal/metrics"
)

// Origin says which side produced a line.
type Origin int

const (
	Local Origin = iota
	Remote
)

func (o Origin) String() string {
	if o == Local {
		return "local"
	}
	return "remote"
}

// Result is what the session loop does after a line was dispatched.
type Result int

const (
	Normal Result = iota
	Quit
)

const (
	cmdQuit  = "/quit"
	cmdClear = "/clear"
)

// Dispatcher classifies a line as chat text or a slash command and
// applies its effect on the history.
type Dispatcher struct {
	History *history.Ring
	Metrics *metrics.Collector
}

// Dispatch handles one line spoken by speaker.  Commands match exactly;
// "/quit " with a trailing blank is an unknown command.
func (d *Dispatcher) Dispatch(speaker, text string, origin Origin) Result {
	if !strings.HasPrefix(text, "/") {
		d.History.Push(speaker + ": " + text)
		return Normal
	}

	switch {
	case text == cmdQuit:
		d.Metrics.CommandExecuted()
		d.notice(fmt.Sprintf("Connection closed by %s. Press any key to exit...", speaker))
		return Quit

	case text == cmdClear:
		if origin == Local {
			d.Metrics.CommandExecuted()
			d.History.Clear()
		}
		return Normal

	case origin == Local:
		d.notice(fmt.Sprintf("Unknown command '%s'", text))
	}
	// Unknown commands from the peer are not shown.
	return Normal
}

func (d *Dispatcher) notice(line string) {
	d.Metrics.NoticePosted()
	d.History.Push(line)
}
