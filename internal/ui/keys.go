package ui

import "github.com/gdamore/tcell/v2"

// Action is what a terminal event asks the session to do.
type Action int

const (
	ActionNone Action = iota
	ActionInsert
	ActionSubmit
	ActionBackspace
	ActionLeft
	ActionRight
	ActionHome
	ActionEnd
	ActionResize
	ActionInterrupt
)

var actionNames = [...]string{
	"none", "insert", "submit", "backspace", "left", "right",
	"home", "end", "resize", "interrupt",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// Key is a translated terminal event.  Rune is set for ActionInsert.
type Key struct {
	Action Action
	Rune   rune
}

// Translate maps a tcell event to an Action.  Unhandled keys and
// events translate to ActionNone.
func Translate(ev tcell.Event) Key {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		return Key{Action: ActionResize}
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyRune:
			return Key{Action: ActionInsert, Rune: ev.Rune()}
		case tcell.KeyEnter, tcell.KeyCtrlJ:
			return Key{Action: ActionSubmit}
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			return Key{Action: ActionBackspace}
		case tcell.KeyLeft:
			return Key{Action: ActionLeft}
		case tcell.KeyRight:
			return Key{Action: ActionRight}
		case tcell.KeyHome, tcell.KeyCtrlA:
			return Key{Action: ActionHome}
		case tcell.KeyEnd, tcell.KeyCtrlE:
			return Key{Action: ActionEnd}
		case tcell.KeyCtrlC:
			return Key{Action: ActionInterrupt}
		}
	}
	return Key{Action: ActionNone}
}

// IsKeypress reports whether ev is a key event of any kind.
func IsKeypress(ev tcell.Event) bool {
	_, ok := ev.(*tcell.EventKey)
	return ok
}
