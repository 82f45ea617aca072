package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"ltmsg/internal/editor"
	ncerr "ltmsg/internal/errors"
	"ltmsg/internal/history"
	"ltmsg/internal/metrics"
	"ltmsg/internal/session"
	"ltmsg/internal/ui"
	"ltmsg/internal/wire"
	"ltmsg/util"
)

// DefaultWriteTimeout bounds one send to the peer.  A peer that stops
// reading ends the session instead of freezing the screen.
const DefaultWriteTimeout = 5 * time.Second

// Options sizes the session state.  Zero values pick the defaults.
type Options struct {
	HistorySize  int
	BufferSize   int
	MaxMessage   int
	WriteTimeout time.Duration
	Metrics      *metrics.Collector
}

// Engine is the session loop.  It owns the history, the composition
// buffer and the session's connection from Run until it returns.
type Engine struct {
	sess    *session.Session
	screen  ui.Screen
	keys    <-chan tcell.Event
	ring    *history.Ring
	buf     *editor.Buffer
	render  *ui.Renderer
	disp    *Dispatcher
	log     *util.Logger
	metrics *metrics.Collector
	maxMsg  int
	wto     time.Duration
}

// NewEngine prepares a session loop drawing on screen and reading
// terminal events from keys.
func NewEngine(sess *session.Session, screen ui.Screen, keys <-chan tcell.Event, opts Options) *Engine {
	if opts.HistorySize <= 0 {
		opts.HistorySize = history.DefaultCapacity
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = editor.DefaultCapacity
	}
	if opts.MaxMessage <= 0 {
		opts.MaxMessage = wire.MaxMessageSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	ring := history.New(opts.HistorySize)
	return &Engine{
		sess:    sess,
		screen:  screen,
		keys:    keys,
		ring:    ring,
		buf:     editor.New(opts.BufferSize),
		render:  ui.NewRenderer(screen, sess.Peer, opts.HistorySize),
		disp:    &Dispatcher{History: ring, Metrics: opts.Metrics},
		log:     sess.Logger,
		metrics: opts.Metrics,
		maxMsg:  opts.MaxMessage,
		wto:     opts.WriteTimeout,
	}
}

// inbound is one read from the peer.
type inbound struct {
	text string
	err  error
}

// event is either a peer read or a terminal event, never both.
type event struct {
	peer *inbound
	key  tcell.Event
}

// Run draws the screen and processes events until /quit is
// acknowledged, the connection fails, the user presses Ctrl-C or ctx
// is cancelled.  The session is closed before Run returns, whatever
// the reason.  A /quit from either side returns nil.
func (e *Engine) Run(ctx context.Context) error {
	net := make(chan inbound)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.readLoop(net, done)
	}()
	defer func() {
		close(done)
		if err := e.sess.Close(); err != nil {
			e.log.Verbose("close: %v", err)
		}
		wg.Wait()
		e.log.Verbose("session metrics: %s", e.metrics.JSON())
	}()

	e.log.Info("chatting with %s", e.sess.RemoteName())
	e.redraw()
	for {
		ev, err := e.nextEvent(ctx, net)
		if err != nil {
			return err
		}

		var res Result
		if ev.peer != nil {
			res, err = e.handlePeer(*ev.peer)
		} else {
			res, err = e.handleKey(ev.key)
		}
		if err != nil {
			e.metrics.RecordError(err.Error())
			return err
		}
		if res == Quit {
			e.redraw()
			return e.awaitKey(ctx)
		}
	}
}

// readLoop performs one read per message and hands each result to
// the session loop.  It stops after the first failed read or once done
// is closed.
func (e *Engine) readLoop(out chan<- inbound, done <-chan struct{}) {
	for {
		text, err := wire.ReadMessage(e.sess.Conn, e.maxMsg)
		select {
		case out <- inbound{text: text, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// nextEvent returns the next thing to process.  A pending peer message
// always wins over a pending keystroke.
func (e *Engine) nextEvent(ctx context.Context, net <-chan inbound) (event, error) {
	select {
	case m := <-net:
		return event{peer: &m}, nil
	default:
	}

	select {
	case m := <-net:
		return event{peer: &m}, nil
	case k, ok := <-e.keys:
		if !ok {
			return event{}, ncerr.ErrInterrupted
		}
		return event{key: k}, nil
	case <-ctx.Done():
		return event{}, fmt.Errorf("%w: %w", ncerr.ErrInterrupted, ctx.Err())
	}
}

func (e *Engine) handlePeer(m inbound) (Result, error) {
	if m.err != nil {
		return Normal, ncerr.Lost(e.remoteAddr(), m.err)
	}
	e.metrics.MessageReceived(len(m.text))
	e.log.Debug("recv %q", m.text)
	res := e.disp.Dispatch(e.sess.RemoteName(), m.text, Remote)
	if res == Normal {
		e.redraw()
	}
	return res, nil
}

func (e *Engine) handleKey(ev tcell.Event) (Result, error) {
	key := ui.Translate(ev)
	changed := false
	switch key.Action {
	case ui.ActionInsert:
		changed = e.buf.Insert(key.Rune)
	case ui.ActionBackspace:
		changed = e.buf.DeleteBeforeCursor()
	case ui.ActionLeft:
		changed = e.buf.MoveLeft()
	case ui.ActionRight:
		changed = e.buf.MoveRight()
	case ui.ActionHome:
		changed = e.buf.MoveToStart()
	case ui.ActionEnd:
		changed = e.buf.MoveToEnd()
	case ui.ActionResize:
		e.resize()
		changed = true
	case ui.ActionInterrupt:
		return Normal, ncerr.ErrInterrupted
	case ui.ActionSubmit:
		return e.submit()
	}
	if changed {
		e.redraw()
	}
	return Normal, nil
}

// submit sends the composed line, then applies it locally.  Empty
// lines are not sent.
func (e *Engine) submit() (Result, error) {
	if e.buf.Len() == 0 {
		return Normal, nil
	}
	text := e.buf.String()
	if err := e.sess.Conn.SetWriteDeadline(time.Now().Add(e.wto)); err != nil {
		e.log.Debug("write deadline: %v", err)
	}
	if err := wire.WriteMessage(e.sess.Conn, text); err != nil {
		return Normal, ncerr.Wrap("write", e.remoteAddr(), err)
	}
	e.metrics.MessageSent(len(text))
	e.log.Debug("sent %q", text)

	if e.disp.Dispatch(e.sess.LocalName(), text, Local) == Quit {
		return Quit, nil
	}
	e.buf.Clear()
	e.redraw()
	return Normal, nil
}

// awaitKey blocks until the local user presses any key.  Peer traffic
// is no longer read.
func (e *Engine) awaitKey(ctx context.Context) error {
	for {
		select {
		case ev, ok := <-e.keys:
			if !ok {
				return nil
			}
			if ui.IsKeypress(ev) {
				return nil
			}
			if ui.Translate(ev).Action == ui.ActionResize {
				e.resize()
				e.redraw()
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (e *Engine) redraw() {
	e.render.Draw(e.ring, e.buf)
	e.metrics.Redrawn()
}

// resize lets a real terminal pick up its new size before the redraw.
func (e *Engine) resize() {
	if s, ok := e.screen.(interface{ Sync() }); ok {
		s.Sync()
	}
}

func (e *Engine) remoteAddr() string {
	if a := e.sess.Conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return "peer"
}
