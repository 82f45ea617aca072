// Package core turns a Config into an established chat session.  It
// composes the transports, NAT traversal and the handshake, and hands
// the session loop a Session whose Close releases everything that was
// set up for it.
//
// Layers (bottom to top):
//
//	transport, tunnel, portmap  →  session  →  core  →  chat  →  cmd
package core

import (
	"context"
	"fmt"
	"net"
	"time"

	ncerr "ltmsg/internal/errors"
	"ltmsg/internal/session"
)

// HandshakeTimeout bounds the username and address exchange.
const HandshakeTimeout = 30 * time.Second

// Mode is one side of the chat.  Establish blocks until a peer is
// connected and the handshake is done.
type Mode interface {
	Establish(ctx context.Context) (*session.Session, error)
}

// guard closes conn if ctx ends while a blocking exchange runs on it,
// and arms a deadline for connections that support one.  The returned
// func disarms both.
func guard(ctx context.Context, conn net.Conn) (release func() bool) {
	conn.SetDeadline(time.Now().Add(HandshakeTimeout)) //nolint:errcheck
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	return func() bool {
		conn.SetDeadline(time.Time{}) //nolint:errcheck
		return stop()
	}
}

// interrupted reports ctx's end as an ErrInterrupted.
func interrupted(ctx context.Context, during string) error {
	return fmt.Errorf("%w while %s: %w", ncerr.ErrInterrupted, during, ctx.Err())
}
