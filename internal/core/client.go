package core

import (
	"context"
	"net"
	"time"

	ncerr "ltmsg/internal/errors"
	"ltmsg/internal/handshake"
	"ltmsg/internal/retry"
	"ltmsg/internal/session"
	"ltmsg/internal/transport"
	"ltmsg/util"
)

// ClientMode connects to a waiting host.
type ClientMode struct {
	Name    string
	Peer    string // host address as typed by the user
	Port    int
	Dialer  transport.Dialer
	Backoff *retry.Backoff
	Logger  *util.Logger
}

// Establish dials the host, retrying refused or timed-out attempts as
// the backoff allows, then runs the client side of the handshake.
func (m *ClientMode) Establish(ctx context.Context) (*session.Session, error) {
	addr := util.FormatAddr(m.Peer, m.Port)
	b := m.Backoff
	if b == nil {
		b = retry.DefaultBackoff(1)
	}
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		m.Logger.Warn("attempt %d: %v; retrying in %s", attempt, err, wait.Round(time.Millisecond))
	}

	var conn net.Conn
	err := b.Do(ctx, func(attempt int) error {
		m.Logger.Verbose("connecting to %s (attempt %d)", addr, attempt)
		c, err := m.Dialer.Dial(ctx, "tcp", addr)
		if err != nil {
			if !ncerr.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		m.Dialer.Close()
		return nil, err
	}

	release := guard(ctx, conn)
	peer, err := handshake.Client(conn, m.Name, m.Peer)
	if !release() {
		conn.Close()
		m.Dialer.Close()
		return nil, interrupted(ctx, "exchanging names")
	}
	if err != nil {
		conn.Close()
		m.Dialer.Close()
		return nil, err
	}

	sess := session.New(session.Client, conn, peer, m.Logger)
	sess.OnClose(m.Dialer)
	sess.Logger.Info("connected to %s (%s)", peer.HostName, peer.HostIP)
	return sess, nil
}
