package core

import (
	"context"
	"fmt"
	"io"
	"net"

	ncerr "ltmsg/internal/errors"
	"ltmsg/internal/handshake"
	"ltmsg/internal/session"
	"ltmsg/util"
)

// HostMode waits for exactly one peer.
type HostMode struct {
	Name string
	Port int

	// Listen opens where the peer will arrive: a local TCP port or a
	// port forwarded by an SSH gateway.
	Listen func(ctx context.Context) (net.Listener, error)
	// MapPort, when set, opens Port on the router after Listen
	// succeeds.  The returned Closer removes the mapping.
	MapPort func(ctx context.Context, port int) (io.Closer, error)

	Logger *util.Logger
}

// Establish listens, accepts one peer and runs the host side of the
// handshake.  The listener and any port mapping stay up until the
// returned session is closed.
func (m *HostMode) Establish(ctx context.Context) (*session.Session, error) {
	var teardown []io.Closer
	fail := func(err error) (*session.Session, error) {
		for i := len(teardown) - 1; i >= 0; i-- {
			teardown[i].Close()
		}
		return nil, err
	}

	ln, err := m.Listen(ctx)
	if err != nil {
		return nil, err
	}
	teardown = append(teardown, ln)
	m.Logger.Info("waiting for a peer on %s", ln.Addr())

	if m.MapPort != nil {
		mapping, err := m.MapPort(ctx, m.Port)
		if err != nil {
			return fail(fmt.Errorf("port mapping: %w", err))
		}
		// Removed after the listener closes.
		teardown = append([]io.Closer{mapping}, teardown...)
	}

	conn, err := accept(ctx, ln)
	if err != nil {
		return fail(err)
	}
	m.Logger.Verbose("connection from %s", conn.RemoteAddr())

	release := guard(ctx, conn)
	peer, err := handshake.Host(conn, m.Name, util.HostOf(conn.RemoteAddr().String()))
	if !release() {
		conn.Close()
		return fail(interrupted(ctx, "exchanging names"))
	}
	if err != nil {
		conn.Close()
		return fail(err)
	}

	sess := session.New(session.Host, conn, peer, m.Logger)
	for _, c := range teardown {
		sess.OnClose(c)
	}
	sess.Logger.Info("%s (%s) joined", peer.ClientName, peer.ClientIP)
	return sess, nil
}

// accept waits for one connection or ctx's end, whichever is first.
func accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, ncerr.Wrap("accept", ln.Addr().String(), r.err)
		}
		return r.conn, nil
	case <-ctx.Done():
		ln.Close()
		if r := <-ch; r.conn != nil {
			r.conn.Close()
		}
		return nil, interrupted(ctx, "waiting for a peer")
	}
}

// listenTCP listens on every interface, like the original chat host.
func listenTCP(port int) func(context.Context) (net.Listener, error) {
	return func(ctx context.Context) (net.Listener, error) {
		addr := util.FormatAddr("", port)
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			return nil, ncerr.Wrap("listen", addr, err)
		}
		return ln, nil
	}
}
