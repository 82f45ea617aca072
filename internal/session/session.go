// Package session is the context object for one chat: who is talking,
// over which connection, and what must be released when it ends.
//
// The session loop owns the Session.  Components receive it (or the
// parts they need) explicitly instead of reaching for globals.
package session

import (
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	ncerr "ltmsg/internal/errors"
	"ltmsg/internal/handshake"
	"ltmsg/util"
)

// Role says which side of the connection this process is.
type Role int

const (
	Host Role = iota
	Client
)

func (r Role) String() string {
	if r == Host {
		return "host"
	}
	return "client"
}

// Session binds the peer connection to the identities exchanged during
// the handshake.
type Session struct {
	ID     string
	Role   Role
	Peer   handshake.Peer
	Conn   net.Conn
	Logger *util.Logger

	mu       sync.Mutex
	closers  []io.Closer
	once     sync.Once
	closeErr error
}

// New creates a Session for an established, handshaken connection.
func New(role Role, conn net.Conn, peer handshake.Peer, logger *util.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:     id,
		Role:   role,
		Peer:   peer,
		Conn:   conn,
		Logger: logger.With("session", id[:8]),
	}
}

// LocalName is the username typed on this side.
func (s *Session) LocalName() string {
	if s.Role == Host {
		return s.Peer.HostName
	}
	return s.Peer.ClientName
}

// RemoteName is the username the peer sent.
func (s *Session) RemoteName() string {
	if s.Role == Host {
		return s.Peer.ClientName
	}
	return s.Peer.HostName
}

// OnClose registers c to be closed after the connection, in reverse
// registration order.  Listeners, SSH forwards and port mappings go here.
func (s *Session) OnClose(c io.Closer) {
	s.mu.Lock()
	s.closers = append(s.closers, c)
	s.mu.Unlock()
}

// Close closes the connection and every registered resource exactly
// once.  Later calls return the first result.
func (s *Session) Close() error {
	s.once.Do(func() {
		var errs []error
		if s.Conn != nil {
			if err := s.Conn.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.mu.Lock()
		closers := s.closers
		s.closers = nil
		s.mu.Unlock()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				s.Logger.Warn("teardown: %v", err)
				errs = append(errs, err)
			}
		}
		s.closeErr = ncerr.Join(errs...)
		s.Logger.Verbose("session closed")
	})
	return s.closeErr
}
