package session

import (
	"errors"
	"net"
	"testing"

	"ltmsg/internal/handshake"
	"ltmsg/util"
)

type closeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (c *closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func newTestSession(t *testing.T, role Role) (*Session, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { b.Close() })
	peer := handshake.Peer{HostName: "alice", ClientName: "bob", HostIP: "10.0.0.1", ClientIP: "10.0.0.2"}
	return New(role, a, peer, util.NewLogger(0)), b
}

func TestNames_ByRole(t *testing.T) {
	host, _ := newTestSession(t, Host)
	if host.LocalName() != "alice" || host.RemoteName() != "bob" {
		t.Errorf("host: local=%q remote=%q", host.LocalName(), host.RemoteName())
	}
	client, _ := newTestSession(t, Client)
	if client.LocalName() != "bob" || client.RemoteName() != "alice" {
		t.Errorf("client: local=%q remote=%q", client.LocalName(), client.RemoteName())
	}
	if host.ID == "" || host.ID == client.ID {
		t.Error("sessions should get distinct IDs")
	}
}

func TestClose_ExactlyOnceInReverseOrder(t *testing.T) {
	s, peer := newTestSession(t, Host)
	var order []string
	s.OnClose(&closeRecorder{name: "listener", order: &order})
	s.OnClose(&closeRecorder{name: "mapping", order: &order})

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if len(order) != 2 || order[0] != "mapping" || order[1] != "listener" {
		t.Errorf("close order = %v, want [mapping listener]", order)
	}

	buf := make([]byte, 1)
	if _, err := peer.Read(buf); err == nil {
		t.Error("peer should see the connection closed")
	}
}

func TestClose_CollectsErrors(t *testing.T) {
	s, _ := newTestSession(t, Client)
	var order []string
	boom := errors.New("delete port mapping: 500")
	s.OnClose(&closeRecorder{name: "mapping", order: &order, err: boom})

	if err := s.Close(); !errors.Is(err, boom) {
		t.Errorf("got %v, want joined teardown error", err)
	}
}

func TestRole_String(t *testing.T) {
	if Host.String() != "host" || Client.String() != "client" {
		t.Errorf("got %q and %q", Host.String(), Client.String())
	}
}
