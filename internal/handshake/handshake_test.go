package handshake

import (
	"errors"
	"net"
	"strings"
	"testing"
	"unicode/utf8"

	ncerr "ltmsg/internal/errors"
)

func TestHandshake_RoundTrip(t *testing.T) {
	hostSide, clientSide := net.Pipe()
	defer hostSide.Close()
	defer clientSide.Close()

	type result struct {
		p   Peer
		err error
	}
	clientCh := make(chan result, 1)
	go func() {
		p, err := Client(clientSide, "bob", "203.0.113.5")
		clientCh <- result{p, err}
	}()

	hp, err := Host(hostSide, "alice", "198.51.100.7")
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	cr := <-clientCh
	if cr.err != nil {
		t.Fatalf("client: %v", cr.err)
	}

	want := Peer{HostName: "alice", ClientName: "bob", HostIP: "203.0.113.5", ClientIP: "198.51.100.7"}
	if hp != want {
		t.Errorf("host view = %+v, want %+v", hp, want)
	}
	if cr.p != want {
		t.Errorf("client view = %+v, want %+v", cr.p, want)
	}
}

func TestHandshake_PeerHangsUp(t *testing.T) {
	hostSide, clientSide := net.Pipe()
	go func() {
		buf := make([]byte, NameSize)
		clientSide.Read(buf) //nolint:errcheck
		clientSide.Close()
	}()

	_, err := Host(hostSide, "alice", "10.0.0.2")
	if !errors.Is(err, ncerr.ErrHandshake) {
		t.Errorf("got %v, want ErrHandshake", err)
	}
	hostSide.Close()
}

func TestFit(t *testing.T) {
	long := strings.Repeat("a", 40)
	if got := fit(long, NameSize); len(got) != NameSize-1 {
		t.Errorf("len = %d, want %d", len(got), NameSize-1)
	}

	multi := strings.Repeat("é", 20) // 40 bytes
	got := fit(multi, NameSize)
	if !utf8.ValidString(got) || len(got) >= NameSize {
		t.Errorf("fit split a rune or overflowed: %q (%d bytes)", got, len(got))
	}

	if got := fit("bob", NameSize); got != "bob" {
		t.Errorf("short name changed to %q", got)
	}
}
