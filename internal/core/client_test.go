package core

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	ncerr "ltmsg/internal/errors"
	"ltmsg/internal/handshake"
	"ltmsg/internal/retry"
	"ltmsg/internal/transport"
	"ltmsg/util"
)

// fakeHost accepts one connection on a loopback port and runs the host
// side of the handshake.
func fakeHost(t *testing.T, port int, delay time.Duration) <-chan handshake.Peer {
	t.Helper()
	out := make(chan handshake.Peer, 1)
	go func() {
		time.Sleep(delay)
		ln, err := net.Listen("tcp", util.FormatAddr("127.0.0.1", port))
		if err != nil {
			close(out)
			return
		}
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			close(out)
			return
		}
		defer conn.Close()
		p, err := handshake.Host(conn, "alice", "127.0.0.1")
		if err != nil {
			close(out)
			return
		}
		out <- p
		// Keep the connection open until the client hangs up.
		conn.Read(make([]byte, 1)) //nolint:errcheck
	}()
	return out
}

func fastBackoff(attempts int) *retry.Backoff {
	return &retry.Backoff{InitialDelay: 20 * time.Millisecond, MaxDelay: 50 * time.Millisecond, MaxAttempts: attempts}
}

func TestClientMode_Establish(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	hostSide := fakeHost(t, port, 0)
	time.Sleep(20 * time.Millisecond)

	m := &ClientMode{
		Name: "bob", Peer: "127.0.0.1", Port: port,
		Dialer:  &transport.TCPDialer{Timeout: time.Second},
		Backoff: fastBackoff(5),
		Logger:  quiet(),
	}
	sess, err := m.Establish(context.Background())
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	defer sess.Close()

	want := handshake.Peer{HostName: "alice", ClientName: "bob", HostIP: "127.0.0.1", ClientIP: "127.0.0.1"}
	if sess.Peer != want {
		t.Errorf("peer = %+v, want %+v", sess.Peer, want)
	}
	if got := <-hostSide; got != want {
		t.Errorf("host saw %+v", got)
	}
	if sess.LocalName() != "bob" || sess.RemoteName() != "alice" {
		t.Errorf("names = %q / %q", sess.LocalName(), sess.RemoteName())
	}
}

func TestClientMode_RetriesUntilHostListens(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	fakeHost(t, port, 60*time.Millisecond)

	m := &ClientMode{
		Name: "bob", Peer: "127.0.0.1", Port: port,
		Dialer:  &transport.TCPDialer{Timeout: time.Second},
		Backoff: fastBackoff(50),
		Logger:  quiet(),
	}
	sess, err := m.Establish(context.Background())
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	sess.Close()
}

func TestClientMode_SingleAttemptByDefault(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	dialer := &countingDialer{Dialer: &transport.TCPDialer{Timeout: time.Second}}
	m := &ClientMode{
		Name: "bob", Peer: "127.0.0.1", Port: port,
		Dialer: dialer, Backoff: fastBackoff(1), Logger: quiet(),
	}

	_, err = m.Establish(context.Background())
	var ne *ncerr.NetworkError
	if !errors.As(err, &ne) || ne.Op != "dial" {
		t.Fatalf("Establish() = %v, want a dial error", err)
	}
	if dialer.dials != 1 || dialer.closes != 1 {
		t.Errorf("dials=%d closes=%d, want 1 and 1", dialer.dials, dialer.closes)
	}
}

func TestClientMode_PermanentErrorStopsRetry(t *testing.T) {
	dialer := &countingDialer{err: errors.New("permission denied (publickey)")}
	m := &ClientMode{
		Name: "bob", Peer: "127.0.0.1", Port: 1,
		Dialer: dialer, Backoff: fastBackoff(10), Logger: quiet(),
	}
	if _, err := m.Establish(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if dialer.dials != 1 {
		t.Errorf("dials = %d, want 1", dialer.dials)
	}
}

func TestClientMode_SessionClosesDialer(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	fakeHost(t, port, 0)
	time.Sleep(20 * time.Millisecond)

	dialer := &countingDialer{Dialer: &transport.TCPDialer{Timeout: time.Second}}
	m := &ClientMode{
		Name: "bob", Peer: "127.0.0.1", Port: port,
		Dialer: dialer, Backoff: fastBackoff(5), Logger: quiet(),
	}
	sess, err := m.Establish(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	sess.Close()
	sess.Close()
	if dialer.closes != 1 {
		t.Errorf("dialer closed %d times, want 1", dialer.closes)
	}
}

type countingDialer struct {
	transport.Dialer
	err    error
	dials  int
	closes int
}

func (d *countingDialer) Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.Dialer.Dial(ctx, network, addr)
}

func (d *countingDialer) Close() error {
	d.closes++
	return nil
}
