package tunnel

// A remote forward is requested by hand instead of ssh.Client.Listen:
// the library matches forwarded-tcpip channels against the exact bind
// address it sent, and public gateways often echo back a different one
// ("0.0.0.0" for ""), which makes every channel get rejected.

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "ltmsg/internal/errors"
	"ltmsg/util"
)

// RFC 4254 §7.1: tcpip-forward and cancel-tcpip-forward.
type channelForwardMsg struct {
	Addr string
	Port uint32
}

// RFC 4254 §7.1: reply to tcpip-forward for port 0.
type channelForwardReply struct {
	Port uint32
}

// RFC 4254 §7.2: forwarded-tcpip channel open.
type forwardedTCPPayload struct {
	Addr       string
	Port       uint32
	OriginAddr string
	OriginPort uint32
}

// ForwardConfig describes a port opened on the gateway.
type ForwardConfig struct {
	SSH        *SSHConfig
	BindAddr   string        // "" lets the gateway decide
	RemotePort int           // 0 lets the gateway pick
	KeepAlive  time.Duration // 0 disables keepalive
}

// RemoteListener accepts peers that connect to a port on the gateway.
// It owns the SSH client: closing the listener cancels the forward and
// hangs up on the gateway.
type RemoteListener struct {
	client   *ssh.Client
	bindAddr string
	port     uint32
	incoming <-chan ssh.NewChannel
	logger   *util.Logger
	done     chan struct{}
	once     sync.Once
}

// ListenRemote connects to the gateway and asks it to forward
// cfg.RemotePort back to this process.
func ListenRemote(ctx context.Context, cfg *ForwardConfig, logger *util.Logger) (*RemoteListener, error) {
	sshCfg := cfg.SSH.withDefaults()
	client, err := dial(ctx, sshCfg, logger)
	if err != nil {
		return nil, err
	}

	l, err := requestForward(client, cfg.BindAddr, cfg.RemotePort, logger)
	if err != nil {
		client.Close()
		return nil, ncerr.WrapSSH("forward", sshCfg.Host, sshCfg.Port, err)
	}
	logger.Info("ssh: %s:%d on %s forwards to this host", cfg.BindAddr, l.port, sshCfg.Host)

	if cfg.KeepAlive > 0 {
		go keepalive(client, cfg.KeepAlive, l.done, logger)
	}
	return l, nil
}

func requestForward(client *ssh.Client, bindAddr string, port int, logger *util.Logger) (*RemoteListener, error) {
	// Must be registered before the request so no channel is missed.
	incoming := client.HandleChannelOpen("forwarded-tcpip")
	if incoming == nil {
		return nil, fmt.Errorf("forwarded-tcpip handler already registered")
	}

	msg := channelForwardMsg{Addr: bindAddr, Port: uint32(port)}
	ok, reply, err := client.SendRequest("tcpip-forward", true, ssh.Marshal(&msg))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tcpip-forward %s:%d denied by gateway", bindAddr, port)
	}
	if port == 0 {
		var r channelForwardReply
		if err := ssh.Unmarshal(reply, &r); err == nil {
			msg.Port = r.Port
		}
	}

	return &RemoteListener{
		client:   client,
		bindAddr: bindAddr,
		port:     msg.Port,
		incoming: incoming,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Accept waits for the next peer forwarded by the gateway.  Once the
// listener is closed it fails with net.ErrClosed, even if a forwarded
// channel was already queued.
func (l *RemoteListener) Accept() (net.Conn, error) {
	select {
	case <-l.done:
		return nil, errClosed("accept")
	default:
	}

	select {
	case <-l.done:
		return nil, errClosed("accept")
	case nc, ok := <-l.incoming:
		if !ok {
			select {
			case <-l.done:
				return nil, errClosed("accept")
			default:
				return nil, io.EOF
			}
		}
		select {
		case <-l.done:
			nc.Reject(ssh.Prohibited, "listener closed") //nolint:errcheck
			return nil, errClosed("accept")
		default:
		}
		ch, reqs, err := nc.Accept()
		if err != nil {
			return nil, fmt.Errorf("channel accept: %w", err)
		}
		go ssh.DiscardRequests(reqs)

		var raddr net.Addr = &net.TCPAddr{}
		var p forwardedTCPPayload
		if err := ssh.Unmarshal(nc.ExtraData(), &p); err == nil {
			raddr = &net.TCPAddr{IP: net.ParseIP(p.OriginAddr), Port: int(p.OriginPort)}
		}
		l.logger.Debug("ssh: forwarded connection from %s", raddr)
		return &chanConn{Channel: ch, laddr: l.Addr(), raddr: raddr}, nil
	}
}

// Close cancels the forward and closes the SSH connection.
func (l *RemoteListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		msg := channelForwardMsg{Addr: l.bindAddr, Port: l.port}
		l.client.SendRequest("cancel-tcpip-forward", false, ssh.Marshal(&msg)) //nolint:errcheck
		err = l.client.Close()
	})
	return err
}

// Addr is the bound port on the gateway.
func (l *RemoteListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(l.bindAddr), Port: int(l.port)}
}

// Port is the forwarded port, as assigned by the gateway when 0 was
// requested.
func (l *RemoteListener) Port() int { return int(l.port) }

// chanConn adapts an [ssh.Channel] to [net.Conn].  Deadlines are not
// supported by SSH channels and are ignored.
type chanConn struct {
	ssh.Channel
	laddr net.Addr
	raddr net.Addr
}

func (c *chanConn) LocalAddr() net.Addr              { return c.laddr }
func (c *chanConn) RemoteAddr() net.Addr             { return c.raddr }
func (c *chanConn) SetDeadline(time.Time) error      { return nil }
func (c *chanConn) SetReadDeadline(time.Time) error  { return nil }
func (c *chanConn) SetWriteDeadline(time.Time) error { return nil }
