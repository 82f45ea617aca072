// Package tunnel reaches a chat peer through an SSH gateway.  A host
// behind NAT asks the gateway to forward a public port back to it; a
// client that cannot route to the host dials through a jump host.
//
// SSH only carries the connection.  The chat bytes inside it are the
// same plaintext lines a direct TCP connection would carry.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "ltmsg/internal/errors"
	"ltmsg/util"
)

// Tunnel opens connections through an SSH gateway.
type Tunnel interface {
	// Connect establishes the SSH session with the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address from the gateway's side.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the SSH session.
	Close() error
}

// SSHConfig says how to reach and authenticate with a gateway.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
}

func (c *SSHConfig) addr() string { return util.FormatAddr(c.Host, c.Port) }

func (c *SSHConfig) withDefaults() *SSHConfig {
	out := *c
	if out.Port == 0 {
		out.Port = 22
	}
	if out.ConnTimeout == 0 {
		out.ConnTimeout = 30 * time.Second
	}
	return &out
}

// dial opens an authenticated SSH client connection to the gateway.
// The TCP dial honours ctx.  Banners are logged since public gateways
// print the forwarded address there.
func dial(ctx context.Context, cfg *SSHConfig, logger *util.Logger) (*ssh.Client, error) {
	auth, err := AuthMethods(cfg)
	if err != nil {
		return nil, ncerr.WrapSSH("auth", cfg.Host, cfg.Port, err)
	}
	hk, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, ncerr.WrapSSH("hostkey", cfg.Host, cfg.Port, err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hk,
		Timeout:         cfg.ConnTimeout,
		BannerCallback: func(message string) error {
			logger.Info("gateway: %s", message)
			return nil
		},
	}

	addr := cfg.addr()
	logger.Debug("ssh: dialing %s as %q", addr, cfg.User)

	var d net.Dialer
	d.Timeout = cfg.ConnTimeout
	tcp, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ncerr.Wrap("dial", addr, err)
	}
	conn, chans, reqs, err := ssh.NewClientConn(tcp, addr, clientCfg)
	if err != nil {
		tcp.Close()
		return nil, ncerr.WrapSSH("handshake", cfg.Host, cfg.Port, err)
	}
	return ssh.NewClient(conn, chans, reqs), nil
}

// keepalive pings the gateway every interval until stop is closed.
// A failed ping closes the client, which fails any chat I/O on it.
func keepalive(client *ssh.Client, interval time.Duration, stop <-chan struct{}, logger *util.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				logger.Warn("ssh keepalive failed: %v", err)
				client.Close()
				return
			}
			logger.Debug("ssh keepalive ok")
		}
	}
}

func errClosed(op string) error { return fmt.Errorf("tunnel %s: %w", op, net.ErrClosed) }
