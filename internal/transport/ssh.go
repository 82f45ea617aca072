package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"ltmsg/tunnel"
	"ltmsg/util"
)

// SSHDialer reaches the host from an SSH gateway's side.  The SSH
// session is opened on the first Dial, so retried dials reuse it.
type SSHDialer struct {
	tunnel    tunnel.Tunnel
	gateway   string
	logger    *util.Logger
	mu        sync.Mutex
	connected bool
}

// NewSSHDialer returns a dialer that goes through the gateway in cfg.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	return newSSHDialer(tunnel.NewSSHTunnel(cfg, logger), util.FormatAddr(cfg.Host, cfg.Port), logger)
}

func newSSHDialer(t tunnel.Tunnel, gateway string, logger *util.Logger) *SSHDialer {
	return &SSHDialer{tunnel: t, gateway: gateway, logger: logger}
}

func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		return nil
	}
	d.logger.Verbose("connecting to jump host %s", d.gateway)
	if err := d.tunnel.Connect(ctx); err != nil {
		return fmt.Errorf("jump host: %w", err)
	}
	d.connected = true
	return nil
}

// Dial opens a connection to address through the gateway.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	return d.tunnel.Dial(ctx, network, address)
}

// Close hangs up on the gateway.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil
	}
	d.connected = false
	return d.tunnel.Close()
}
