package tunnel

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"ltmsg/util"
)

// SSHTunnel implements [Tunnel] with direct-tcpip channels, the
// equivalent of ssh -W.
type SSHTunnel struct {
	config *SSHConfig
	logger *util.Logger

	mu     sync.RWMutex
	client *ssh.Client
}

// NewSSHTunnel creates a tunnel that is ready to [SSHTunnel.Connect].
func NewSSHTunnel(cfg *SSHConfig, logger *util.Logger) *SSHTunnel {
	return &SSHTunnel{config: cfg.withDefaults(), logger: logger}
}

// Connect dials the gateway and completes the SSH handshake.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	client, err := dial(ctx, t.config, t.logger)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.client = client
	t.mu.Unlock()
	t.logger.Verbose("ssh: connected to %s", t.config.addr())
	return nil
}

// Dial asks the gateway to connect to address on our behalf.
func (t *SSHTunnel) Dial(_ context.Context, network, address string) (net.Conn, error) {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()
	if client == nil {
		return nil, errClosed("dial")
	}

	t.logger.Debug("ssh: opening %s %s via %s", network, address, t.config.addr())
	conn, err := client.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("via %s: %w", t.config.addr(), err)
	}
	return conn, nil
}

// Close shuts the SSH connection.  Connections opened through it fail.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
