package core

import (
	"context"
	"io"
	"net"

	"ltmsg/config"
	"ltmsg/internal/portmap"
	"ltmsg/internal/retry"
	"ltmsg/internal/transport"
	"ltmsg/tunnel"
	"ltmsg/util"
)

// Build constructs the Mode for cfg.  cfg must have been validated.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Mode == config.ModeClient {
		return buildClient(cfg, logger)
	}
	return buildHost(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildHost(cfg *config.Config, logger *util.Logger) (Mode, error) {
	m := &HostMode{
		Name:   cfg.Name,
		Port:   cfg.Port,
		Listen: listenTCP(cfg.Port),
		Logger: logger,
	}

	switch cfg.NAT {
	case config.NATUPnP:
		m.MapPort = func(ctx context.Context, port int) (io.Closer, error) {
			mapping, err := portmap.Map(ctx, port, logger)
			if err != nil {
				return nil, err
			}
			return mapping, nil
		}
	case config.NATSSH:
		sshCfg, err := cfg.GatewaySSH(cfg.Gateway)
		if err != nil {
			return nil, err
		}
		fwd := &tunnel.ForwardConfig{
			SSH:        sshCfg,
			BindAddr:   cfg.BindAddress,
			RemotePort: cfg.ForwardPort(),
			KeepAlive:  cfg.KeepAlive,
		}
		m.Listen = func(ctx context.Context) (net.Listener, error) {
			ln, err := tunnel.ListenRemote(ctx, fwd, logger)
			if err != nil {
				return nil, err
			}
			return ln, nil
		}
	}
	return m, nil
}

func buildClient(cfg *config.Config, logger *util.Logger) (Mode, error) {
	dialer, err := buildDialer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &ClientMode{
		Name:    cfg.Name,
		Peer:    cfg.Peer,
		Port:    cfg.Port,
		Dialer:  dialer,
		Backoff: retry.DefaultBackoff(cfg.Retries),
		Logger:  logger,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer picks a direct dialer or one through the --via jump host.
func buildDialer(cfg *config.Config, logger *util.Logger) (transport.Dialer, error) {
	if cfg.Via == "" {
		return &transport.TCPDialer{Timeout: cfg.DialTimeout}, nil
	}
	sshCfg, err := cfg.GatewaySSH(cfg.Via)
	if err != nil {
		return nil, err
	}
	return transport.NewSSHDialer(sshCfg, logger), nil
}
