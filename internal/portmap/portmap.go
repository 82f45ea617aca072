// Package portmap forwards the host's chat port through the LAN's
// internet gateway device with UPnP, so a peer outside the NAT can
// reach it.
package portmap

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/huin/goupnp/dcps/internetgateway2"

	ncerr "ltmsg/internal/errors"
	"ltmsg/util"
)

const (
	protocol    = "TCP"
	description = "Chat"
)

// Gateway is the subset of a WAN connection service used here.  Both
// goupnp's WANIPConnection1 and WANPPPConnection1 clients satisfy it.
type Gateway interface {
	AddPortMapping(remoteHost string, externalPort uint16, protocol string,
		internalPort uint16, internalClient string, enabled bool,
		description string, leaseDuration uint32) error
	DeletePortMapping(remoteHost string, externalPort uint16, protocol string) error
	GetExternalIPAddress() (string, error)
}

// Device is a discovered gateway and the host:port it answered from.
type Device struct {
	Gateway  Gateway
	Location string
}

// Discover finds the gateways on the local network.  Tests replace it.
var Discover = discoverIGD //nolint:gochecknoglobals

func discoverIGD(ctx context.Context) ([]Device, error) {
	var devices []Device

	ipClients, _, err := internetgateway2.NewWANIPConnection1ClientsCtx(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range ipClients {
		devices = append(devices, Device{Gateway: c, Location: c.Location.Host})
	}

	pppClients, _, err := internetgateway2.NewWANPPPConnection1ClientsCtx(ctx)
	if err != nil && len(devices) == 0 {
		return nil, err
	}
	for _, c := range pppClients {
		devices = append(devices, Device{Gateway: c, Location: c.Location.Host})
	}
	return devices, nil
}

// Mapping is an installed port forward.  Close removes it.
type Mapping struct {
	Port       uint16
	InternalIP string
	ExternalIP string

	gw     Gateway
	logger *util.Logger
	once   sync.Once
	err    error
}

// Map asks the first gateway that accepts it to forward TCP port on
// its WAN side to the same port on this machine.
func Map(ctx context.Context, port int, logger *util.Logger) (*Mapping, error) {
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("port %d out of range", port)
	}
	devices, err := Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ncerr.ErrNoGateway, err)
	}
	if len(devices) == 0 {
		return nil, ncerr.ErrNoGateway
	}

	var errs []error
	for _, d := range devices {
		m, err := install(d, uint16(port), logger)
		if err != nil {
			logger.Verbose("upnp: %s refused mapping: %v", d.Location, err)
			errs = append(errs, err)
			continue
		}
		return m, nil
	}
	return nil, ncerr.Wrap("map", util.FormatAddr("", port), ncerr.Join(errs...))
}

func install(d Device, port uint16, logger *util.Logger) (*Mapping, error) {
	lan, err := lanIP(d.Location)
	if err != nil {
		return nil, err
	}
	if err := d.Gateway.AddPortMapping("", port, protocol, port, lan, true, description, 0); err != nil {
		return nil, err
	}

	m := &Mapping{Port: port, InternalIP: lan, gw: d.Gateway, logger: logger}
	if ext, err := d.Gateway.GetExternalIPAddress(); err != nil {
		logger.Warn("upnp: external address unknown: %v", err)
	} else {
		m.ExternalIP = ext
	}
	logger.Info("upnp: forwarding %s:%d -> %s:%d", m.ExternalIP, port, lan, port)
	return m, nil
}

// lanIP is the address this machine uses to talk to the gateway.
func lanIP(location string) (string, error) {
	if _, _, err := net.SplitHostPort(location); err != nil {
		location = net.JoinHostPort(location, "1900")
	}
	ip, err := util.OutboundIP(location)
	if err != nil {
		return "", err
	}
	return ip.String(), nil
}

// Close deletes the mapping.  Only the first call talks to the gateway.
func (m *Mapping) Close() error {
	m.once.Do(func() {
		m.err = m.gw.DeletePortMapping("", m.Port, protocol)
		if m.err == nil {
			m.logger.Verbose("upnp: removed mapping for port %d", m.Port)
		}
	})
	return m.err
}
