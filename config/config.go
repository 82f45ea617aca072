// Package config defines the runtime configuration for ltmsg and the
// parsers for the values that need more than a flag type.
package config

import (
	"fmt"
	"os/user"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	ncerr "ltmsg/internal/errors"
	"ltmsg/internal/handshake"
	"ltmsg/tunnel"
)

// Mode is the positional argument: which side of the chat to run.
type Mode string

const (
	ModeHost   Mode = "host"
	ModeClient Mode = "client"
)

// NAT selects how a host behind a router becomes reachable.
type NAT string

const (
	NATNone NAT = "none"
	NATUPnP NAT = "upnp"
	NATSSH  NAT = "ssh"
)

// Config holds every tuneable for one chat.
type Config struct {
	// ── Session ──────────────────────────────────────────────────────
	Mode        Mode
	Name        string
	Port        int
	Peer        string // host address, client mode only
	HistorySize int

	// ── Reachability ─────────────────────────────────────────────────
	NAT         NAT
	Gateway     string // [user@]host[:port] for --nat ssh
	RemotePort  int    // port opened on the gateway, 0 = same as Port
	BindAddress string // address bound on the gateway
	Via         string // [user@]host[:port] jump host, client mode only
	KeepAlive   time.Duration
	Retries     int
	DialTimeout time.Duration

	// ── SSH ──────────────────────────────────────────────────────────
	SSHKeyPath     string
	SSHPassword    bool // prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	LogFile    string
	Verbose    int
	ConfigFile string
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		HistorySize: DefaultHistorySize,
		NAT:         NATNone,
		KeepAlive:   DefaultKeepAlive,
		Retries:     DefaultRetries,
		DialTimeout: DefaultDialTimeout,
	}
}

// ForwardPort is the port peers connect to on the SSH gateway.
func (c *Config) ForwardPort() int {
	if c.RemotePort != 0 {
		return c.RemotePort
	}
	return c.Port
}

// GatewaySSH returns the SSH settings for spec, a [user@]host[:port]
// string.  A missing user falls back to the local login name.
func (c *Config) GatewaySSH(spec string) (*tunnel.SSHConfig, error) {
	u, host, port, err := ParseGatewaySpec(spec)
	if err != nil {
		return nil, err
	}
	if u == "" {
		u = currentUser()
	}
	return &tunnel.SSHConfig{
		User:          u,
		Host:          host,
		Port:          port,
		KeyPath:       c.SSHKeyPath,
		PromptPass:    c.SSHPassword,
		UseAgent:      c.UseSSHAgent,
		StrictHostKey: c.StrictHostKey,
		KnownHosts:    c.KnownHostsPath,
		ConnTimeout:   c.DialTimeout,
	}, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "root"
}

// ── Gateway-spec parser ──────────────────────────────────────────────

var gatewayRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:@]+)(?::(\d+))?$`)

// ParseGatewaySpec splits "admin@bastion.example.com:2222" into user,
// host and port.  The port defaults to 22 and the user may be empty.
func ParseGatewaySpec(spec string) (user, host string, port int, err error) {
	m := gatewayRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid gateway %q, expected [user@]host[:port]", spec)
	}
	user, host, port = m[1], m[2], DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid gateway port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is complete and consistent.
// Prompts for missing values must have run before.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeHost, ModeClient:
	default:
		return &ncerr.ConfigError{Field: "mode", Value: string(c.Mode),
			Message: "must be host or client"}
	}

	if c.Name == "" {
		return &ncerr.ConfigError{Field: "name", Message: "username is required",
			Hint: "pass --name or set LTMSG_NAME"}
	}
	if len(c.Name) >= handshake.NameSize || !utf8.ValidString(c.Name) {
		return &ncerr.ConfigError{Field: "name", Value: c.Name,
			Message: fmt.Sprintf("must be valid UTF-8 of at most %d bytes", handshake.NameSize-1)}
	}
	if err := checkPort("port", c.Port, false); err != nil {
		return err
	}
	if c.Mode == ModeClient && c.Peer == "" {
		return &ncerr.ConfigError{Field: "peer", Message: "host address is required in client mode",
			Hint: "pass --peer <ip> or set LTMSG_PEER"}
	}

	switch c.NAT {
	case NATNone, NATUPnP:
	case NATSSH:
		if c.Gateway == "" {
			return &ncerr.ConfigError{Field: "gateway", Message: "required with --nat ssh",
				Hint: "e.g. --gateway user@bastion.example.com"}
		}
		if _, _, _, err := ParseGatewaySpec(c.Gateway); err != nil {
			return &ncerr.ConfigError{Field: "gateway", Value: c.Gateway, Message: err.Error()}
		}
	default:
		return &ncerr.ConfigError{Field: "nat", Value: string(c.NAT),
			Message: "must be none, upnp or ssh"}
	}
	if c.NAT != NATNone && c.Mode != ModeHost {
		return &ncerr.ConfigError{Field: "nat", Value: string(c.NAT),
			Message: "only the host opens a port", Hint: "use --via to reach a host through SSH"}
	}
	if err := checkPort("remote-port", c.RemotePort, true); err != nil {
		return err
	}

	if c.Via != "" {
		if c.Mode != ModeClient {
			return &ncerr.ConfigError{Field: "via", Value: c.Via, Message: "only valid in client mode"}
		}
		if _, _, _, err := ParseGatewaySpec(c.Via); err != nil {
			return &ncerr.ConfigError{Field: "via", Value: c.Via, Message: err.Error()}
		}
	}

	if c.HistorySize < 1 || c.HistorySize > MaxHistorySize {
		return &ncerr.ConfigError{Field: "history", Value: c.HistorySize,
			Message: fmt.Sprintf("must be between 1 and %d", MaxHistorySize)}
	}
	if c.Retries < 1 {
		return &ncerr.ConfigError{Field: "retries", Value: c.Retries,
			Message: "must be at least 1", Hint: "1 means a single attempt"}
	}
	if c.DialTimeout < 0 || c.KeepAlive < 0 {
		return &ncerr.ConfigError{Field: "timeout", Message: "durations cannot be negative"}
	}
	return nil
}

func checkPort(field string, port int, zeroOK bool) error {
	if port == 0 && zeroOK {
		return nil
	}
	if port < 1 || port > 65535 {
		ce := &ncerr.ConfigError{Field: field, Value: port, Message: "must be between 1 and 65535"}
		if port == 0 {
			ce.Value = nil
			ce.Message = "port is required"
			ce.Hint = "pass --port or set LTMSG_PORT"
		}
		return ce
	}
	return nil
}
