package config

import (
	"errors"
	"strings"
	"testing"

	ncerr "ltmsg/internal/errors"
)

func validHost() *Config {
	c := New()
	c.Mode = ModeHost
	c.Name = "alice"
	c.Port = 4000
	return c
}

func TestValidate_OK(t *testing.T) {
	if err := validHost().Validate(); err != nil {
		t.Errorf("host: %v", err)
	}

	c := validHost()
	c.Mode = ModeClient
	c.Peer = "192.0.2.1"
	c.Via = "me@jump:2200"
	if err := c.Validate(); err != nil {
		t.Errorf("client: %v", err)
	}

	c = validHost()
	c.NAT = NATSSH
	c.Gateway = "gw.example.com"
	if err := c.Validate(); err != nil {
		t.Errorf("host via ssh: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
		hint   bool
	}{
		{"bad mode", func(c *Config) { c.Mode = "server" }, "mode", false},
		{"no name", func(c *Config) { c.Name = "" }, "name", true},
		{"long name", func(c *Config) { c.Name = strings.Repeat("n", 24) }, "name", false},
		{"no port", func(c *Config) { c.Port = 0 }, "port", true},
		{"port range", func(c *Config) { c.Port = 70000 }, "port", false},
		{"client without peer", func(c *Config) { c.Mode = ModeClient }, "peer", true},
		{"unknown nat", func(c *Config) { c.NAT = "stun" }, "nat", false},
		{"ssh without gateway", func(c *Config) { c.NAT = NATSSH }, "gateway", true},
		{"bad gateway", func(c *Config) { c.NAT = NATSSH; c.Gateway = "a@b@c" }, "gateway", false},
		{"nat on client", func(c *Config) { c.Mode = ModeClient; c.Peer = "x"; c.NAT = NATUPnP }, "nat", true},
		{"via on host", func(c *Config) { c.Via = "jump" }, "via", false},
		{"remote port range", func(c *Config) { c.RemotePort = -1 }, "remote-port", false},
		{"history", func(c *Config) { c.HistorySize = 0 }, "history", false},
		{"retries", func(c *Config) { c.Retries = 0 }, "retries", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validHost()
			tt.mutate(c)
			err := c.Validate()
			var ce *ncerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want a ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
			if got := strings.Contains(err.Error(), "hint:"); got != tt.hint {
				t.Errorf("hint present = %v, want %v (%s)", got, tt.hint, err)
			}
		})
	}
}

func TestParseGatewaySpec(t *testing.T) {
	tests := []struct {
		spec     string
		user     string
		host     string
		port     int
		wantFail bool
	}{
		{spec: "bastion", host: "bastion", port: 22},
		{spec: "admin@bastion", user: "admin", host: "bastion", port: 22},
		{spec: "admin@bastion:2222", user: "admin", host: "bastion", port: 2222},
		{spec: "bastion:0", wantFail: true},
		{spec: "bastion:99999", wantFail: true},
		{spec: "", wantFail: true},
		{spec: "a@b@c", wantFail: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			u, h, p, err := ParseGatewaySpec(tt.spec)
			if tt.wantFail {
				if err == nil {
					t.Fatalf("expected error, got %q %q %d", u, h, p)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if u != tt.user || h != tt.host || p != tt.port {
				t.Errorf("got %q %q %d", u, h, p)
			}
		})
	}
}

func TestGatewaySSH(t *testing.T) {
	c := validHost()
	c.SSHKeyPath = "/k"
	c.StrictHostKey = true

	sc, err := c.GatewaySSH("ops@gw:2022")
	if err != nil {
		t.Fatal(err)
	}
	if sc.User != "ops" || sc.Host != "gw" || sc.Port != 2022 || sc.KeyPath != "/k" || !sc.StrictHostKey {
		t.Errorf("ssh config = %+v", sc)
	}
	if sc.ConnTimeout != DefaultDialTimeout {
		t.Errorf("timeout = %v", sc.ConnTimeout)
	}

	sc, err = c.GatewaySSH("gw")
	if err != nil || sc.User == "" {
		t.Errorf("missing user not defaulted: %+v, %v", sc, err)
	}
}

func TestForwardPort(t *testing.T) {
	c := validHost()
	if c.ForwardPort() != 4000 {
		t.Errorf("ForwardPort() = %d, want the local port", c.ForwardPort())
	}
	c.RemotePort = 8022
	if c.ForwardPort() != 8022 {
		t.Errorf("ForwardPort() = %d, want 8022", c.ForwardPort())
	}
}
