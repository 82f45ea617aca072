package config

// Precedence, highest first:
//   1. CLI flags    (cmd/root.go)
//   2. Environment  (this file)
//   3. Config file  (file.go)
//   4. Defaults     (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv overlays LTMSG_* variables onto cfg.  Unset or
// unparseable variables leave the field alone.  Booleans accept "1",
// "true" and "yes" in any case.
func LoadFromEnv(cfg *Config) {
	if v := env("NAME"); v != "" {
		cfg.Name = v
	}
	if v := envInt("PORT"); v > 0 {
		cfg.Port = v
	}
	if v := env("PEER"); v != "" {
		cfg.Peer = v
	}
	if v := envInt("HISTORY"); v > 0 {
		cfg.HistorySize = v
	}

	// Reachability
	if v := env("NAT"); v != "" {
		cfg.NAT = NAT(strings.ToLower(v))
	}
	if v := env("GATEWAY"); v != "" {
		cfg.Gateway = v
	}
	if v := envInt("REMOTE_PORT"); v > 0 {
		cfg.RemotePort = v
	}
	if v := env("BIND_ADDRESS"); v != "" {
		cfg.BindAddress = v
	}
	if v := env("VIA"); v != "" {
		cfg.Via = v
	}
	if v := envInt("KEEPALIVE"); v > 0 {
		cfg.KeepAlive = seconds(v)
	}
	if v := envInt("RETRIES"); v > 0 {
		cfg.Retries = v
	}
	if v := envInt("TIMEOUT"); v > 0 {
		cfg.DialTimeout = seconds(v)
	}

	// SSH
	if v := env("SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := env("KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := env("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := envInt("VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func env(name string) string { return os.Getenv(EnvPrefix + name) }

func envInt(name string) int {
	n, err := strconv.Atoi(env(name))
	if err != nil {
		return 0
	}
	return n
}

func envBool(name string) bool {
	switch strings.ToLower(env(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
