package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// Every default lives here so flags, the config file and the
// environment agree.

const (
	// DefaultHistorySize is the number of scroll-back lines kept.
	DefaultHistorySize = 24

	// MaxHistorySize bounds --history.
	MaxHistorySize = 500

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultKeepAlive is the SSH keepalive interval on a gateway.
	DefaultKeepAlive = 30 * time.Second

	// DefaultDialTimeout bounds each TCP or SSH connection attempt.
	DefaultDialTimeout = 10 * time.Second

	// DefaultRetries is the number of dial attempts in client mode.
	DefaultRetries = 1

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "LTMSG_"
)
