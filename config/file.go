package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout.  Pointers tell "absent" from "zero".
type fileConfig struct {
	Name        *string        `yaml:"name"`
	Port        *int           `yaml:"port"`
	Peer        *string        `yaml:"peer"`
	History     *int           `yaml:"history"`
	NAT         *string        `yaml:"nat"`
	Gateway     *string        `yaml:"gateway"`
	RemotePort  *int           `yaml:"remote_port"`
	BindAddress *string        `yaml:"bind_address"`
	Via         *string        `yaml:"via"`
	KeepAlive   *time.Duration `yaml:"keepalive"`
	Retries     *int           `yaml:"retries"`
	Timeout     *time.Duration `yaml:"timeout"`
	LogFile     *string        `yaml:"log_file"`
	Verbose     *int           `yaml:"verbose"`

	SSH struct {
		Key           *string `yaml:"key"`
		Password      *bool   `yaml:"password"`
		Agent         *bool   `yaml:"agent"`
		StrictHostKey *bool   `yaml:"strict_hostkey"`
		KnownHosts    *string `yaml:"known_hosts"`
	} `yaml:"ssh"`
}

// DefaultFilePath is $XDG_CONFIG_HOME/ltmsg/config.yaml, or the
// platform equivalent.  It returns "" when no config directory exists.
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ltmsg", "config.yaml")
}

// LoadFile overlays the YAML file at path onto cfg.  A missing file is
// an error only when required is set.  Unknown keys are rejected.
func LoadFile(cfg *Config, path string, required bool) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	fc.apply(cfg)
	cfg.ConfigFile = path
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	set(&cfg.Name, fc.Name)
	set(&cfg.Port, fc.Port)
	set(&cfg.Peer, fc.Peer)
	set(&cfg.HistorySize, fc.History)
	if fc.NAT != nil {
		cfg.NAT = NAT(*fc.NAT)
	}
	set(&cfg.Gateway, fc.Gateway)
	set(&cfg.RemotePort, fc.RemotePort)
	set(&cfg.BindAddress, fc.BindAddress)
	set(&cfg.Via, fc.Via)
	set(&cfg.KeepAlive, fc.KeepAlive)
	set(&cfg.Retries, fc.Retries)
	set(&cfg.DialTimeout, fc.Timeout)
	set(&cfg.LogFile, fc.LogFile)
	set(&cfg.Verbose, fc.Verbose)

	set(&cfg.SSHKeyPath, fc.SSH.Key)
	set(&cfg.SSHPassword, fc.SSH.Password)
	set(&cfg.UseSSHAgent, fc.SSH.Agent)
	set(&cfg.StrictHostKey, fc.SSH.StrictHostKey)
	set(&cfg.KnownHostsPath, fc.SSH.KnownHosts)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
