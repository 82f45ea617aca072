// Package cmd wires up the CLI flags and runs one side of a chat.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"
	flag "github.com/spf13/pflag"

	"ltmsg/config"
	"ltmsg/internal/chat"
	"ltmsg/internal/core"
	ncerr "ltmsg/internal/errors"
	"ltmsg/internal/metrics"
	"ltmsg/internal/session"
	"ltmsg/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X ltmsg/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// newScreen opens the terminal.  Tests swap in a simulation screen.
var newScreen = tcell.NewScreen //nolint:gochecknoglobals

// Execute parses args and runs the chat until it ends.
func Execute(ctx context.Context, args []string) error {
	cfg := config.New()
	path, required := configPath(args)
	if err := config.LoadFile(cfg, path, required); err != nil {
		return err
	}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("ltmsg", flag.ContinueOnError)

	// ── session ──────────────────────────────────────────────────
	fs.StringVarP(&cfg.Name, "name", "n", cfg.Name, "Your username (prompted if missing)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Chat port (prompted if missing)")
	fs.StringVar(&cfg.Peer, "peer", cfg.Peer, "Host address to connect to (client)")
	fs.IntVar(&cfg.HistorySize, "history", cfg.HistorySize, "Lines of scroll-back")

	// ── reachability ─────────────────────────────────────────────
	nat := string(cfg.NAT)
	fs.StringVar(&nat, "nat", nat, "Open the host's port with none, upnp or ssh")
	fs.StringVarP(&cfg.Gateway, "gateway", "g", cfg.Gateway, "SSH gateway [user@]host[:port] for --nat ssh")
	fs.IntVar(&cfg.RemotePort, "remote-port", cfg.RemotePort, "Port opened on the gateway (default: --port)")
	fs.StringVar(&cfg.BindAddress, "bind-address", cfg.BindAddress, "Address bound on the gateway")
	fs.StringVar(&cfg.Via, "via", cfg.Via, "Reach the host through SSH jump host [user@]host[:port] (client)")
	fs.DurationVar(&cfg.KeepAlive, "keepalive", cfg.KeepAlive, "SSH keepalive interval (0 disables)")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Connection attempts (client)")
	fs.DurationVarP(&cfg.DialTimeout, "timeout", "w", cfg.DialTimeout, "Timeout per connection attempt")

	// ── SSH ──────────────────────────────────────────────────────
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs here while the chat is on screen")
	verbose := cfg.Verbose
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.String("config", path, "YAML config file")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ncerr.ErrUsage, err)
	}
	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("ltmsg %s\n", version)
		return nil
	}
	if !fs.Changed("verbose") {
		cfg.Verbose = verbose
	}
	cfg.NAT = config.NAT(nat)

	// ── positional argument ──────────────────────────────────────
	if fs.NArg() != 1 || (fs.Arg(0) != string(config.ModeHost) && fs.Arg(0) != string(config.ModeClient)) {
		printUsage(fs)
		return ncerr.ErrUsage
	}
	cfg.Mode = config.Mode(fs.Arg(0))

	// ── prompt and validate ──────────────────────────────────────
	if config.Interactive(os.Stdin) {
		if err := config.Prompt(cfg, os.Stdin, os.Stdout); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintf(os.Stderr, "configuration OK: %s %q on port %d (nat %s)\n",
			cfg.Mode, cfg.Name, cfg.Port, cfg.NAT)
		return nil
	}

	// ── connect ──────────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	if cfg.ConfigFile != "" {
		logger.Verbose("loaded %s", cfg.ConfigFile)
	}
	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	sess, err := mode.Establish(ctx)
	if err != nil {
		return err
	}

	// ── chat ─────────────────────────────────────────────────────
	return runChat(ctx, cfg, logger, sess)
}

func runChat(ctx context.Context, cfg *config.Config, logger *util.Logger, sess *session.Session) error {
	screen, err := newScreen()
	if err != nil {
		sess.Close()
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		sess.Close()
		return fmt.Errorf("terminal: %w", err)
	}

	restore, err := redirectLogs(logger, cfg.LogFile)
	if err != nil {
		screen.Fini()
		sess.Close()
		return err
	}
	defer restore()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)

	eng := chat.NewEngine(sess, screen, events, chat.Options{
		HistorySize: cfg.HistorySize,
		Metrics:     metrics.New(),
	})
	err = eng.Run(ctx)

	close(quit)
	screen.Fini()
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// configPath finds --config ahead of the real parse, since the file
// must be applied before flags override it.  An explicit path must
// exist; the default one is optional.
func configPath(args []string) (path string, required bool) {
	for i, a := range args {
		if a == "--" {
			break
		}
		switch {
		case a == "--config" && i+1 < len(args):
			return args[i+1], true
		case len(a) > len("--config=") && a[:len("--config=")] == "--config=":
			return a[len("--config="):], true
		}
	}
	if v := os.Getenv(config.EnvPrefix + "CONFIG"); v != "" {
		return v, true
	}
	return config.DefaultFilePath(), false
}

// redirectLogs keeps log lines off the chat screen: they go to file,
// or nowhere.  The returned func restores the previous destination.
func redirectLogs(logger *util.Logger, file string) (func(), error) {
	prev := logger.Output()
	if file == "" {
		logger.SetOutput(io.Discard)
		return func() { logger.SetOutput(prev) }, nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	logger.SetTimestamps(true)
	logger.SetOutput(f)
	return func() {
		logger.SetOutput(prev)
		f.Close()
	}, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ltmsg – two-party terminal chat v%s

Usage:
  ltmsg [options] host       Wait for a peer to connect
  ltmsg [options] client     Connect to a waiting host

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Commands inside the chat:
  /quit                      End the chat on both sides
  /clear                     Clear your scroll-back

Examples:
  ltmsg -n alice -p 4000 host
  ltmsg -n bob -p 4000 --peer 203.0.113.5 client
  ltmsg -n alice -p 4000 --nat upnp host
  ltmsg -n alice -p 4000 --nat ssh -g me@bastion.example.com host
`)
}
