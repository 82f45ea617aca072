package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Interactive reports whether f is a terminal a prompt can be shown on.
func Interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Prompt asks on w for every required value cfg is still missing and
// reads the answers from r, one line each.
func Prompt(cfg *Config, r io.Reader, w io.Writer) error {
	in := bufio.NewReader(r)
	ask := func(question string) (string, error) {
		fmt.Fprint(w, question)
		line, err := in.ReadString('\n')
		line = strings.TrimSpace(line)
		if err != nil && (err != io.EOF || line == "") {
			return "", fmt.Errorf("reading answer: %w", err)
		}
		return line, nil
	}

	if cfg.Name == "" {
		v, err := ask("Enter your username: ")
		if err != nil {
			return err
		}
		cfg.Name = v
	}
	if cfg.Port == 0 {
		v, err := ask("Enter the connection port: ")
		if err != nil {
			return err
		}
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("port %q is not a number", v)
		}
		cfg.Port = port
	}
	if cfg.Mode == ModeClient && cfg.Peer == "" {
		v, err := ask("Enter the host IP: ")
		if err != nil {
			return err
		}
		cfg.Peer = v
	}
	return nil
}
