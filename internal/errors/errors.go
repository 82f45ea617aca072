// Package errors provides the error vocabulary shared by the chat
// engine and its connection-setup collaborators.
//
// Transport failures end the session, configuration problems end the
// process before the session starts, and malformed commands are not
// errors at all (the dispatcher posts a notice).  The types below carry
// enough context for cmd to print a useful one-line diagnostic.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrConnectionLost means a read from the peer failed or returned
	// no data.  The session ends without retry.
	ErrConnectionLost = errors.New("connection lost")
	// ErrInterrupted means the local user pressed Ctrl-C or the process
	// received a termination signal.
	ErrInterrupted = errors.New("session interrupted")
	// ErrHandshake means the peer hung up or sent garbage while the
	// usernames and addresses were being exchanged.
	ErrHandshake = errors.New("handshake failed")
	// ErrNoGateway means UPnP discovery found no usable IGD.
	ErrNoGateway = errors.New("no UPnP internet gateway found")
	// ErrUsage marks an invalid command line; usage has been printed.
	ErrUsage = errors.New("invalid usage")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // "dial", "listen", "accept", "read", "write", "map"
	Addr      string // network address involved
	Err       error
	Retryable bool
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents a failure talking to an SSH gateway.
type SSHError struct {
	Op   string // "auth", "hostkey", "handshake", "forward"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // flag name without dashes
	Value   interface{} // offending value, nil when missing
	Message string
	Hint    string // optional suggestion
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError and classifies its retryability.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// Lost wraps a failed peer read so that errors.Is(err,
// ErrConnectionLost) holds while the cause stays visible.
func Lost(addr string, cause error) error {
	if cause == nil {
		return &NetworkError{Op: "read", Addr: addr, Err: ErrConnectionLost}
	}
	return &NetworkError{Op: "read", Addr: addr, Err: fmt.Errorf("%w: %w", ErrConnectionLost, cause)}
}

// ── Classification ───────────────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.  Only connection
// establishment is ever retried; session traffic never is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// A refused dial usually means the host is not listening yet.
		if opErr.Op == "dial" {
			return true
		}
		return opErr.Timeout()
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	return false
}

// ── Re-exports ───────────────────────────────────────────────────────

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
