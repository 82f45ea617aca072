package transport

import (
	"context"
	"net"
	"time"

	ncerr "ltmsg/internal/errors"
)

// TCPDialer makes direct TCP connections.
type TCPDialer struct {
	Timeout time.Duration
}

// Dial connects to address.  Failures come back as a NetworkError
// classified for retry.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op.
func (d *TCPDialer) Close() error { return nil }
