// Package transport opens the single TCP connection a chat runs over,
// either directly or through an SSH jump host.  What travels over the
// connection is the chat package's concern.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections to the chat host.
type Dialer interface {
	// Dial connects to address ("host:port").
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases long-lived resources such as an SSH session.
	// Connections already returned by Dial go down with it.
	Close() error
}
