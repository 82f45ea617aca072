// Package handshake exchanges usernames and addresses right after the
// connection is up, before the chat starts.
//
// Every field is a fixed 24-byte block padded with NUL bytes.  The host
// sends its name, receives the client's, tells the client which address
// it saw the client connect from, and learns which address the client
// dialled to reach it.
package handshake

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	ncerr "ltmsg/internal/errors"
)

const (
	// NameSize is the width of a username field, NUL terminator included.
	NameSize = 24
	// AddrSize is the width of an address field, NUL terminator included.
	AddrSize = 24
)

// Peer is what one side learns about the conversation.
type Peer struct {
	HostName   string
	ClientName string
	HostIP     string
	ClientIP   string
}

// Host runs the host half.  clientIP is the address the connection was
// accepted from.
func Host(rw io.ReadWriter, hostName, clientIP string) (Peer, error) {
	p := Peer{HostName: fit(hostName, NameSize), ClientIP: fit(clientIP, AddrSize)}
	var err error
	if err = writeField(rw, p.HostName, NameSize); err != nil {
		return p, wrap("send username", err)
	}
	if p.ClientName, err = readField(rw, NameSize); err != nil {
		return p, wrap("receive username", err)
	}
	if err = writeField(rw, p.ClientIP, AddrSize); err != nil {
		return p, wrap("send client address", err)
	}
	if p.HostIP, err = readField(rw, AddrSize); err != nil {
		return p, wrap("receive host address", err)
	}
	return p, nil
}

// Client runs the client half.  hostIP is the address that was dialled.
func Client(rw io.ReadWriter, clientName, hostIP string) (Peer, error) {
	p := Peer{ClientName: fit(clientName, NameSize), HostIP: fit(hostIP, AddrSize)}
	var err error
	if p.HostName, err = readField(rw, NameSize); err != nil {
		return p, wrap("receive username", err)
	}
	if err = writeField(rw, p.ClientName, NameSize); err != nil {
		return p, wrap("send username", err)
	}
	if p.ClientIP, err = readField(rw, AddrSize); err != nil {
		return p, wrap("receive client address", err)
	}
	if err = writeField(rw, p.HostIP, AddrSize); err != nil {
		return p, wrap("send host address", err)
	}
	return p, nil
}

func wrap(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ncerr.ErrHandshake, step, err)
}

// fit truncates s so that it fits size-1 bytes without splitting a rune.
func fit(s string, size int) string {
	if len(s) < size {
		return s
	}
	s = s[:size-1]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func writeField(w io.Writer, s string, size int) error {
	block := make([]byte, size)
	copy(block, s)
	_, err := w.Write(block)
	return err
}

func readField(r io.Reader, size int) (string, error) {
	block := make([]byte, size)
	if _, err := io.ReadFull(r, block); err != nil {
		return "", err
	}
	if i := bytes.IndexByte(block, 0); i >= 0 {
		block = block[:i]
	}
	return string(block), nil
}
