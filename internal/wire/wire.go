// Package wire moves chat lines over the peer connection.  There is no
// framing: one Read is one message, one Write sends one message.
package wire

import (
	"fmt"
	"io"
)

// MaxMessageSize bounds a single read.  A full composition buffer of
// four-byte runes fits.
const MaxMessageSize = 1024

// ReadMessage performs exactly one Read of at most max-1 bytes and
// returns the text with a single trailing newline removed.  A read that
// returns no bytes is a failure even without an error: the peer is gone.
func ReadMessage(r io.Reader, max int) (string, error) {
	if max < 2 {
		max = 2
	}
	buf := make([]byte, max-1)
	n, err := r.Read(buf)
	if n <= 0 {
		if err == nil {
			err = io.ErrNoProgress
		}
		return "", err
	}
	if buf[n-1] == '\n' {
		n--
	}
	return string(buf[:n]), nil
}

// WriteMessage sends text as-is.
func WriteMessage(w io.Writer, text string) error {
	n, err := io.WriteString(w, text)
	if err != nil {
		return err
	}
	if n < len(text) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(text))
	}
	return nil
}
