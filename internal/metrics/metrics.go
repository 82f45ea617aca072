// Package metrics counts what happened during one chat session.
//
// The session loop records everything, but all methods are safe for
// concurrent use.  A nil *Collector is a valid no-op receiver, so callers never
// need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime statistics for a chat session.
type Collector struct {
	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
	bytesIn          atomic.Int64
	bytesOut         atomic.Int64
	commands         atomic.Int64
	notices          atomic.Int64
	redraws          atomic.Int64
	errorsTotal      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Traffic ──────────────────────────────────────────────────────────

// MessageSent records a line of n bytes written to the peer.
func (c *Collector) MessageSent(n int) {
	if c == nil {
		return
	}
	c.messagesSent.Add(1)
	c.bytesOut.Add(int64(n))
}

// MessageReceived records a line of n bytes read from the peer.
func (c *Collector) MessageReceived(n int) {
	if c == nil {
		return
	}
	c.messagesReceived.Add(1)
	c.bytesIn.Add(int64(n))
}

// MessagesSent returns the number of lines written.
func (c *Collector) MessagesSent() int64 {
	if c == nil {
		return 0
	}
	return c.messagesSent.Load()
}

// MessagesReceived returns the number of lines read.
func (c *Collector) MessagesReceived() int64 {
	if c == nil {
		return 0
	}
	return c.messagesReceived.Load()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Engine ───────────────────────────────────────────────────────────

// CommandExecuted records a recognised slash-command.
func (c *Collector) CommandExecuted() {
	if c == nil {
		return
	}
	c.commands.Add(1)
}

// NoticePosted records a system line pushed to the history.
func (c *Collector) NoticePosted() {
	if c == nil {
		return
	}
	c.notices.Add(1)
}

// Redrawn records a full screen redraw.
func (c *Collector) Redrawn() {
	if c == nil {
		return
	}
	c.redraws.Add(1)
}

// Commands returns the number of commands executed.
func (c *Collector) Commands() int64 {
	if c == nil {
		return 0
	}
	return c.commands.Load()
}

// Redraws returns the number of redraws.
func (c *Collector) Redraws() int64 {
	if c == nil {
		return 0
	}
	return c.redraws.Load()
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Duration         string `json:"duration"`
	MessagesSent     int64  `json:"messages_sent"`
	MessagesReceived int64  `json:"messages_received"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	Commands         int64  `json:"commands"`
	Notices          int64  `json:"notices"`
	Redraws          int64  `json:"redraws"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Duration:         time.Since(c.startTime).Truncate(time.Second).String(),
		MessagesSent:     c.messagesSent.Load(),
		MessagesReceived: c.messagesReceived.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		Commands:         c.commands.Load(),
		Notices:          c.notices.Load(),
		Redraws:          c.redraws.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as a compact JSON string.
func (c *Collector) JSON() string {
	data, _ := json.Marshal(c.Snapshot())
	return string(data)
}
