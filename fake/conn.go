// File: fake/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"

	"github.com/momentics/reactor-ws/api"
)

// Conn is a scripted api.Conn recording every outbound operation.
type Conn struct {
	id     int
	remote string

	mu          sync.Mutex
	texts       []string
	binaries    [][]byte
	closed      bool
	closeStatus int
	closeReason string
	sendErr     error
}

// NewConn returns a fake connection with the given handle and peer address.
func NewConn(id int, remote string) *Conn {
	return &Conn{id: id, remote: remote}
}

// SetSendError makes every subsequent send fail with err.
func (c *Conn) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// SentTexts returns every text payload sent so far.
func (c *Conn) SentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

// SentBinaries returns every binary payload sent so far.
func (c *Conn) SentBinaries() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.binaries))
	copy(out, c.binaries)
	return out
}

// CloseCall reports whether Close was invoked and with what arguments.
func (c *Conn) CloseCall() (called bool, status int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeStatus, c.closeReason
}

// ID implements api.Conn.
func (c *Conn) ID() int { return c.id }

// RemoteAddr implements api.Conn.
func (c *Conn) RemoteAddr() string { return c.remote }

// Secure implements api.Conn.
func (c *Conn) Secure() bool { return false }

// SendText implements api.Conn.
func (c *Conn) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.texts = append(c.texts, text)
	return nil
}

// SendBinary implements api.Conn.
func (c *Conn) SendBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.binaries = append(c.binaries, append([]byte(nil), data...))
	return nil
}

// SendFragmentStart implements api.Conn.
func (c *Conn) SendFragmentStart(api.MessageKind, []byte) error { return nil }

// SendFragment implements api.Conn.
func (c *Conn) SendFragment([]byte) error { return nil }

// SendFragmentEnd implements api.Conn.
func (c *Conn) SendFragmentEnd([]byte) error { return nil }

// Close implements api.Conn.
func (c *Conn) Close(status int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeStatus = status
	c.closeReason = reason
}
