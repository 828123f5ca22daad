// File: fake/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package fake provides controllable implementations of the engine's
// interfaces for tests. The fakes are synchronized so tests may drive them
// from multiple goroutines.

package fake

import (
	"bytes"
	"sync"

	"github.com/momentics/reactor-ws/api"
)

// Transport is a scripted api.Transport. Reads pop pre-loaded chunks and
// block when none remain; writes land in an inspectable buffer, optionally
// capped per call to exercise partial-write handling.
type Transport struct {
	mu       sync.Mutex
	reads    [][]byte
	wrote    bytes.Buffer
	writeCap int
	readErr  error
	writeErr error
	closed   bool
	fd       int
}

// NewTransport returns an empty fake transport.
func NewTransport() *Transport {
	return &Transport{fd: 9}
}

// AddReadData appends one chunk to be returned by a future TryRead call.
func (t *Transport) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads = append(t.reads, append([]byte(nil), data...))
}

// PendingReads reports how many scripted chunks remain unread.
func (t *Transport) PendingReads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reads)
}

// SetWriteCap bounds the bytes accepted by one TryWrite call. Zero means
// unbounded.
func (t *Transport) SetWriteCap(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeCap = n
}

// SetReadError makes every subsequent TryRead fail with err.
func (t *Transport) SetReadError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readErr = err
}

// SetWriteError makes every subsequent TryWrite fail with err.
func (t *Transport) SetWriteError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Written returns a copy of everything accepted by TryWrite so far.
func (t *Transport) Written() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.wrote.Bytes()...)
}

// ResetWritten clears the write capture.
func (t *Transport) ResetWritten() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wrote.Reset()
}

// Closed reports whether Close has been called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// TryRead implements api.Transport.
func (t *Transport) TryRead(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.readErr != nil {
		return 0, t.readErr
	}
	if len(t.reads) == 0 {
		return 0, api.ErrWouldBlock
	}
	chunk := t.reads[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		t.reads[0] = chunk[n:]
	} else {
		t.reads = t.reads[1:]
	}
	return n, nil
}

// TryWrite implements api.Transport.
func (t *Transport) TryWrite(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	n := len(p)
	if t.writeCap > 0 && n > t.writeCap {
		n = t.writeCap
	}
	t.wrote.Write(p[:n])
	return n, nil
}

// Close implements api.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// FD implements api.Transport.
func (t *Transport) FD() int { return t.fd }

// Secure implements api.Transport.
func (t *Transport) Secure() bool { return false }
