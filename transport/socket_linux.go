//go:build linux
// +build linux

// File: transport/socket_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw-descriptor TCP transport. The descriptor is already non-blocking;
// EAGAIN surfaces as api.ErrWouldBlock and a zero-byte read as
// api.ErrPeerClosed.

package transport

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/reactor-ws/api"
)

// SocketTransport is the plain (non-TLS) transport over an accepted socket.
type SocketTransport struct {
	fd     int
	closed atomic.Bool
}

// NewSocketTransport wraps an accepted non-blocking descriptor.
func NewSocketTransport(fd int) *SocketTransport {
	return &SocketTransport{fd: fd}
}

// TryRead reads available bytes without blocking.
func (t *SocketTransport) TryRead(p []byte) (int, error) {
	n, err := unix.Read(t.fd, p)
	switch err {
	case nil:
	case unix.EAGAIN, unix.EINTR:
		return 0, api.ErrWouldBlock
	default:
		return 0, fmt.Errorf("read: %w", err)
	}
	if n == 0 {
		return 0, api.ErrPeerClosed
	}
	return n, nil
}

// TryWrite writes as much of p as the socket accepts without blocking.
func (t *SocketTransport) TryWrite(p []byte) (int, error) {
	n, err := unix.Write(t.fd, p)
	switch err {
	case nil:
	case unix.EAGAIN, unix.EINTR:
		return 0, api.ErrWouldBlock
	default:
		return 0, fmt.Errorf("write: %w", err)
	}
	return n, nil
}

// Close releases the descriptor. Idempotent.
func (t *SocketTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(t.fd)
}

// FD returns the polled descriptor.
func (t *SocketTransport) FD() int { return t.fd }

// Secure reports false for the plain transport.
func (t *SocketTransport) Secure() bool { return false }
