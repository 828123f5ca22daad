//go:build linux
// +build linux

// File: transport/tls_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TLS decorator over an accepted descriptor. The handshake runs eagerly at
// accept time under a deadline; afterwards every read and write carries a
// short deadline so a not-ready TLS session surfaces as would-block instead
// of stalling the loop. The reactor still polls the original descriptor.

package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/momentics/reactor-ws/api"
)

const (
	tlsHandshakeTimeout = 10 * time.Second

	// tlsPollSlack is the deadline granted to one TLS read or write attempt.
	// Readiness was already reported by the poller, so the common case
	// completes immediately; the slack only bounds record-level stalls.
	tlsPollSlack = time.Millisecond
)

// TLSTransport wraps an accepted socket with a server-side TLS session.
type TLSTransport struct {
	fd        int
	file      *os.File
	conn      *tls.Conn
	closeOnce sync.Once
	closeErr  error
}

// NewTLSTransport performs the server-side TLS handshake over the accepted
// descriptor and returns the decorated transport. The descriptor stays valid
// for polling; the TLS session runs over a duplicate sharing the same socket.
func NewTLSTransport(fd int, conf *tls.Config) (*TLSTransport, error) {
	file := os.NewFile(uintptr(fd), "wsconn")
	nc, err := net.FileConn(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("tls wrap: %w", err)
	}
	conn := tls.Server(nc, conf)
	_ = conn.SetDeadline(time.Now().Add(tlsHandshakeTimeout))
	if err := conn.Handshake(); err != nil {
		conn.Close()
		file.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})
	return &TLSTransport{fd: fd, file: file, conn: conn}, nil
}

// TryRead reads decrypted bytes; a deadline expiry maps to would-block.
func (t *TLSTransport) TryRead(p []byte) (int, error) {
	_ = t.conn.SetReadDeadline(time.Now().Add(tlsPollSlack))
	n, err := t.conn.Read(p)
	if n > 0 {
		return n, nil
	}
	switch {
	case err == nil:
		return 0, api.ErrWouldBlock
	case errors.Is(err, io.EOF):
		return 0, api.ErrPeerClosed
	case isTimeout(err):
		return 0, api.ErrWouldBlock
	}
	return 0, fmt.Errorf("tls read: %w", err)
}

// TryWrite writes through the TLS session. A deadline expiry before any
// byte of the record went out maps to would-block; a expiry mid-record
// corrupts the session, which the next write reports as a fatal error.
func (t *TLSTransport) TryWrite(p []byte) (int, error) {
	_ = t.conn.SetWriteDeadline(time.Now().Add(tlsPollSlack))
	n, err := t.conn.Write(p)
	if n > 0 {
		return n, nil
	}
	switch {
	case err == nil:
		return 0, nil
	case isTimeout(err):
		return 0, api.ErrWouldBlock
	}
	return 0, fmt.Errorf("tls write: %w", err)
}

// Close tears down the TLS session, its socket duplicate and the polled
// descriptor. Idempotent.
func (t *TLSTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
		_ = t.file.Close()
	})
	return t.closeErr
}

// FD returns the originally accepted descriptor used for polling.
func (t *TLSTransport) FD() int { return t.fd }

// Secure reports true.
func (t *TLSTransport) Secure() bool { return true }

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
