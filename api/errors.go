// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error values shared across the library, plus the severity
// classification the reactor uses to decide between retrying an operation,
// evicting a connection, and shutting the whole server down.

package api

import "errors"

// Sentinel errors used across the library.
var (
	// ErrWouldBlock signals a transport operation that cannot complete right
	// now. It is a control-flow outcome, not a failure: the caller retries on
	// the next reactor tick.
	ErrWouldBlock = errors.New("operation would block")

	// ErrPeerClosed is returned when the remote end has closed the socket
	// (a zero-byte read or an orderly EOF).
	ErrPeerClosed = errors.New("remote socket closed")

	// ErrConnClosed is returned for application sends attempted after the
	// connection has entered the closing state.
	ErrConnClosed = errors.New("connection closed")

	// ErrProtocol wraps every RFC 6455 violation detected by the frame
	// decoder or the message assembly layer. Always fatal to the connection.
	ErrProtocol = errors.New("websocket protocol error")

	// ErrHandshake wraps opening-handshake failures (missing key, malformed
	// request, oversized header).
	ErrHandshake = errors.New("handshake failed")

	// ErrListener signals a failure of the listening socket itself. Fatal to
	// the whole server.
	ErrListener = errors.New("server socket failed")
)

// Severity partitions errors by the action the reactor loop must take.
type Severity int

const (
	// SeverityTransient: defer to the next poll tick, nothing is wrong.
	SeverityTransient Severity = iota
	// SeverityConnFatal: evict the connection, never retry.
	SeverityConnFatal
	// SeverityServerFatal: tear down every connection and stop the server.
	SeverityServerFatal
)

// SeverityOf maps an error to the reactor action it requires. A nil error and
// would-block conditions are transient; listener failures take the whole
// server down; everything else costs the connection.
func SeverityOf(err error) Severity {
	switch {
	case err == nil, errors.Is(err, ErrWouldBlock):
		return SeverityTransient
	case errors.Is(err, ErrListener):
		return SeverityServerFatal
	default:
		return SeverityConnFatal
	}
}
