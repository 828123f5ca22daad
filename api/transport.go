// File: api/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking byte-stream abstraction consumed by the protocol engine.
// Implementations exist for raw TCP sockets and for TLS-wrapped sockets;
// the connection and reactor layers only ever see this contract.

package api

// Transport is a non-blocking byte stream over an accepted socket.
//
// Both TryRead and TryWrite must never stall: when the socket cannot make
// progress they return ErrWouldBlock and the reactor retries on a later
// tick. TryRead reports an orderly peer shutdown as ErrPeerClosed.
type Transport interface {
	// TryRead fills p with whatever bytes are available and returns the
	// count. Returns ErrWouldBlock when no bytes are ready and ErrPeerClosed
	// on EOF.
	TryRead(p []byte) (int, error)

	// TryWrite writes as much of p as the socket accepts and returns the
	// count. Returns ErrWouldBlock when nothing could be written.
	TryWrite(p []byte) (int, error)

	// Close releases the underlying socket. Idempotent.
	Close() error

	// FD returns the descriptor the reactor polls for readiness. For a
	// TLS-wrapped socket this is still the accepted descriptor.
	FD() int

	// Secure reports whether the stream is TLS-wrapped.
	Secure() bool
}
