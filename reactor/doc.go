// File: reactor/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package reactor implements the single-threaded multiplexing loop driving
// every connection: one poll call per tick over the listener and all live
// sockets, write dispatch for queued output, accept handling, and eviction.
//
// All connection-table mutation and protocol state transitions happen on the
// loop goroutine; off-loop callers interact only through synchronized send
// queues and the poller wakeup.
package reactor
