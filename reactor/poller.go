// File: reactor/poller.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral readiness poller interface. The loop hands over the full
// read/write/except watch sets every tick; the poller owns an internal
// wakeup channel so off-loop senders can interrupt a long poll.

package reactor

import "time"

// Poller multiplexes readiness across a set of descriptors.
type Poller interface {
	// Poll blocks until at least one descriptor is ready or the timeout
	// expires. A negative timeout blocks indefinitely. An interrupted poll
	// returns empty sets and a nil error.
	Poll(read, write, except []int, timeout time.Duration) (r, w, x []int, err error)

	// Wake interrupts a poll in progress from another goroutine.
	Wake()

	// Close releases poller resources.
	Close() error
}
