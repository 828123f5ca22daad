//go:build !linux
// +build !linux

// File: reactor/poller_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for unsupported platforms.

package reactor

import "errors"

// NewPoller returns an error for unsupported platforms.
func NewPoller() (Poller, error) {
	return nil, errors.New("reactor: this platform is not supported")
}
