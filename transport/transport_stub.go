//go:build !linux
// +build !linux

// File: transport/transport_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for unsupported platforms.

package transport

import (
	"crypto/tls"
	"errors"

	"github.com/momentics/reactor-ws/api"
)

var errUnsupported = errors.New("transport: this platform is not supported")

// TCPListener is unavailable on this platform.
type TCPListener struct{}

// Listen returns an error for unsupported platforms.
func Listen(host string, port int, tlsConf *tls.Config) (*TCPListener, error) {
	return nil, errUnsupported
}

func (l *TCPListener) FD() int      { return -1 }
func (l *TCPListener) Secure() bool { return false }
func (l *TCPListener) Addr() string { return "" }
func (l *TCPListener) Close() error { return nil }

func (l *TCPListener) Accept() (api.Transport, string, error) {
	return nil, "", errUnsupported
}
