//go:build linux
// +build linux

// File: transport/listener_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking listening socket. Accept decorates the new descriptor with
// TLS when a config is present, so the reactor and connection layers only
// ever see the api.Transport contract.

package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/momentics/reactor-ws/api"
)

// acceptBacklog mirrors the modest listen queue of the embedded use case.
const acceptBacklog = 5

// TCPListener owns the listening descriptor and the optional TLS config
// applied to accepted sockets.
type TCPListener struct {
	fd      int
	tlsConf *tls.Config
}

// Listen binds and listens on host:port. An empty host binds the loopback
// interface. A non-nil tlsConf makes every accepted transport TLS-wrapped.
func Listen(host string, port int, tlsConf *tls.Config) (*TCPListener, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve %s:%d: %w", host, port, err)
	}

	family := unix.AF_INET
	if addr.IP.To4() == nil && addr.IP != nil {
		family = unix.AF_INET6
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt: %w", err)
	}
	if err := unix.Bind(fd, sockaddrFromTCPAddr(family, addr)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %v: %w", addr, err)
	}
	if err := unix.Listen(fd, acceptBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &TCPListener{fd: fd, tlsConf: tlsConf}, nil
}

// FD returns the listening descriptor for the reactor's watch sets.
func (l *TCPListener) FD() int { return l.fd }

// Secure reports whether accepted transports are TLS-wrapped.
func (l *TCPListener) Secure() bool { return l.tlsConf != nil }

// Accept takes one pending connection, switches it to non-blocking mode and
// decorates it. Returns api.ErrWouldBlock when nothing is pending.
func (l *TCPListener) Accept() (api.Transport, string, error) {
	nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	switch err {
	case nil:
	case unix.EAGAIN, unix.EINTR:
		return nil, "", api.ErrWouldBlock
	default:
		return nil, "", fmt.Errorf("accept: %w", err)
	}
	remote := sockaddrString(sa)

	if l.tlsConf == nil {
		return NewSocketTransport(nfd), remote, nil
	}
	tr, err := NewTLSTransport(nfd, l.tlsConf)
	if err != nil {
		unix.Close(nfd)
		return nil, "", err
	}
	return tr, remote, nil
}

// Addr returns the actual bound address, resolving an ephemeral port.
func (l *TCPListener) Addr() string {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return ""
	}
	return sockaddrString(sa)
}

// Close shuts the listening socket down; pending accepts are refused.
func (l *TCPListener) Close() error {
	return unix.Close(l.fd)
}

func sockaddrFromTCPAddr(family int, addr *net.TCPAddr) unix.Sockaddr {
	if family == unix.AF_INET6 {
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], addr.IP.To16())
		return sa
	}
	sa := &unix.SockaddrInet4{Port: addr.Port}
	if ip4 := addr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	return sa
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	}
	return ""
}
