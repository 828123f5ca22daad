// File: server/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration and functional options.

package server

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/momentics/reactor-ws/protocol"
)

// Config carries every recognized server option.
type Config struct {
	// CertFile and KeyFile enable TLS when both are set; TLSConfig takes
	// precedence when non-nil.
	CertFile  string
	KeyFile   string
	TLSConfig *tls.Config

	// PollInterval bounds one reactor poll call. Zero blocks until
	// readiness or wakeup.
	PollInterval time.Duration

	// MaxHeaderBytes caps the buffered upgrade request.
	MaxHeaderBytes int

	// MaxPayloadBytes caps one frame's accumulated payload.
	MaxPayloadBytes int

	Logger *slog.Logger
}

// DefaultConfig returns the defaults used by NewServer.
func DefaultConfig() Config {
	return Config{
		PollInterval:    100 * time.Millisecond,
		MaxHeaderBytes:  protocol.DefaultMaxHeaderBytes,
		MaxPayloadBytes: protocol.DefaultMaxPayloadBytes,
	}
}

// Option customizes server initialization.
type Option func(*Config)

// WithTLSFiles enables TLS from a certificate/key pair on disk.
func WithTLSFiles(certFile, keyFile string) Option {
	return func(c *Config) {
		c.CertFile = certFile
		c.KeyFile = keyFile
	}
}

// WithTLSConfig enables TLS from a pre-built config.
func WithTLSConfig(conf *tls.Config) Option {
	return func(c *Config) { c.TLSConfig = conf }
}

// WithPollInterval overrides the reactor poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithMaxHeaderBytes overrides the upgrade-request size limit.
func WithMaxHeaderBytes(n int) Option {
	return func(c *Config) { c.MaxHeaderBytes = n }
}

// WithMaxPayloadBytes overrides the frame payload size limit.
func WithMaxPayloadBytes(n int) Option {
	return func(c *Config) { c.MaxPayloadBytes = n }
}

// WithLogger sets the structured logger used by the server and reactor.
func WithLogger(log *slog.Logger) Option {
	return func(c *Config) { c.Logger = log }
}
