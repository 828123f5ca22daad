// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Embedding facade: binds the listener, wires the application handler and
// the client registry into the reactor, and drives the loop. This is the
// only surface a host application needs.

package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/momentics/reactor-ws/api"
	"github.com/momentics/reactor-ws/reactor"
	"github.com/momentics/reactor-ws/transport"
)

// Server owns one listening socket and the reactor driving its connections.
type Server struct {
	cfg     Config
	handler api.Handler
	reg     *Registry
	ln      *transport.TCPListener
	r       *reactor.Reactor
	log     *slog.Logger
}

// NewServer binds host:port and prepares the reactor. The handler receives
// the connected/message/disconnected hooks; it may be nil for a server that
// is only written to through the registry.
func NewServer(host string, port int, handler api.Handler, opts ...Option) (*Server, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	tlsConf := cfg.TLSConfig
	if tlsConf == nil && cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load tls key pair: %w", err)
		}
		tlsConf = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	ln, err := transport.Listen(host, port, tlsConf)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		handler: handler,
		reg:     NewRegistry(),
		ln:      ln,
		log:     log,
	}

	r, err := reactor.New(ln, hookChain{reg: s.reg, next: handler}, reactor.Config{
		PollInterval:    cfg.PollInterval,
		MaxHeaderBytes:  cfg.MaxHeaderBytes,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		Logger:          log,
	})
	if err != nil {
		ln.Close()
		return nil, err
	}
	s.r = r
	return s, nil
}

// Serve runs the reactor loop until Shutdown or a listener failure.
func (s *Server) Serve() error {
	s.log.Info("websocket server listening", "addr", s.ln.Addr(), "secure", s.ln.Secure())
	return s.r.Run()
}

// Shutdown stops the server from any goroutine: the listener closes first,
// then every live connection with its disconnect hook, then the loop exits.
func (s *Server) Shutdown() {
	s.r.Shutdown()
}

// Registry exposes the synchronized connection registry for host-side
// fan-out.
func (s *Server) Registry() *Registry { return s.reg }

// Addr returns the bound listen address, with any ephemeral port resolved.
func (s *Server) Addr() string { return s.ln.Addr() }

// hookChain maintains the registry around the host handler. Registration
// happens before the host's OnConnected and removal before OnDisconnected,
// so the host never observes a stale registry entry for a dead connection.
type hookChain struct {
	reg  *Registry
	next api.Handler
}

func (h hookChain) OnConnected(c api.Conn) {
	h.reg.Add(c)
	if h.next != nil {
		h.next.OnConnected(c)
	}
}

func (h hookChain) OnMessage(c api.Conn, m api.Message) {
	if h.next != nil {
		h.next.OnMessage(c, m)
	}
}

func (h hookChain) OnDisconnected(c api.Conn) {
	h.reg.Remove(c)
	if h.next != nil {
		h.next.OnDisconnected(c)
	}
}
