// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The event loop. Every tick: derive writer interest from non-empty send
// queues, poll listener plus connections, flush writable queues, accept new
// sockets, feed readable bytes into the per-connection engine, and evict
// anything that raised a fatal condition. Eviction is idempotent: a handle
// leaves the connection table exactly once.

package reactor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/momentics/reactor-ws/api"
	"github.com/momentics/reactor-ws/protocol"
)

// Listener is the accepting side of the transport layer. Accept returns a
// decorated (optionally TLS-wrapped) non-blocking transport plus the peer
// address, or api.ErrWouldBlock when no connection is pending.
type Listener interface {
	FD() int
	Accept() (api.Transport, string, error)
	Close() error
	Addr() string
}

// Config carries the loop's tunables.
type Config struct {
	// PollInterval bounds one poll call. Zero or negative means block until
	// readiness or wakeup.
	PollInterval time.Duration

	// MaxHeaderBytes caps the buffered upgrade request per connection.
	MaxHeaderBytes int

	// MaxPayloadBytes caps one frame's accumulated payload.
	MaxPayloadBytes int

	Logger *slog.Logger
}

// Reactor owns the listener and the full set of live connections.
type Reactor struct {
	ln      Listener
	handler api.Handler
	cfg     Config
	poller  Poller
	conns   map[int]*protocol.Connection
	closing atomic.Bool
	log     *slog.Logger
}

// New builds a reactor around an already-listening socket.
func New(ln Listener, h api.Handler, cfg Config) (*Reactor, error) {
	poller, err := NewPoller()
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Reactor{
		ln:      ln,
		handler: h,
		cfg:     cfg,
		poller:  poller,
		conns:   make(map[int]*protocol.Connection),
		log:     log,
	}, nil
}

// Wake interrupts the current poll; connections use it when frames are
// queued from outside the loop goroutine.
func (r *Reactor) Wake() { r.poller.Wake() }

// Run drives ticks until Shutdown is called or a server-fatal condition
// occurs. On a fatal condition every connection is closed in an orderly
// fashion before the error propagates; errors raised while shutting down
// are swallowed.
func (r *Reactor) Run() error {
	for !r.closing.Load() {
		if err := r.Tick(); err != nil {
			r.teardown()
			if r.closing.Load() {
				return nil
			}
			return err
		}
	}
	r.teardown()
	return nil
}

// Shutdown requests an orderly stop from any goroutine: the listener closes
// first, then every live connection with its disconnect hook, then the loop
// exits.
func (r *Reactor) Shutdown() {
	if r.closing.CompareAndSwap(false, true) {
		r.poller.Wake()
	}
}

// Tick runs one poll-and-dispatch cycle. Exposed for the embedding server;
// a returned error is server-fatal.
func (r *Reactor) Tick() error {
	read := make([]int, 0, len(r.conns)+1)
	except := make([]int, 0, len(r.conns)+1)
	var write []int

	read = append(read, r.ln.FD())
	except = append(except, r.ln.FD())
	for fd, c := range r.conns {
		read = append(read, fd)
		except = append(except, fd)
		if c.HasPending() {
			write = append(write, fd)
		}
	}

	timeout := r.cfg.PollInterval
	if timeout <= 0 {
		timeout = -1
	}
	readable, writable, exceptional, err := r.poller.Poll(read, write, except, timeout)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrListener, err)
	}

	for _, fd := range writable {
		c, ok := r.conns[fd]
		if !ok {
			continue
		}
		done, werr := c.Flush()
		if werr != nil || done {
			r.evict(c)
		}
	}

	for _, fd := range readable {
		if fd == r.ln.FD() {
			r.accept()
			continue
		}
		c, ok := r.conns[fd]
		if !ok {
			continue
		}
		if rerr := c.HandleReadable(); api.SeverityOf(rerr) != api.SeverityTransient {
			r.log.Debug("connection failed", "fd", fd, "err", rerr)
			r.evict(c)
		}
	}

	for _, fd := range exceptional {
		if fd == r.ln.FD() {
			return fmt.Errorf("%w: exceptional condition on listener", api.ErrListener)
		}
		if c, ok := r.conns[fd]; ok {
			r.evict(c)
		}
	}
	return nil
}

func (r *Reactor) accept() {
	tr, addr, err := r.ln.Accept()
	if err != nil {
		if !errors.Is(err, api.ErrWouldBlock) {
			r.log.Warn("accept failed", "err", err)
		}
		return
	}
	c := protocol.NewConnection(tr, r.handler, r.cfg.MaxHeaderBytes, r.cfg.MaxPayloadBytes, addr, r.Wake)
	r.conns[c.ID()] = c
	r.log.Debug("connection accepted", "fd", c.ID(), "remote", addr, "secure", c.Secure())
}

// evict closes the transport, removes the connection from the watch set and
// invokes the disconnect hook if the handshake had completed. Safe to call
// twice; the second call is a no-op.
func (r *Reactor) evict(c *protocol.Connection) {
	fd := c.ID()
	if _, ok := r.conns[fd]; !ok {
		return
	}
	delete(r.conns, fd)
	_ = c.Transport().Close()
	if c.Handshaked() && r.handler != nil {
		r.handler.OnDisconnected(c)
	}
	r.log.Debug("connection evicted", "fd", fd)
}

// teardown closes the listener, then every live connection, then the poller.
func (r *Reactor) teardown() {
	_ = r.ln.Close()
	for _, c := range r.conns {
		r.evict(c)
	}
	_ = r.poller.Close()
}
