// File: protocol/connection.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection owns one accepted socket end to end: it routes incoming bytes
// to the handshake parser until the upgrade completes and to the frame
// decoder afterwards, reassembles fragmented messages, answers pings, runs
// the close handshake, and drains an outbound FIFO tolerant of partial
// writes. All reads and flushes happen on the reactor loop; the send
// operations may be called from any goroutine.

package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/reactor-ws/api"
	"github.com/momentics/reactor-ws/pool"
)

// handshakeReadSize bounds a single pre-handshake read; frameReadSize bounds
// a post-handshake read.
const (
	handshakeReadSize = 2048
	frameReadSize     = 16384
)

// Read buffers are pooled; both consumers copy out of the buffer before the
// read returns, so recycling is safe.
var (
	handshakeBufPool = pool.NewBytePool(handshakeReadSize)
	frameBufPool     = pool.NewBytePool(frameReadSize)
)

// outFrame is one fully encoded queue entry. A partial write trims data in
// place, leaving the unsent suffix for the next writable tick.
type outFrame struct {
	opcode byte
	data   []byte
}

// Connection drives the protocol engine for one socket.
type Connection struct {
	tr         api.Transport
	handler    api.Handler
	remoteAddr string

	// mu guards sendq, inflight and closed: the host may enqueue from
	// goroutines outside the reactor loop.
	mu       sync.Mutex
	sendq    *queue.Queue
	inflight *outFrame
	closed   bool
	wake     func()

	handshaked bool
	headerBuf  []byte
	maxHeader  int

	dec *Decoder

	fragStart   bool
	fragType    byte
	fragText    []byte
	fragBin     []byte
	fragDecoder UTF8Decoder
}

// NewConnection wires a transport to the protocol engine. The wake callback
// interrupts the reactor poll so frames queued off-loop get flushed promptly;
// it may be nil.
func NewConnection(tr api.Transport, h api.Handler, maxHeader, maxPayload int, remoteAddr string, wake func()) *Connection {
	if maxHeader <= 0 {
		maxHeader = DefaultMaxHeaderBytes
	}
	if wake == nil {
		wake = func() {}
	}
	return &Connection{
		tr:         tr,
		handler:    h,
		remoteAddr: remoteAddr,
		sendq:      queue.New(),
		wake:       wake,
		maxHeader:  maxHeader,
		dec:        NewDecoder(maxPayload),
	}
}

// ID returns the transport descriptor used as the connection handle.
func (c *Connection) ID() int { return c.tr.FD() }

// RemoteAddr returns the peer address.
func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// Secure reports whether the transport is TLS-wrapped.
func (c *Connection) Secure() bool { return c.tr.Secure() }

// Transport exposes the underlying transport to the reactor for eviction.
func (c *Connection) Transport() api.Transport { return c.tr }

// Handshaked reports whether the opening handshake has completed.
func (c *Connection) Handshaked() bool { return c.handshaked }

// HasPending reports whether any outbound bytes await flushing.
func (c *Connection) HasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil || c.sendq.Length() > 0
}

// HandleReadable consumes whatever the transport has to offer. Called by the
// reactor when the socket polls readable. A would-block outcome is silent;
// every returned error is fatal to the connection.
//
// Reads repeat until the transport blocks: the poller only watches the raw
// descriptor, and a TLS transport may hold decrypted bytes in memory after
// the socket itself is drained. Stopping early would strand those bytes
// until the peer sent more.
func (c *Connection) HandleReadable() error {
	if !c.handshaked {
		return c.readHandshake()
	}
	buf := frameBufPool.Get()
	defer frameBufPool.Put(buf)
	for {
		n, err := c.tr.TryRead(buf)
		if err != nil {
			if errors.Is(err, api.ErrWouldBlock) {
				return nil
			}
			return err
		}
		if err := c.dec.Feed(buf[:n], c.handleFrame); err != nil {
			return err
		}
	}
}

// readHandshake accumulates upgrade-request bytes until the header
// terminator appears, then answers 101 or a synchronous 426.
func (c *Connection) readHandshake() error {
	buf := handshakeBufPool.Get()
	defer handshakeBufPool.Put(buf)
	for {
		n, err := c.tr.TryRead(buf)
		if err != nil {
			if errors.Is(err, api.ErrWouldBlock) {
				return nil
			}
			return err
		}
		c.headerBuf = append(c.headerBuf, buf[:n]...)

		if len(c.headerBuf) >= c.maxHeader {
			c.writeBlocking(RejectionResponse())
			return fmt.Errorf("%w: header exceeded allowable size", api.ErrHandshake)
		}
		if bytes.Contains(c.headerBuf, HeaderTerminator) {
			break
		}
		// No terminator yet: keep the partial request buffered and keep
		// reading while the transport has bytes.
	}

	key, err := ParseUpgrade(c.headerBuf)
	if err != nil {
		c.writeBlocking(RejectionResponse())
		return fmt.Errorf("%w: %v", api.ErrHandshake, err)
	}

	c.enqueue(OpcodeBinary, UpgradeResponse(key))
	c.headerBuf = nil
	c.handshaked = true
	if c.handler != nil {
		c.handler.OnConnected(c)
	}
	return nil
}

// handleFrame is the message-assembly layer invoked for every complete frame.
func (c *Connection) handleFrame(f Frame) error {
	switch f.Opcode {
	case OpcodeContinuation, OpcodeText, OpcodeBinary, OpcodeClose:
	case OpcodePing, OpcodePong:
		if len(f.Payload) > MaxControlPayloadLen {
			return fmt.Errorf("%w: control frame length can not be > 125", api.ErrProtocol)
		}
	default:
		return fmt.Errorf("%w: unknown opcode", api.ErrProtocol)
	}

	if f.Opcode == OpcodeClose {
		status, reason := ParseClosePayload(f.Payload)
		c.Close(status, reason)
		return nil
	}

	if !f.Final {
		return c.handleFragment(f)
	}

	switch f.Opcode {
	case OpcodeContinuation:
		return c.finishFragment(f)
	case OpcodePing:
		c.enqueue(OpcodePong, EncodeFrame(true, OpcodePong, f.Payload))
		return nil
	case OpcodePong:
		return nil
	default:
		if c.fragStart {
			// Interleaving a new data message inside a fragmented one is
			// forbidden.
			return fmt.Errorf("%w: fragmentation protocol error", api.ErrProtocol)
		}
		msg := api.Message{Kind: api.BinaryMessage, Data: f.Payload}
		if f.Opcode == OpcodeText {
			var dec UTF8Decoder
			text, err := dec.Decode(f.Payload, true)
			if err != nil {
				return err
			}
			msg = api.Message{Kind: api.TextMessage, Data: text}
		}
		c.deliver(msg)
		return nil
	}
}

// handleFragment processes a non-final frame: either the start of a
// fragmented message or an intermediate continuation.
func (c *Connection) handleFragment(f Frame) error {
	if f.Opcode != OpcodeContinuation {
		if f.Opcode == OpcodePing || f.Opcode == OpcodePong {
			return fmt.Errorf("%w: control messages can not be fragmented", api.ErrProtocol)
		}
		c.fragStart = true
		c.fragType = f.Opcode
		c.fragDecoder.Reset()
		if c.fragType == OpcodeText {
			c.fragText = c.fragText[:0]
			chunk, err := c.fragDecoder.Decode(f.Payload, false)
			if err != nil {
				return err
			}
			c.fragText = append(c.fragText, chunk...)
		} else {
			c.fragBin = append(c.fragBin[:0], f.Payload...)
		}
		return nil
	}

	if !c.fragStart {
		return fmt.Errorf("%w: fragmentation protocol error", api.ErrProtocol)
	}
	if c.fragType == OpcodeText {
		chunk, err := c.fragDecoder.Decode(f.Payload, false)
		if err != nil {
			return err
		}
		c.fragText = append(c.fragText, chunk...)
	} else {
		c.fragBin = append(c.fragBin, f.Payload...)
	}
	return nil
}

// finishFragment completes a fragmented message on a final continuation
// frame and delivers the assembled payload.
func (c *Connection) finishFragment(f Frame) error {
	if !c.fragStart {
		return fmt.Errorf("%w: fragmentation protocol error", api.ErrProtocol)
	}
	var msg api.Message
	if c.fragType == OpcodeText {
		// Final decode forces any incomplete trailing sequence to fail.
		chunk, err := c.fragDecoder.Decode(f.Payload, true)
		if err != nil {
			return err
		}
		c.fragText = append(c.fragText, chunk...)
		msg = api.Message{Kind: api.TextMessage, Data: append([]byte(nil), c.fragText...)}
	} else {
		c.fragBin = append(c.fragBin, f.Payload...)
		msg = api.Message{Kind: api.BinaryMessage, Data: append([]byte(nil), c.fragBin...)}
	}

	c.fragDecoder.Reset()
	c.fragStart = false
	c.fragType = OpcodeBinary
	c.fragText = nil
	c.fragBin = nil

	c.deliver(msg)
	return nil
}

func (c *Connection) deliver(m api.Message) {
	if c.handler != nil {
		c.handler.OnMessage(c, m)
	}
}

// SendText queues an unfragmented text frame.
func (c *Connection) SendText(text string) error {
	return c.send(true, OpcodeText, []byte(text))
}

// SendBinary queues an unfragmented binary frame.
func (c *Connection) SendBinary(data []byte) error {
	return c.send(true, OpcodeBinary, data)
}

// SendFragmentStart opens a fragmented outbound message.
func (c *Connection) SendFragmentStart(kind api.MessageKind, data []byte) error {
	opcode := byte(OpcodeBinary)
	if kind == api.TextMessage {
		opcode = OpcodeText
	}
	return c.send(false, opcode, data)
}

// SendFragment queues an intermediate continuation frame.
func (c *Connection) SendFragment(data []byte) error {
	return c.send(false, OpcodeContinuation, data)
}

// SendFragmentEnd queues the final continuation frame.
func (c *Connection) SendFragmentEnd(data []byte) error {
	return c.send(true, OpcodeContinuation, data)
}

func (c *Connection) send(final bool, opcode byte, payload []byte) error {
	frame := EncodeFrame(final, opcode, payload)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrConnClosed
	}
	c.sendq.Add(&outFrame{opcode: opcode, data: frame})
	c.mu.Unlock()
	c.wake()
	return nil
}

// Close queues a Close frame carrying status and reason and marks the
// connection closed. Idempotent. The reactor tears the socket down once the
// frame has been fully flushed; it does not wait for the peer's
// acknowledging Close frame.
func (c *Connection) Close(status int, reason string) {
	c.mu.Lock()
	if !c.closed {
		frame := EncodeFrame(true, OpcodeClose, EncodeClosePayload(status, reason))
		c.sendq.Add(&outFrame{opcode: OpcodeClose, data: frame})
		c.closed = true
	}
	c.mu.Unlock()
	c.wake()
}

// enqueue appends an already-encoded frame to the send queue regardless of
// the closing state. Used internally for the handshake response and pong
// replies.
func (c *Connection) enqueue(opcode byte, frame []byte) {
	c.mu.Lock()
	c.sendq.Add(&outFrame{opcode: opcode, data: frame})
	c.mu.Unlock()
}

// Flush writes as much queued output as the transport accepts. Called by the
// reactor when the socket polls writable. A short or blocked write leaves
// the unsent suffix as the head of the queue. done reports that a Close
// frame has been fully sent and the connection must be evicted.
func (c *Connection) Flush() (done bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if c.inflight == nil {
			if c.sendq.Length() == 0 {
				return false, nil
			}
			c.inflight = c.sendq.Remove().(*outFrame)
		}
		n, werr := c.tr.TryWrite(c.inflight.data)
		if n > 0 {
			c.inflight.data = c.inflight.data[n:]
		}
		if werr != nil {
			if errors.Is(werr, api.ErrWouldBlock) {
				return false, nil
			}
			return false, werr
		}
		if len(c.inflight.data) > 0 {
			// Partial progress; keep the remainder for the next tick.
			return false, nil
		}
		opcode := c.inflight.opcode
		c.inflight = nil
		if opcode == OpcodeClose {
			return true, nil
		}
	}
}

// writeBlocking pushes a raw byte sequence out in full, spinning through
// would-block conditions. Only used for the 426 rejection, immediately
// before the socket is dropped.
func (c *Connection) writeBlocking(data []byte) {
	for len(data) > 0 {
		n, err := c.tr.TryWrite(data)
		if n > 0 {
			data = data[n:]
			continue
		}
		if err != nil && !errors.Is(err, api.ErrWouldBlock) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
