// File: api/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Application-facing hook surface. The embedding host implements Handler and
// only ever observes connected/message/disconnected events; every
// protocol-level failure stays inside the engine.

package api

// MessageKind distinguishes decoded text from raw binary payloads.
type MessageKind int

const (
	TextMessage MessageKind = iota
	BinaryMessage
)

// Message is one fully reassembled WebSocket message.
// For TextMessage, Data holds strictly validated UTF-8.
type Message struct {
	Kind MessageKind
	Data []byte
}

// Text returns the payload as a string. Only meaningful for TextMessage.
func (m Message) Text() string { return string(m.Data) }

// Conn is the engine's outbound surface handed to the host application.
// All send operations are safe to call from goroutines outside the reactor
// loop; frames are queued and flushed by the reactor on writability.
type Conn interface {
	// ID is the opaque connection handle (the transport descriptor).
	ID() int

	// RemoteAddr returns the peer address in host:port form.
	RemoteAddr() string

	// Secure reports whether the connection is TLS-wrapped.
	Secure() bool

	// SendText queues an unfragmented text frame.
	SendText(text string) error

	// SendBinary queues an unfragmented binary frame.
	SendBinary(data []byte) error

	// SendFragmentStart opens a fragmented message of the given kind.
	// Subsequent chunks go through SendFragment, the final chunk through
	// SendFragmentEnd.
	SendFragmentStart(kind MessageKind, data []byte) error

	// SendFragment queues an intermediate continuation frame.
	SendFragment(data []byte) error

	// SendFragmentEnd queues the final continuation frame of a fragmented
	// message.
	SendFragmentEnd(data []byte) error

	// Close queues a Close frame carrying status and reason and marks the
	// connection closed. The socket is torn down once the frame is flushed.
	Close(status int, reason string)
}

// Handler receives connection lifecycle and message events.
type Handler interface {
	// OnConnected fires once the opening handshake completes.
	OnConnected(c Conn)

	// OnMessage fires for every fully reassembled text or binary message.
	OnMessage(c Conn, m Message)

	// OnDisconnected fires when a handshaked connection is evicted for any
	// reason. Connections that never completed the handshake do not report.
	OnDisconnected(c Conn)
}

// HandlerFuncs adapts plain functions to the Handler interface; nil fields
// are no-ops.
type HandlerFuncs struct {
	Connected    func(c Conn)
	Message      func(c Conn, m Message)
	Disconnected func(c Conn)
}

func (h HandlerFuncs) OnConnected(c Conn) {
	if h.Connected != nil {
		h.Connected(c)
	}
}

func (h HandlerFuncs) OnMessage(c Conn, m Message) {
	if h.Message != nil {
		h.Message(c, m)
	}
}

func (h HandlerFuncs) OnDisconnected(c Conn) {
	if h.Disconnected != nil {
		h.Disconnected(c)
	}
}
