// File: fake/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"

	"github.com/momentics/reactor-ws/api"
)

// Handler records every hook invocation.
type Handler struct {
	mu           sync.Mutex
	connected    int
	disconnected int
	messages     []api.Message
}

// NewHandler returns an empty recording handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Connected returns how many times OnConnected fired.
func (h *Handler) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// Disconnected returns how many times OnDisconnected fired.
func (h *Handler) Disconnected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnected
}

// Messages returns every delivered message.
func (h *Handler) Messages() []api.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]api.Message(nil), h.messages...)
}

// OnConnected implements api.Handler.
func (h *Handler) OnConnected(api.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected++
}

// OnMessage implements api.Handler.
func (h *Handler) OnMessage(_ api.Conn, m api.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m)
}

// OnDisconnected implements api.Handler.
func (h *Handler) OnDisconnected(api.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnected++
}
