// File: protocol/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

// Frame is one parsed WebSocket frame as produced by the decoder. The
// payload has already been unmasked.
type Frame struct {
	Final   bool
	Opcode  byte
	Payload []byte
}
