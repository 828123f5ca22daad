// File: protocol/constants.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WebSocket wire protocol constants (RFC 6455).

package protocol

const (
	// Frame opcodes.
	OpcodeContinuation = 0x0
	OpcodeText         = 0x1
	OpcodeBinary       = 0x2
	OpcodeClose        = 0x8
	OpcodePing         = 0x9
	OpcodePong         = 0xA

	// Bit masks of the first two header bytes.
	FinBit  = 0x80
	RsvBits = 0x70
	MaskBit = 0x80

	// Control frame payloads are capped at 125 bytes.
	MaxControlPayloadLen = 125

	// Default size limits. Oversized headers and payloads are treated as
	// resource-exhaustion attempts and cost the connection.
	DefaultMaxHeaderBytes  = 1 << 16 // 64 KiB
	DefaultMaxPayloadBytes = 1 << 25 // 32 MiB

	// Close status codes.
	CloseNormalClosure      = 1000
	CloseGoingAway          = 1001
	CloseProtocolError      = 1002
	CloseUnsupportedData    = 1003
	CloseInvalidPayloadData = 1007
	ClosePolicyViolation    = 1008
	CloseMessageTooBig      = 1009
	CloseMissingExtension   = 1010
	CloseInternalServerErr  = 1011
)

// ValidCloseStatus reports whether a peer-supplied close status is in the
// set allowed by RFC 6455 for transmission over the wire. Anything else is
// normalized to CloseProtocolError by the close handshake.
func ValidCloseStatus(status int) bool {
	switch status {
	case CloseNormalClosure, CloseGoingAway, CloseProtocolError,
		CloseUnsupportedData, CloseInvalidPayloadData, ClosePolicyViolation,
		CloseMessageTooBig, CloseMissingExtension, CloseInternalServerErr:
		return true
	}
	return status >= 3000 && status <= 4999
}
