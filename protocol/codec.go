// File: protocol/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame codec: a resumable state-machine decoder plus a stateless encoder.
// The decoder is the continuation needed across socket reads: it may be fed
// the byte stream in arbitrarily small chunks and picks up mid-frame where
// the previous chunk ended.

package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/reactor-ws/api"
)

// DecoderState identifies the position of the decoder inside a frame.
type DecoderState int

const (
	StateHeaderByte1 DecoderState = iota
	StateHeaderByte2
	StateLengthShort
	StateLengthLong
	StateMask
	StatePayload
)

// Decoder incrementally parses WebSocket frames from a byte stream.
// After every complete frame it resets to StateHeaderByte1.
type Decoder struct {
	state  DecoderState
	final  bool
	opcode byte

	masked   bool
	maskKey  [4]byte
	maskSeen int

	lenBytes [8]byte
	lenSeen  int
	lenSize  int
	length   uint64

	payload    []byte
	maxPayload int
}

// NewDecoder returns a decoder enforcing the given payload limit.
func NewDecoder(maxPayload int) *Decoder {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadBytes
	}
	return &Decoder{state: StateHeaderByte1, maxPayload: maxPayload}
}

// State exposes the current decoder state.
func (d *Decoder) State() DecoderState { return d.state }

// Feed consumes one buffer of stream bytes, invoking emit for every complete
// frame. Any returned error is a protocol violation and fatal to the stream;
// the decoder must not be fed again after an error.
func (d *Decoder) Feed(p []byte, emit func(Frame) error) error {
	for i := 0; i < len(p); {
		switch d.state {
		case StateHeaderByte1:
			b := p[i]
			i++
			if b&RsvBits != 0 {
				return fmt.Errorf("%w: rsv bit must be zero", api.ErrProtocol)
			}
			d.final = b&FinBit != 0
			d.opcode = b & 0x0F
			d.length = 0
			d.lenSeen = 0
			d.maskSeen = 0
			d.payload = nil
			d.state = StateHeaderByte2

		case StateHeaderByte2:
			b := p[i]
			i++
			d.masked = b&MaskBit != 0
			l := b & 0x7F
			if d.opcode == OpcodePing && l > MaxControlPayloadLen {
				return fmt.Errorf("%w: ping packet is too large", api.ErrProtocol)
			}
			switch {
			case l <= 125:
				d.length = uint64(l)
				if err := d.afterLength(emit); err != nil {
					return err
				}
			case l == 126:
				d.lenSize = 2
				d.state = StateLengthShort
			default:
				d.lenSize = 8
				d.state = StateLengthLong
			}

		case StateLengthShort, StateLengthLong:
			d.lenBytes[d.lenSeen] = p[i]
			i++
			d.lenSeen++
			if d.lenSeen < d.lenSize {
				break
			}
			if d.lenSize == 2 {
				d.length = uint64(binary.BigEndian.Uint16(d.lenBytes[:2]))
			} else {
				d.length = binary.BigEndian.Uint64(d.lenBytes[:8])
			}
			if err := d.afterLength(emit); err != nil {
				return err
			}

		case StateMask:
			d.maskKey[d.maskSeen] = p[i]
			i++
			d.maskSeen++
			if d.maskSeen < 4 {
				break
			}
			if err := d.beginPayload(emit); err != nil {
				return err
			}

		case StatePayload:
			have := len(d.payload)
			take := int(d.length) - have
			if rest := len(p) - i; take > rest {
				take = rest
			}
			d.payload = append(d.payload, p[i:i+take]...)
			if d.masked {
				for j := 0; j < take; j++ {
					d.payload[have+j] ^= d.maskKey[(have+j)%4]
				}
			}
			i += take
			if uint64(len(d.payload)) == d.length {
				if err := d.dispatch(emit); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// afterLength routes to mask collection, payload accumulation, or immediate
// dispatch for empty unmasked frames.
func (d *Decoder) afterLength(emit func(Frame) error) error {
	if d.masked {
		d.state = StateMask
		return nil
	}
	return d.beginPayload(emit)
}

func (d *Decoder) beginPayload(emit func(Frame) error) error {
	// The declared length is rejected up front so it can never reach the
	// payload arithmetic; unchecked it could exceed the addressable range.
	if d.length >= uint64(d.maxPayload) {
		return fmt.Errorf("%w: payload exceeded allowable size", api.ErrProtocol)
	}
	if d.length == 0 {
		return d.dispatch(emit)
	}
	d.payload = make([]byte, 0, d.length)
	d.state = StatePayload
	return nil
}

// dispatch hands the complete frame to message-level handling and resets the
// per-frame state. The reset happens even when the handler fails, mirroring
// the one-byte-ahead invariant of the state machine.
func (d *Decoder) dispatch(emit func(Frame) error) error {
	f := Frame{Final: d.final, Opcode: d.opcode, Payload: d.payload}
	d.state = StateHeaderByte1
	d.payload = nil
	return emit(f)
}

// EncodeFrame serializes one server-to-client frame. Server frames are never
// masked; the length field uses the shortest of the 7/16/64-bit encodings.
func EncodeFrame(final bool, opcode byte, payload []byte) []byte {
	b0 := opcode & 0x0F
	if final {
		b0 |= FinBit
	}
	n := len(payload)

	var buf []byte
	switch {
	case n <= 125:
		buf = make([]byte, 0, 2+n)
		buf = append(buf, b0, byte(n))
	case n <= 0xFFFF:
		buf = make([]byte, 0, 4+n)
		buf = append(buf, b0, 126, 0, 0)
		binary.BigEndian.PutUint16(buf[2:4], uint16(n))
	default:
		buf = make([]byte, 0, 10+n)
		buf = append(buf, b0, 127, 0, 0, 0, 0, 0, 0, 0, 0)
		binary.BigEndian.PutUint64(buf[2:10], uint64(n))
	}
	return append(buf, payload...)
}

// EncodeClosePayload builds the body of a Close frame: a big-endian status
// code followed by the UTF-8 reason.
func EncodeClosePayload(status int, reason string) []byte {
	p := make([]byte, 2, 2+len(reason))
	binary.BigEndian.PutUint16(p, uint16(status))
	return append(p, reason...)
}

// ParseClosePayload extracts and normalizes the status code and reason from
// a received Close frame body. An empty body means a normal closure; a
// one-byte body, an out-of-range status, or a reason that is not strict
// UTF-8 all normalize to CloseProtocolError.
func ParseClosePayload(p []byte) (status int, reason string) {
	switch {
	case len(p) == 0:
		return CloseNormalClosure, ""
	case len(p) == 1:
		return CloseProtocolError, ""
	}
	status = int(binary.BigEndian.Uint16(p[:2]))
	if !ValidCloseStatus(status) {
		status = CloseProtocolError
	}
	if len(p) > 2 {
		var dec UTF8Decoder
		text, err := dec.Decode(p[2:], true)
		if err != nil {
			return CloseProtocolError, ""
		}
		reason = string(text)
	}
	return status, reason
}
