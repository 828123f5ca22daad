// File: protocol/codec_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/momentics/reactor-ws/api"
	"github.com/momentics/reactor-ws/protocol"
)

// maskFrame builds a client-side masked frame for decoder tests.
func maskFrame(final bool, opcode byte, payload []byte, key [4]byte) []byte {
	b0 := opcode
	if final {
		b0 |= protocol.FinBit
	}
	n := len(payload)
	var buf []byte
	switch {
	case n <= 125:
		buf = append(buf, b0, byte(n)|protocol.MaskBit)
	case n <= 0xFFFF:
		buf = append(buf, b0, 126|protocol.MaskBit, 0, 0)
		binary.BigEndian.PutUint16(buf[2:4], uint16(n))
	default:
		buf = append(buf, b0, 127|protocol.MaskBit, 0, 0, 0, 0, 0, 0, 0, 0)
		binary.BigEndian.PutUint64(buf[2:10], uint64(n))
	}
	buf = append(buf, key[:]...)
	for i, b := range payload {
		buf = append(buf, b^key[i%4])
	}
	return buf
}

func decodeAll(t *testing.T, dec *protocol.Decoder, raw []byte) []protocol.Frame {
	t.Helper()
	var frames []protocol.Frame
	if err := dec.Feed(raw, func(f protocol.Frame) error {
		frames = append(frames, f)
		return nil
	}); err != nil {
		t.Fatalf("feed: %v", err)
	}
	return frames
}

func TestLengthEncodingBoundaries(t *testing.T) {
	cases := []struct {
		size      int
		lenField  byte
		headerLen int
	}{
		{0, 0, 2},
		{125, 125, 2},
		{126, 126, 4},
		{65535, 126, 4},
		{65536, 127, 10},
	}
	for _, tc := range cases {
		payload := bytes.Repeat([]byte{0xAB}, tc.size)
		raw := protocol.EncodeFrame(true, protocol.OpcodeBinary, payload)

		if got := raw[1] & 0x7F; got != tc.lenField {
			t.Errorf("size %d: length field = %d, want %d", tc.size, got, tc.lenField)
		}
		if got := len(raw) - tc.size; got != tc.headerLen {
			t.Errorf("size %d: header length = %d, want %d", tc.size, got, tc.headerLen)
		}

		frames := decodeAll(t, protocol.NewDecoder(0), raw)
		if len(frames) != 1 {
			t.Fatalf("size %d: decoded %d frames, want 1", tc.size, len(frames))
		}
		if !bytes.Equal(frames[0].Payload, payload) {
			t.Errorf("size %d: payload mismatch after round trip", tc.size)
		}
		if !frames[0].Final || frames[0].Opcode != protocol.OpcodeBinary {
			t.Errorf("size %d: header bits lost: %+v", tc.size, frames[0])
		}
	}
}

func TestMaskedDecode(t *testing.T) {
	key := [4]byte{0x01, 0x02, 0x03, 0x04}
	raw := maskFrame(true, protocol.OpcodeBinary, []byte{0x00, 0x00, 0x00, 0x00}, key)

	// Force the payload bytes on the wire to zeros so the decoder's XOR
	// must reproduce the key itself.
	copy(raw[6:], []byte{0x00, 0x00, 0x00, 0x00})

	frames := decodeAll(t, protocol.NewDecoder(0), raw)
	if len(frames) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0].Payload, key[:]) {
		t.Errorf("payload = %x, want %x", frames[0].Payload, key)
	}
}

func TestByteAtATimeMatchesWholeBuffer(t *testing.T) {
	key := [4]byte{0xDE, 0xAD, 0xBE, 0xEF}
	var stream []byte
	stream = append(stream, maskFrame(true, protocol.OpcodeText, []byte("hello"), key)...)
	stream = append(stream, protocol.EncodeFrame(true, protocol.OpcodePing, []byte("p"))...)
	stream = append(stream, maskFrame(true, protocol.OpcodeBinary, bytes.Repeat([]byte{7}, 300), key)...)

	whole := decodeAll(t, protocol.NewDecoder(0), stream)

	dec := protocol.NewDecoder(0)
	var dribbled []protocol.Frame
	for _, b := range stream {
		if err := dec.Feed([]byte{b}, func(f protocol.Frame) error {
			dribbled = append(dribbled, f)
			return nil
		}); err != nil {
			t.Fatalf("feed: %v", err)
		}
	}

	if len(whole) != 3 || len(dribbled) != 3 {
		t.Fatalf("frame counts: whole=%d dribbled=%d, want 3", len(whole), len(dribbled))
	}
	for i := range whole {
		if whole[i].Opcode != dribbled[i].Opcode || whole[i].Final != dribbled[i].Final ||
			!bytes.Equal(whole[i].Payload, dribbled[i].Payload) {
			t.Errorf("frame %d differs between feeding modes", i)
		}
	}
	if dec.State() != protocol.StateHeaderByte1 {
		t.Errorf("decoder state = %v after complete frames, want StateHeaderByte1", dec.State())
	}
}

func TestRsvBitsRejected(t *testing.T) {
	raw := protocol.EncodeFrame(true, protocol.OpcodeText, []byte("x"))
	raw[0] |= 0x40

	err := protocol.NewDecoder(0).Feed(raw, func(protocol.Frame) error { return nil })
	if !errors.Is(err, api.ErrProtocol) {
		t.Fatalf("err = %v, want protocol error", err)
	}
}

func TestPingLengthLimit(t *testing.T) {
	// 126 forces the extended length marker, which the decoder rejects for
	// pings before even reading the extended length.
	raw := protocol.EncodeFrame(true, protocol.OpcodePing, bytes.Repeat([]byte{1}, 126))
	err := protocol.NewDecoder(0).Feed(raw, func(protocol.Frame) error { return nil })
	if !errors.Is(err, api.ErrProtocol) {
		t.Fatalf("ping 126: err = %v, want protocol error", err)
	}

	// 125 decodes cleanly.
	raw = protocol.EncodeFrame(true, protocol.OpcodePing, bytes.Repeat([]byte{1}, 125))
	frames := decodeAll(t, protocol.NewDecoder(0), raw)
	if len(frames) != 1 || len(frames[0].Payload) != 125 {
		t.Fatalf("ping 125 did not decode")
	}
}

func TestOversizedPayloadRejected(t *testing.T) {
	dec := protocol.NewDecoder(64)
	raw := protocol.EncodeFrame(true, protocol.OpcodeBinary, bytes.Repeat([]byte{2}, 64))
	err := dec.Feed(raw, func(protocol.Frame) error { return nil })
	if !errors.Is(err, api.ErrProtocol) {
		t.Fatalf("err = %v, want protocol error", err)
	}
}

// A 64-bit length field with the high bit set must be rejected at the header,
// not fed into the payload arithmetic.
func TestHugeDeclaredLengthRejected(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"msb set", []byte{0x82, 0x7F, 0x80, 0, 0, 0, 0, 0, 0, 0, 0x41}},
		{"max uint64", []byte{0x82, 0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"just above cap", []byte{0x82, 0x7F, 0, 0, 0, 0, 0x02, 0, 0, 0}},
		{"masked msb set", []byte{0x82, 0xFF, 0x80, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		dec := protocol.NewDecoder(1 << 25)
		err := dec.Feed(tc.raw, func(protocol.Frame) error { return nil })
		if !errors.Is(err, api.ErrProtocol) {
			t.Errorf("%s: err = %v, want protocol error", tc.name, err)
		}
	}
}

func TestParseClosePayload(t *testing.T) {
	cases := []struct {
		name       string
		payload    []byte
		wantStatus int
		wantReason string
	}{
		{"empty", nil, protocol.CloseNormalClosure, ""},
		{"one byte", []byte{0x03}, protocol.CloseProtocolError, ""},
		{"normal", append([]byte{0x03, 0xE8}, "bye"...), protocol.CloseNormalClosure, "bye"},
		{"out-of-range status", []byte{0x27, 0x0F}, protocol.CloseProtocolError, ""}, // 9999
		{"registered range", []byte{0x0F, 0xA0}, 4000, ""},
		{"bad utf-8 reason", append([]byte{0x03, 0xE8}, 0xFF, 0xFE), protocol.CloseProtocolError, ""},
	}
	for _, tc := range cases {
		status, reason := protocol.ParseClosePayload(tc.payload)
		if status != tc.wantStatus || reason != tc.wantReason {
			t.Errorf("%s: got (%d, %q), want (%d, %q)", tc.name, status, reason, tc.wantStatus, tc.wantReason)
		}
	}
}

func TestValidCloseStatus(t *testing.T) {
	for _, valid := range []int{1000, 1001, 1002, 1003, 1007, 1008, 1009, 1010, 1011, 3000, 3999, 4000, 4999} {
		if !protocol.ValidCloseStatus(valid) {
			t.Errorf("status %d should be valid", valid)
		}
	}
	for _, invalid := range []int{0, 999, 1004, 1005, 1006, 1012, 2999, 5000, 9999} {
		if protocol.ValidCloseStatus(invalid) {
			t.Errorf("status %d should be invalid", invalid)
		}
	}
}

func BenchmarkDecodeMaskedFrames(b *testing.B) {
	payload := bytes.Repeat([]byte{0xAB}, 4096)
	raw := maskFrame(true, protocol.OpcodeBinary, payload, [4]byte{0x11, 0x22, 0x33, 0x44})
	dec := protocol.NewDecoder(0)
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := dec.Feed(raw, func(protocol.Frame) error { return nil }); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncodeFrame(b *testing.B) {
	payload := bytes.Repeat([]byte{0xAB}, 4096)
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		protocol.EncodeFrame(true, protocol.OpcodeBinary, payload)
	}
}
