// File: protocol/utf8_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol_test

import (
	"bytes"
	"testing"

	"github.com/momentics/reactor-ws/protocol"
)

func TestUTF8SplitAcrossChunks(t *testing.T) {
	// U+20AC (€) is E2 82 AC; split it over three chunks.
	var dec protocol.UTF8Decoder
	var out []byte

	for i, chunk := range [][]byte{{0xE2}, {0x82}, {0xAC, 'x'}} {
		final := i == 2
		part, err := dec.Decode(chunk, final)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		out = append(out, part...)
	}
	if string(out) != "€x" {
		t.Errorf("decoded %q, want %q", out, "€x")
	}
}

func TestUTF8InvalidSequences(t *testing.T) {
	cases := []struct {
		name   string
		chunks [][]byte
	}{
		{"stray continuation", [][]byte{{0x80}}},
		{"overlong lead", [][]byte{{0xC0, 0xAF}}},
		{"bad continuation split", [][]byte{{0xE2}, {0x28}}},
		{"surrogate half", [][]byte{{0xED, 0xA0, 0x80}}},
		{"overlong E0", [][]byte{{0xE0}, {0x80, 0x80}}},
		{"above U+10FFFF", [][]byte{{0xF4, 0x90, 0x80, 0x80}}},
	}
	for _, tc := range cases {
		var dec protocol.UTF8Decoder
		var err error
		for i, chunk := range tc.chunks {
			if _, err = dec.Decode(chunk, i == len(tc.chunks)-1); err != nil {
				break
			}
		}
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestUTF8IncompleteTail(t *testing.T) {
	var dec protocol.UTF8Decoder

	// Non-final: the incomplete tail is carried, not an error.
	out, err := dec.Decode([]byte{'a', 0xE2}, false)
	if err != nil {
		t.Fatalf("non-final: %v", err)
	}
	if !bytes.Equal(out, []byte("a")) {
		t.Errorf("non-final out = %q, want %q", out, "a")
	}

	// Final with the sequence still open fails.
	if _, err := dec.Decode(nil, true); err == nil {
		t.Error("final with incomplete tail: expected error")
	}
}

func TestUTF8Reset(t *testing.T) {
	var dec protocol.UTF8Decoder
	if _, err := dec.Decode([]byte{0xE2}, false); err != nil {
		t.Fatal(err)
	}
	dec.Reset()
	out, err := dec.Decode([]byte("plain"), true)
	if err != nil {
		t.Fatalf("after reset: %v", err)
	}
	if string(out) != "plain" {
		t.Errorf("out = %q", out)
	}
}
