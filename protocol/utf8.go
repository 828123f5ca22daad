// File: protocol/utf8.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Incremental strict UTF-8 validation for text messages. A multi-byte
// sequence may span a frame boundary, so the validator carries the
// incomplete tail between calls; a malformed byte fails immediately even if
// the sequence is still incomplete.

package protocol

import (
	"fmt"

	"github.com/momentics/reactor-ws/api"
)

var errInvalidUTF8 = fmt.Errorf("%w: invalid utf-8 payload", api.ErrProtocol)

// UTF8Decoder validates a UTF-8 byte stream fed in arbitrary chunks.
// The zero value is ready to use.
type UTF8Decoder struct {
	pending [4]byte // bytes of the current incomplete sequence
	seen    int
	rem     int  // continuation bytes still expected
	lo, hi  byte // accepted range for the next continuation byte
}

// Reset discards any incomplete sequence.
func (d *UTF8Decoder) Reset() {
	d.seen = 0
	d.rem = 0
}

// Decode validates p as the next chunk of the stream and returns the bytes
// of all sequences completed so far, including a tail carried over from the
// previous call. With final set, a trailing incomplete sequence is an error.
func (d *UTF8Decoder) Decode(p []byte, final bool) ([]byte, error) {
	out := make([]byte, 0, d.seen+len(p))
	for _, b := range p {
		if d.rem == 0 {
			if b < 0x80 {
				out = append(out, b)
				continue
			}
			size, lo, hi := utf8SeqInfo(b)
			if size == 0 {
				return nil, errInvalidUTF8
			}
			d.pending[0] = b
			d.seen = 1
			d.rem = size - 1
			d.lo, d.hi = lo, hi
			continue
		}
		if b < d.lo || b > d.hi {
			return nil, errInvalidUTF8
		}
		d.pending[d.seen] = b
		d.seen++
		d.rem--
		d.lo, d.hi = 0x80, 0xBF
		if d.rem == 0 {
			out = append(out, d.pending[:d.seen]...)
			d.seen = 0
		}
	}
	if final && d.rem != 0 {
		return nil, errInvalidUTF8
	}
	return out, nil
}

// utf8SeqInfo returns the total sequence length implied by a lead byte and
// the accepted range for the second byte. A zero size marks an invalid lead
// (stray continuation bytes, overlong C0/C1 leads, and values above F4).
func utf8SeqInfo(b byte) (size int, lo, hi byte) {
	switch {
	case b >= 0xC2 && b <= 0xDF:
		return 2, 0x80, 0xBF
	case b == 0xE0:
		return 3, 0xA0, 0xBF
	case b >= 0xE1 && b <= 0xEC:
		return 3, 0x80, 0xBF
	case b == 0xED:
		// excludes UTF-16 surrogates
		return 3, 0x80, 0x9F
	case b >= 0xEE && b <= 0xEF:
		return 3, 0x80, 0xBF
	case b == 0xF0:
		return 4, 0x90, 0xBF
	case b >= 0xF1 && b <= 0xF3:
		return 4, 0x80, 0xBF
	case b == 0xF4:
		return 4, 0x80, 0x8F
	}
	return 0, 0, 0
}
