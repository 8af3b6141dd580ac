// Package rsp implements the wire layer of the GDB Remote Serial
// Protocol: frame encoding/decoding, the modulo-256 checksum, the
// escape mechanism, the single-byte interrupt, and a Connection type
// that layers acknowledgement semantics and an interruptible read on
// top of a net.Conn.
//
// Framing is grounded on the two retrieved Go implementations of this
// exact protocol: mihaihuluta-delve's pkg/proc/gdbserver.go (gdbConn's
// checksum/retry handling) and the Orizon gdbserver's
// readPacket/writePacket.
package rsp

import (
	"fmt"
)

// hexVal decodes a single ASCII hex digit. ok is false for anything
// else, in which case the frame containing it is treated as corrupt.
func hexVal(c byte) (v byte, ok bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// interruptByte is the single out-of-band byte GDB sends to request a
// target halt while a continue/step command is outstanding.
const interruptByte = 0x03

// Frame is one decoded RSP transport unit.
type Frame struct {
	// Payload is the unescaped, unframed packet body. For an
	// Interrupt frame, Payload is always []byte{0x03}.
	Payload []byte
	// Interrupt is true for the synthetic frame produced by a bare
	// 0x03 byte; its checksum is never validated.
	Interrupt bool
	// Valid is false when the frame's trailing checksum digits were
	// not valid hex. The decoder does not arithmetically verify the
	// checksum against Payload; acknowledgement is the client's signal
	// that a frame arrived corrupted. Always true for an Interrupt
	// frame.
	Valid bool
}

// checksum computes the GDB RSP modulo-256 checksum of payload.
func checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return sum
}

// Encode frames payload as "$payload#cc", escaping any '$', '#', '}'
// or '*' byte in payload with a '}' prefix XORed with 0x20. The checksum
// is computed over the original, unescaped payload bytes.
func Encode(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+4)
	out = append(out, '$')
	for _, b := range payload {
		switch b {
		case '$', '#', '}', '*':
			out = append(out, '}', b^0x20)
		default:
			out = append(out, b)
		}
	}
	out = append(out, '#')
	out = append(out, fmt.Sprintf("%02x", checksum(payload))...)
	return out
}

// Decoder incrementally parses a byte stream into Frames. A Decoder
// is not safe for concurrent use; a Connection owns exactly one.
type Decoder struct {
	buf []byte
}

// Feed appends data to the decoder's internal buffer and extracts as
// many complete frames as are present. Any trailing partial frame is
// retained for the next call, including a frame whose '#' is not yet
// followed by two checksum bytes. A frame cut short by an unescaped
// '$' is dropped rather than returned as an error: the decoder
// resynchronises on that '$'.
func (d *Decoder) Feed(data []byte) []Frame {
	d.buf = append(d.buf, data...)

	var frames []Frame
	i := 0
	for i < len(d.buf) {
		b := d.buf[i]
		switch {
		case b == interruptByte:
			frames = append(frames, Frame{Payload: []byte{interruptByte}, Interrupt: true, Valid: true})
			i++

		case b == '$':
			payload, sumOK, end, ok := scanFrame(d.buf, i+1)
			if !ok {
				// Incomplete: leave from i onward for the next Feed.
				d.buf = d.buf[i:]
				return frames
			}
			if payload == nil {
				// Aborted by an unescaped inner '$'; resume scanning
				// at the position of that '$' without consuming it.
				i = end
				continue
			}
			frames = append(frames, Frame{Payload: payload, Valid: sumOK})
			i = end

		default:
			// Stray byte outside any frame (e.g. a leftover ack
			// byte that reached the packet decoder); skip it.
			i++
		}
	}
	d.buf = d.buf[:0]
	return frames
}

// scanFrame scans a frame body starting at buf[from] (just past the
// opening '$') looking for an unescaped '#' followed by two checksum
// bytes. It returns the unescaped payload and whether the two
// trailing bytes were valid hex digits (sumOK); their arithmetic
// value is never compared against the payload's actual checksum, per
// the decoder's no-arithmetic-verification contract. end is the index
// just past the frame (including the checksum bytes) on success. ok
// is false if more data is needed. If an unescaped '$' is encountered
// before '#', it returns (nil, false, indexOfDollar, true) so the
// caller can resume scanning from that position.
func scanFrame(buf []byte, from int) (payload []byte, sumOK bool, end int, ok bool) {
	payload = make([]byte, 0, 32)
	j := from
	for j < len(buf) {
		c := buf[j]
		switch c {
		case '$':
			return nil, false, j, true
		case '#':
			if j+2 >= len(buf) {
				return nil, false, 0, false
			}
			_, hiOK := hexVal(buf[j+1])
			_, loOK := hexVal(buf[j+2])
			return payload, hiOK && loOK, j + 3, true
		case '}':
			if j+1 >= len(buf) {
				return nil, false, 0, false
			}
			payload = append(payload, buf[j+1]^0x20)
			j += 2
		default:
			payload = append(payload, c)
			j++
		}
	}
	return nil, false, 0, false
}
