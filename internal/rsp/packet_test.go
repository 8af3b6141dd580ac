package rsp

import (
	"bytes"
	"testing"
)

func TestEncodeChecksum(t *testing.T) {
	// "OK" -> checksum 'O'+'K' = 0x4f+0x4b = 0x9a
	got := Encode([]byte("OK"))
	want := "$OK#9a"
	if string(got) != want {
		t.Fatalf("Encode(OK) = %q, want %q", got, want)
	}
}

func TestEncodeEscaping(t *testing.T) {
	for _, b := range []byte{'$', '#', '}', '*'} {
		payload := []byte{'a', b, 'b'}
		out := Encode(payload)
		if !bytes.Contains(out, []byte{'}', b ^ 0x20}) {
			t.Fatalf("Encode(%q) = %q, missing escape of %q", payload, out, b)
		}
		if bytes.IndexByte(out[1:len(out)-3], b) != -1 {
			t.Fatalf("Encode(%q) = %q, raw special byte %q leaked unescaped", payload, out, b)
		}
	}
}

func TestDecodeRoundtrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("OK"),
		[]byte("qSupported:multiprocess+"),
		{'$', '#', '}', '*', 'x'},
		{},
	}
	for _, p := range payloads {
		var d Decoder
		frames := d.Feed(Encode(p))
		if len(frames) != 1 {
			t.Fatalf("Feed(Encode(%q)) produced %d frames, want 1", p, len(frames))
		}
		f := frames[0]
		if !f.Valid {
			t.Fatalf("Feed(Encode(%q)) produced invalid frame", p)
		}
		if !bytes.Equal(f.Payload, p) {
			t.Fatalf("roundtrip mismatch: got %q, want %q", f.Payload, p)
		}
	}
}

func TestDecodeSplitAcrossFeeds(t *testing.T) {
	frame := Encode([]byte("g"))
	var d Decoder
	var frames []Frame
	for i := range frame {
		frames = append(frames, d.Feed(frame[i:i+1])...)
	}
	if len(frames) != 1 || !frames[0].Valid || string(frames[0].Payload) != "g" {
		t.Fatalf("byte-at-a-time feed produced %+v", frames)
	}
}

func TestDecodeBadChecksumStillAccepted(t *testing.T) {
	// The decoder never arithmetically verifies the checksum against
	// the payload; it only checks that the two trailing bytes are
	// present and are hex digits. A mismatched-but-well-formed
	// checksum is a sender retransmit concern, triggered by a '-' ack,
	// not something the decoder rejects.
	frame := Encode([]byte("g"))
	// Flip the low checksum nibble to a different hex digit so the
	// trailing bytes are still well-formed but no longer match.
	if frame[len(frame)-1] == '0' {
		frame[len(frame)-1] = '1'
	} else {
		frame[len(frame)-1] = '0'
	}
	var d Decoder
	frames := d.Feed(frame)
	if len(frames) != 1 || !frames[0].Valid || string(frames[0].Payload) != "g" {
		t.Fatalf("frame with a well-formed but mismatched checksum was rejected: %+v", frames)
	}
}

func TestDecodeIncompleteChecksumInvalid(t *testing.T) {
	// Non-hex trailing bytes (as opposed to merely wrong ones) are
	// the one thing that makes a frame structurally invalid.
	frame := Encode([]byte("g"))
	frame[len(frame)-1] = 'z'
	var d Decoder
	frames := d.Feed(frame)
	if len(frames) != 1 || frames[0].Valid {
		t.Fatalf("frame with a non-hex checksum digit was accepted: %+v", frames)
	}
}

func TestDecodeInterruptByte(t *testing.T) {
	var d Decoder
	frames := d.Feed([]byte{0x03})
	if len(frames) != 1 || !frames[0].Interrupt || !frames[0].Valid {
		t.Fatalf("interrupt byte produced %+v", frames)
	}
}

func TestDecodeMultipleFramesOneFeed(t *testing.T) {
	var buf []byte
	buf = append(buf, Encode([]byte("g"))...)
	buf = append(buf, Encode([]byte("c"))...)
	var d Decoder
	frames := d.Feed(buf)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2: %+v", len(frames), frames)
	}
	if string(frames[0].Payload) != "g" || string(frames[1].Payload) != "c" {
		t.Fatalf("unexpected payload order: %+v", frames)
	}
}

func TestDecodeAbortedFrameResyncs(t *testing.T) {
	// A stray '$' inside a frame body aborts that frame and restarts
	// scanning from it, so the well-formed frame that follows is still
	// recovered.
	var buf []byte
	buf = append(buf, '$')
	buf = append(buf, "garbage"...)
	buf = append(buf, Encode([]byte("m0,4"))...)
	var d Decoder
	frames := d.Feed(buf)
	if len(frames) != 1 || string(frames[0].Payload) != "m0,4" || !frames[0].Valid {
		t.Fatalf("resync after aborted frame failed: %+v", frames)
	}
}
