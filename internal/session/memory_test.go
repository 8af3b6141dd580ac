package session

import (
	"context"
	"testing"

	"github.com/embedded-tools/gdbrspd/internal/target"
)

func TestReadSpanSingleSegment(t *testing.T) {
	ds, ctrl, _ := newTestSession(t, 2)
	sram, _ := ds.Target.Target.AddressSpace("sram")
	ctrl.SeedMemory(sram.ID, 0x10, []byte{1, 2, 3, 4})

	data, err, _ := ds.readSpan(context.Background(), sram, 0x10, 4)
	if err != nil {
		t.Fatalf("readSpan: %v", err)
	}
	if string(data) != "\x01\x02\x03\x04" {
		t.Fatalf("data = % x", data)
	}
}

func TestReadSpanOvershootTolerated(t *testing.T) {
	ds, ctrl, _ := newTestSession(t, 2)
	sram, _ := ds.Target.Target.AddressSpace("sram")
	ctrl.SeedMemory(sram.ID, 0x8FE, []byte{0xAA, 0xBB})

	// Segment ends at 0x8FF; ask for 4 bytes starting at 0x8FE, 2 bytes
	// past the end. Within tolerance, so it's a silent E01, not
	// truncated success data.
	data, err, silent := ds.readSpan(context.Background(), sram, 0x8FE, 4)
	if err == nil {
		t.Fatalf("readSpan: expected a silent E01 for a within-tolerance overshoot, got data=% x", data)
	}
	if !silent {
		t.Fatalf("readSpan: expected the within-tolerance overshoot to be silent, got err=%v silent=%v", err, silent)
	}
	if data != nil {
		t.Fatalf("readSpan: expected no data on overshoot, got % x", data)
	}
}

func TestReadSpanLargeOvershootErrors(t *testing.T) {
	ds, _, _ := newTestSession(t, 2)
	sram, _ := ds.Target.Target.AddressSpace("sram")

	_, err, _ := ds.readSpan(context.Background(), sram, 0x8FE, 16)
	if err == nil {
		t.Fatal("expected an error for a large overshoot")
	}
}

func TestWriteSpanRejectsUnmappedTail(t *testing.T) {
	ds, _, _ := newTestSession(t, 2)
	sram, _ := ds.Target.Target.AddressSpace("sram")

	err := ds.writeSpan(context.Background(), sram, 0x8FE, []byte{1, 2, 3, 4})
	if err == nil {
		t.Fatal("expected an error: M grants no overshoot tolerance")
	}
}

func TestWriteSpanRoundTrip(t *testing.T) {
	ds, ctrl, _ := newTestSession(t, 2)
	sram, _ := ds.Target.Target.AddressSpace("sram")

	if err := ds.writeSpan(context.Background(), sram, 0x20, []byte{9, 8, 7}); err != nil {
		t.Fatalf("writeSpan: %v", err)
	}
	seg := sram.Segments["sram"]
	got, err := ctrl.ReadMemory(context.Background(), sram, &seg, 0x20, 3, nil)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if string(got) != "\x09\x08\x07" {
		t.Fatalf("got = % x", got)
	}
}

func TestReadSpanMultiSegmentUsesAtomicSession(t *testing.T) {
	ds, ctrl, _ := newTestSession(t, 2)
	as := &target.AddressSpaceDescriptor{ID: 9, Key: "split", Segments: map[string]target.SegmentDescriptor{
		"low":  {Key: "low", Type: target.SegmentRAM, AddressRange: target.AddressRange{Start: 0, End: 0x7}, DebugModeAccess: target.MemoryAccess{Readable: true}},
		"high": {Key: "high", Type: target.SegmentRAM, AddressRange: target.AddressRange{Start: 0x8, End: 0xF}, DebugModeAccess: target.MemoryAccess{Readable: true}},
	}}
	ctrl.SeedMemory(as.ID, 0x6, []byte{1, 2, 3, 4})

	data, err, _ := ds.readSpan(context.Background(), as, 0x6, 4)
	if err != nil {
		t.Fatalf("readSpan: %v", err)
	}
	if string(data) != "\x01\x02\x03\x04" {
		t.Fatalf("data = % x, want a read spanning both segments", data)
	}
	if got := ctrl.AtomicSessionCount(); got != 1 {
		t.Fatalf("AtomicSessionCount = %d, want 1 for a read crossing two segments", got)
	}

	// A single-segment read shouldn't take the guard at all.
	sram, _ := ds.Target.Target.AddressSpace("sram")
	if _, err, _ := ds.readSpan(context.Background(), sram, 0x10, 4); err != nil {
		t.Fatalf("readSpan: %v", err)
	}
	if got := ctrl.AtomicSessionCount(); got != 1 {
		t.Fatalf("AtomicSessionCount = %d, want still 1 after a single-segment read", got)
	}
}

func TestReadSpanUnreadableSegmentErrors(t *testing.T) {
	ds, _, _ := newTestSession(t, 2)
	io := &target.AddressSpaceDescriptor{ID: 9, Key: "io", Segments: map[string]target.SegmentDescriptor{
		"io": {Key: "io", Type: target.SegmentIO, AddressRange: target.AddressRange{Start: 0, End: 0xF}},
	}}
	_, err, _ := ds.readSpan(context.Background(), io, 0, 4)
	if err == nil {
		t.Fatal("expected an error for a non-readable segment")
	}
}
