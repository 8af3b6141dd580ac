package session

import (
	"context"
	"testing"
)

func TestReadWriteSingleRegister(t *testing.T) {
	ds, _, out := newTestSession(t, 2)
	ctx := context.Background()

	if err := ds.handleWriteRegister(ctx, []byte("P0=2a")); err != nil {
		t.Fatalf("handleWriteRegister: %v", err)
	}
	if reply := string(<-out); reply != "OK" {
		t.Fatalf("write reply = %q, want OK", reply)
	}

	if err := ds.handleReadRegister(ctx, []byte("p0")); err != nil {
		t.Fatalf("handleReadRegister: %v", err)
	}
	if reply := string(<-out); reply != "2a" {
		t.Fatalf("read reply = %q, want 2a", reply)
	}
}

func TestReadWriteProgramCounterRegister(t *testing.T) {
	ds, _, out := newTestSession(t, 2)
	ctx := context.Background()

	// GDB register 34 is the synthetic PC entry for this AVR layout,
	// routed through SetProgramCounter/ProgramCounter rather than the
	// register file.
	if err := ds.handleWriteRegister(ctx, []byte("P22=10200000")); err != nil {
		t.Fatalf("handleWriteRegister: %v", err)
	}
	if reply := string(<-out); reply != "OK" {
		t.Fatalf("write reply = %q, want OK", reply)
	}

	if err := ds.handleReadRegister(ctx, []byte("p22")); err != nil {
		t.Fatalf("handleReadRegister: %v", err)
	}
	if reply := string(<-out); reply != "10200000" {
		t.Fatalf("read reply = %q, want 10200000", reply)
	}
}

func TestReadWriteStackPointerRegister(t *testing.T) {
	ds, ctrl, out := newTestSession(t, 2)
	ctx := context.Background()

	// GDB register 33 (0x21) is the synthetic SP entry for this AVR
	// layout, routed through SetStackPointer/StackPointer rather than
	// the register file.
	if err := ds.handleWriteRegister(ctx, []byte("P21=3412")); err != nil {
		t.Fatalf("handleWriteRegister: %v", err)
	}
	if reply := string(<-out); reply != "OK" {
		t.Fatalf("write reply = %q, want OK", reply)
	}

	sp, err := ctrl.StackPointer(ctx)
	if err != nil {
		t.Fatalf("StackPointer: %v", err)
	}
	if sp == 0 {
		t.Fatalf("StackPointer = 0, want the written value to have reached the controller's stack pointer, not its register file")
	}

	if err := ds.handleReadRegister(ctx, []byte("p21")); err != nil {
		t.Fatalf("handleReadRegister: %v", err)
	}
	if reply := string(<-out); reply != "3412" {
		t.Fatalf("read reply = %q, want 3412", reply)
	}
}

func TestReadRegistersBulk(t *testing.T) {
	ds, _, out := newTestSession(t, 2)
	ctx := context.Background()

	if err := ds.handleReadRegisters(ctx, []byte("g")); err != nil {
		t.Fatalf("handleReadRegisters: %v", err)
	}
	reply := <-out
	// 32 GPRs (1 byte each) + status (1) + sp (2) + pc (4) = 39 bytes = 78 hex chars.
	if len(reply) != 78 {
		t.Fatalf("reply length = %d, want 78", len(reply))
	}
}
