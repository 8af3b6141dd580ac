package monitor

import (
	"context"
	"strings"
	"testing"

	"github.com/embedded-tools/gdbrspd/internal/target"
	"github.com/embedded-tools/gdbrspd/internal/target/arch"
)

type fakeHost struct {
	ctrl target.Controller
	td   *target.GdbTargetDescriptor
}

func (h *fakeHost) TargetController() target.Controller   { return h.ctrl }
func (h *fakeHost) GdbTarget() *target.GdbTargetDescriptor { return h.td }

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	sram := &target.AddressSpaceDescriptor{ID: 1, Key: "sram", Segments: map[string]target.SegmentDescriptor{
		"sram": {Key: "sram", Type: target.SegmentRAM, AddressRange: target.AddressRange{Start: 0, End: 0xFF},
			DebugModeAccess: target.MemoryAccess{Readable: true, Writable: true}},
	}}
	eeprom := &target.AddressSpaceDescriptor{ID: 2, Key: "eeprom", Segments: map[string]target.SegmentDescriptor{
		"eeprom": {Key: "eeprom", Type: target.SegmentEEPROM, AddressRange: target.AddressRange{Start: 0, End: 0x3F},
			DebugModeAccess: target.MemoryAccess{Readable: true, Writable: true}},
	}}

	ctrlReg := &target.RegisterDescriptor{
		ID: 1, Key: "uart0.ctrl", AddressSpaceKey: "sram", StartAddress: 0x10, Size: 1,
		BitFields: map[string]target.BitFieldDescriptor{
			"enable": {Key: "enable", Name: "ENABLE", Mask: 0x01},
		},
	}
	statusReg := &target.RegisterDescriptor{ID: 2, Key: "uart0.status", AddressSpaceKey: "sram", StartAddress: 0x11, Size: 1}

	td := target.NewTargetDescriptor([]*target.AddressSpaceDescriptor{sram, eeprom}, []*target.RegisterDescriptor{ctrlReg, statusReg})
	ctrl := target.NewSimulatedController(arch.ForFamily(arch.AVR), 2)

	gdbTD := &target.GdbTargetDescriptor{Family: arch.AVR, Arch: arch.ForFamily(arch.AVR), Target: td}
	return &fakeHost{ctrl: ctrl, td: gdbTD}
}

func TestDispatchHelp(t *testing.T) {
	h := newFakeHost(t)
	out, err := Dispatch(context.Background(), h, []string{"help"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "read-regs") {
		t.Fatalf("help output = %q, want it to list commands", out)
	}
}

func TestDispatchEmptyFieldsDefaultsToHelp(t *testing.T) {
	h := newFakeHost(t)
	out, err := Dispatch(context.Background(), h, nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "available commands") {
		t.Fatalf("empty-args output = %q, want help text", out)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	h := newFakeHost(t)
	if _, err := Dispatch(context.Background(), h, []string{"bogus"}); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestDispatchVersionMachine(t *testing.T) {
	h := newFakeHost(t)
	out, err := Dispatch(context.Background(), h, []string{"version", "machine"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if strings.TrimSpace(out) != "avr" && strings.TrimSpace(out) != "AVR" {
		t.Fatalf("version machine output = %q", out)
	}
}

func TestDispatchEEPROMFill(t *testing.T) {
	h := newFakeHost(t)
	out, err := Dispatch(context.Background(), h, []string{"eeprom", "fill", "aa"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "filled 64 EEPROM bytes") {
		t.Fatalf("eeprom fill output = %q", out)
	}
	eeprom, _ := h.td.Target.AddressSpace("eeprom")
	seg := eeprom.Segments["eeprom"]
	data, err := h.ctrl.ReadMemory(context.Background(), eeprom, &seg, 0, 4, nil)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	for _, b := range data {
		if b != 0xAA {
			t.Fatalf("data = % x, want all 0xAA", data)
		}
	}
}

func TestDispatchReadRegsByPrefix(t *testing.T) {
	h := newFakeHost(t)
	out, err := Dispatch(context.Background(), h, []string{"read-regs", "uart0"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "uart0.ctrl") || !strings.Contains(out, "uart0.status") {
		t.Fatalf("read-regs output = %q, want both registers listed", out)
	}
}

func TestDispatchReadRegsNoMatch(t *testing.T) {
	h := newFakeHost(t)
	if _, err := Dispatch(context.Background(), h, []string{"read-regs", "nope"}); err == nil {
		t.Fatal("expected an error when no register matches the path")
	}
}

func TestDispatchWriteRegBitField(t *testing.T) {
	h := newFakeHost(t)
	ctx := context.Background()

	out, err := Dispatch(ctx, h, []string{"write-reg", "uart0.ctrl", "enable", "0b1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "uart0.ctrl.enable = 0b1") {
		t.Fatalf("write-reg output = %q", out)
	}

	reg, _ := h.td.Target.RegisterByKey("sram.uart0.ctrl")
	data, err := h.ctrl.ReadRegister(ctx, reg)
	if err != nil {
		t.Fatalf("ReadRegister: %v", err)
	}
	if data[0]&0x01 != 0x01 {
		t.Fatalf("ctrl register = 0x%x, want the enable bit set", data[0])
	}
}

func TestDispatchReset(t *testing.T) {
	h := newFakeHost(t)
	out, err := Dispatch(context.Background(), h, []string{"reset"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "target reset") || !strings.Contains(out, "PC=0x") {
		t.Fatalf("reset output = %q, want a reset confirmation with the PC", out)
	}
	state, err := h.ctrl.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state != target.StateStopped {
		t.Fatalf("target state = %v, want Stopped after monitor reset", state)
	}
}

func TestDispatchGenerateSVD(t *testing.T) {
	h := newFakeHost(t)
	out, err := Dispatch(context.Background(), h, []string{"generate-svd"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "<device>") || !strings.Contains(out, "uart0.ctrl") {
		t.Fatalf("generate-svd output = %q", out)
	}
}

func TestDispatchInsight(t *testing.T) {
	h := newFakeHost(t)
	out, err := Dispatch(context.Background(), h, []string{"insight"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out == "" {
		t.Fatal("expected a non-empty acknowledgement")
	}
}
