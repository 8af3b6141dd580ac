package session

import (
	"log"
	"net"
	"testing"

	"github.com/embedded-tools/gdbrspd/internal/rsp"
	"github.com/embedded-tools/gdbrspd/internal/target"
)

func testGprKeys() [32]string {
	var keys [32]string
	for i := range keys {
		keys[i] = "gpr" + testItoa(i)
	}
	return keys
}

func testItoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [4]byte
	n := 0
	for i > 0 {
		buf[n] = byte('0' + i%10)
		i /= 10
		n++
	}
	out := make([]byte, n)
	for j := 0; j < n; j++ {
		out[j] = buf[n-1-j]
	}
	return string(out)
}

// newAVRDescriptor builds a small but fully-wired AVR GdbTargetDescriptor:
// a 32KB flash program space, 2KB SRAM with 32 GPRs + status + SP, and a
// 256-byte EEPROM, all with the DebugModeAccess/ProgrammingModeAccess
// flags a real target would advertise.
func newAVRDescriptor(t *testing.T) *target.GdbTargetDescriptor {
	t.Helper()
	program := &target.AddressSpaceDescriptor{ID: 1, Key: "prog", Segments: map[string]target.SegmentDescriptor{
		"flash": {
			Key: "flash", Type: target.SegmentFlash,
			AddressRange:          target.AddressRange{Start: 0, End: 0x7FFF},
			DebugModeAccess:       target.MemoryAccess{Readable: true},
			ProgrammingModeAccess: target.MemoryAccess{Readable: true, Writable: true},
			PageSize:              128,
		},
	}}
	sram := &target.AddressSpaceDescriptor{ID: 2, Key: "sram", Segments: map[string]target.SegmentDescriptor{
		"sram": {
			Key: "sram", Type: target.SegmentRAM,
			AddressRange:   target.AddressRange{Start: 0, End: 0x8FF},
			DebugModeAccess: target.MemoryAccess{Readable: true, Writable: true},
		},
	}}
	eeprom := &target.AddressSpaceDescriptor{ID: 3, Key: "eeprom", Segments: map[string]target.SegmentDescriptor{
		"eeprom": {
			Key: "eeprom", Type: target.SegmentEEPROM,
			AddressRange:   target.AddressRange{Start: 0, End: 0xFF},
			DebugModeAccess: target.MemoryAccess{Readable: true, Writable: true},
		},
	}}

	keys := testGprKeys()
	var regs []*target.RegisterDescriptor
	var id target.RegisterID
	for i, k := range keys {
		id++
		regs = append(regs, &target.RegisterDescriptor{ID: id, Key: k, AddressSpaceKey: "sram", Size: 1, StartAddress: uint64(i)})
	}
	id++
	regs = append(regs, &target.RegisterDescriptor{ID: id, Key: "sreg", AddressSpaceKey: "sram", Size: 1, StartAddress: 0x5F})
	id++
	regs = append(regs, &target.RegisterDescriptor{ID: id, Key: "sp", AddressSpaceKey: "sram", Size: 2, StartAddress: 0x5D})

	td := target.NewTargetDescriptor([]*target.AddressSpaceDescriptor{program, sram, eeprom}, regs)
	gdbTD, err := target.NewAVRGdbTargetDescriptor(td, "prog", "sram", "eeprom", keys, "sreg", "sp")
	if err != nil {
		t.Fatalf("NewAVRGdbTargetDescriptor: %v", err)
	}
	return gdbTD
}

// pipeConnection returns a *rsp.Connection in no-ack mode wired to one
// end of a net.Pipe, and a channel delivering the decoded payload of
// every packet written to it, so handler tests can assert on replies
// without the full ack/retry handshake.
func pipeConnection(t *testing.T) (*rsp.Connection, <-chan []byte) {
	t.Helper()
	local, remote := net.Pipe()
	conn, err := rsp.NewConnection(local, log.New(testWriter{t}, "", 0))
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	conn.SetNoAckMode()

	out := make(chan []byte, 32)
	go func() {
		var dec rsp.Decoder
		buf := make([]byte, 4096)
		for {
			n, err := remote.Read(buf)
			if n > 0 {
				for _, f := range dec.Feed(buf[:n]) {
					if !f.Interrupt {
						out <- f.Payload
					}
				}
			}
			if err != nil {
				close(out)
				return
			}
		}
	}()
	t.Cleanup(func() { conn.Close() })
	return conn, out
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

func newTestSession(t *testing.T, hwCapacity int) (*DebugSession, *target.SimulatedController, <-chan []byte) {
	t.Helper()
	td := newAVRDescriptor(t)
	ctrl := target.NewSimulatedController(td.Arch, hwCapacity)
	conn, out := pipeConnection(t)
	ds := NewDebugSession(conn, td, ctrl, log.New(testWriter{t}, "", 0))
	return ds, ctrl, out
}
