package target

import (
	"context"
	"fmt"
	"sync"

	"github.com/embedded-tools/gdbrspd/internal/target/arch"
)

// SimulatedController is an in-memory Controller used by tests in
// this repository in place of a real probe connection. It models
// enough of the real TargetController's behaviour (software-breakpoint
// opcode patching with an original-bytes overlay on reads, a finite
// hardware breakpoint pool, programming-mode gating) to exercise the
// session and handler code without hardware.
type SimulatedController struct {
	mu sync.Mutex

	arch arch.Architecture

	memory map[AddressSpaceID]map[uint64]byte
	regs   map[RegisterID][]byte

	pc, sp uint64
	state  TargetState

	programmingMode bool

	hwCapacity int
	breakpoints map[AddressSpaceID]map[uint64]ProgramBreakpoint

	atomicSessions int
}

// NewSimulatedController creates a simulated target with hwCapacity
// hardware breakpoint units.
func NewSimulatedController(a arch.Architecture, hwCapacity int) *SimulatedController {
	return &SimulatedController{
		arch:        a,
		memory:      make(map[AddressSpaceID]map[uint64]byte),
		regs:        make(map[RegisterID][]byte),
		state:       StateStopped,
		hwCapacity:  hwCapacity,
		breakpoints: make(map[AddressSpaceID]map[uint64]ProgramBreakpoint),
	}
}

// SeedMemory writes data into an address space's simulated backing
// store, for test setup.
func (c *SimulatedController) SeedMemory(asID AddressSpaceID, start uint64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bank(asID)
	for i, b := range data {
		c.memory[asID][start+uint64(i)] = b
	}
}

func (c *SimulatedController) bank(asID AddressSpaceID) map[uint64]byte {
	b, ok := c.memory[asID]
	if !ok {
		b = make(map[uint64]byte)
		c.memory[asID] = b
	}
	return b
}

func (c *SimulatedController) ReadMemory(ctx context.Context, as *AddressSpaceDescriptor, seg *SegmentDescriptor, start uint64, length uint64, excluded []AddressRange) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bank := c.bank(as.ID)
	out := make([]byte, length)
	bpMap := c.breakpoints[as.ID]
	for i := uint64(0); i < length; i++ {
		addr := start + i
		out[i] = bank[addr]
		for _, bp := range bpMap {
			// Overlay original bytes, not the trap opcode, matching
			// the driver-side cache layer's guarantee.
			if bp.Kind == BreakpointSoftware && addr >= bp.Address && addr-bp.Address < uint64(len(bp.OriginalInstruction)) {
				out[i] = bp.OriginalInstruction[addr-bp.Address]
				break
			}
		}
	}
	return out, nil
}

func (c *SimulatedController) WriteMemory(ctx context.Context, as *AddressSpaceDescriptor, seg *SegmentDescriptor, start uint64, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bank := c.bank(as.ID)
	for i, b := range data {
		bank[start+uint64(i)] = b
	}
	return nil
}

func (c *SimulatedController) EraseMemory(ctx context.Context, as *AddressSpaceDescriptor, seg *SegmentDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bank := c.bank(as.ID)
	for addr := seg.AddressRange.Start; addr <= seg.AddressRange.End; addr++ {
		bank[addr] = 0xFF
	}
	return nil
}

func (c *SimulatedController) ReadRegister(ctx context.Context, desc *RegisterDescriptor) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.regs[desc.ID]
	if !ok {
		v = make([]byte, desc.Size)
	}
	return append([]byte(nil), v...), nil
}

func (c *SimulatedController) ReadRegisters(ctx context.Context, descs []*RegisterDescriptor) ([]RegisterValue, error) {
	out := make([]RegisterValue, 0, len(descs))
	for _, d := range descs {
		v, err := c.ReadRegister(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, RegisterValue{Descriptor: d, Value: v})
	}
	return out, nil
}

func (c *SimulatedController) WriteRegister(ctx context.Context, desc *RegisterDescriptor, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[desc.ID] = append([]byte(nil), value...)
	return nil
}

func (c *SimulatedController) ProgramCounter(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pc, nil
}

func (c *SimulatedController) SetProgramCounter(ctx context.Context, addr uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pc = addr
	return nil
}

func (c *SimulatedController) StackPointer(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sp, nil
}

func (c *SimulatedController) SetStackPointer(ctx context.Context, value uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sp = value
	return nil
}

func (c *SimulatedController) StopExecution(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateStopped
	return nil
}

func (c *SimulatedController) ResumeExecution(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateRunning
	return nil
}

// StepExecution advances the PC by one instruction's worth of bytes.
// The simulated target has no real instruction stream, so it simply
// advances by the architecture's breakpoint-instruction size, a
// convenient stand-in for "one instruction" in tests.
func (c *SimulatedController) StepExecution(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pc += uint64(c.arch.BreakpointSize)
	c.state = StateStopped
	return nil
}

func (c *SimulatedController) ResetTarget(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pc = 0
	c.sp = 0
	c.state = StateStopped
	return nil
}

func (c *SimulatedController) State(ctx context.Context) (TargetState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, nil
}

func (c *SimulatedController) EnableProgrammingMode(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programmingMode = true
	return nil
}

func (c *SimulatedController) DisableProgrammingMode(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programmingMode = false
	return nil
}

func (c *SimulatedController) SetProgramBreakpointAnyType(ctx context.Context, as *AddressSpaceDescriptor, seg *SegmentDescriptor, address uint64, size uint64, hardwareOnly bool) (ProgramBreakpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	used := 0
	for _, byAddr := range c.breakpoints {
		for _, bp := range byAddr {
			if bp.Kind == BreakpointHardware {
				used++
			}
		}
	}

	var bp ProgramBreakpoint
	if used < c.hwCapacity {
		bp = ProgramBreakpoint{AddressSpaceID: as.ID, Segment: seg, Address: address, Size: size, Kind: BreakpointHardware}
	} else {
		if hardwareOnly {
			return ProgramBreakpoint{}, fmt.Errorf("target: no hardware breakpoint unit available (%d/%d in use)", used, c.hwCapacity)
		}
		if seg.Type != SegmentFlash || !seg.ProgrammingModeAccess.Writable {
			return ProgramBreakpoint{}, fmt.Errorf("target: cannot place software breakpoint in non-flash or non-writable segment %q", seg.Key)
		}
		bank := c.bank(as.ID)
		original := make([]byte, size)
		for i := uint64(0); i < size; i++ {
			original[i] = bank[address+i]
		}
		opcode := c.arch.BreakpointOpcode
		for i := uint64(0); i < size && int(i) < len(opcode); i++ {
			bank[address+i] = opcode[i]
		}
		bp = ProgramBreakpoint{AddressSpaceID: as.ID, Segment: seg, Address: address, Size: size, Kind: BreakpointSoftware, OriginalInstruction: original}
	}

	if _, ok := c.breakpoints[as.ID]; !ok {
		c.breakpoints[as.ID] = make(map[uint64]ProgramBreakpoint)
	}
	c.breakpoints[as.ID][address] = bp
	return bp, nil
}

func (c *SimulatedController) RemoveProgramBreakpoint(ctx context.Context, bp ProgramBreakpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byAddr, ok := c.breakpoints[bp.AddressSpaceID]
	if !ok {
		return nil
	}
	if existing, ok := byAddr[bp.Address]; ok && existing.Kind == BreakpointSoftware {
		bank := c.bank(bp.AddressSpaceID)
		for i, b := range existing.OriginalInstruction {
			bank[existing.Address+uint64(i)] = b
		}
	}
	delete(byAddr, bp.Address)
	return nil
}

type simulatedSession struct{}

func (simulatedSession) Close() error { return nil }

func (c *SimulatedController) AtomicSession(ctx context.Context) (AtomicSession, error) {
	c.mu.Lock()
	c.atomicSessions++
	c.mu.Unlock()
	return simulatedSession{}, nil
}

// AtomicSessionCount reports how many AtomicSession guards have been
// taken, for tests that assert multi-segment operations serialize
// through one.
func (c *SimulatedController) AtomicSessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.atomicSessions
}

func (c *SimulatedController) Shutdown(ctx context.Context) error {
	return nil
}
