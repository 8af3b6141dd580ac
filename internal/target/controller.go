package target

import (
	"context"
	"errors"
	"time"
)

// DefaultCallTimeout is the bound WithDefaultTimeout attaches to a
// context. A Controller call is bounded only by the deadline of the
// context it is given; the session handlers pass their context
// through unchanged, so their calls carry no 10s ceiling.
const DefaultCallTimeout = 10 * time.Second

// WithDefaultTimeout returns a derived context carrying
// DefaultCallTimeout, for callers that don't need a different bound.
func WithDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultCallTimeout)
}

// ErrCallTimedOut is the sentinel a Controller implementation should
// wrap when a call exceeds its deadline; handlers convert it to an
// RSP E01 response.
var ErrCallTimedOut = errors.New("target: controller call timed out")

// TargetState is the coarse run state the TargetController reports.
type TargetState int

const (
	StateUnknown TargetState = iota
	StateRunning
	StateStopped
)

func (s TargetState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// BreakpointKind distinguishes a hardware breakpoint (a fixed unit in
// the target's debug logic) from a software one (an opcode replaced
// in program memory).
type BreakpointKind int

const (
	BreakpointSoftware BreakpointKind = iota
	BreakpointHardware
)

func (k BreakpointKind) String() string {
	if k == BreakpointHardware {
		return "hardware"
	}
	return "software"
}

// ProgramBreakpoint is an installed breakpoint as reported by the
// TargetController: which address space and segment it lives in, its
// address and trap size, and, for software breakpoints, the
// instruction bytes it replaced.
type ProgramBreakpoint struct {
	AddressSpaceID      AddressSpaceID
	Segment             *SegmentDescriptor
	Address             uint64
	Size                uint64
	Kind                BreakpointKind
	OriginalInstruction []byte // nil for hardware breakpoints
}

// RegisterValue pairs a register descriptor with bytes read from it,
// the shape readRegisters returns.
type RegisterValue struct {
	Descriptor *RegisterDescriptor
	Value      []byte
}

// AtomicSession is a reentrant guard held for the duration of a
// multi-call sequence that must not interleave with other callers of
// the same Controller (e.g. a multi-segment `m` read).
type AtomicSession interface {
	Close() error
}

// Controller is the synchronous façade this repository consumes to
// drive a physical target. Every method may block for tens of
// milliseconds and is bounded by the context's deadline; callers
// should derive one with WithDefaultTimeout unless a different bound
// is required.
type Controller interface {
	ReadMemory(ctx context.Context, as *AddressSpaceDescriptor, seg *SegmentDescriptor, start uint64, length uint64, excluded []AddressRange) ([]byte, error)
	WriteMemory(ctx context.Context, as *AddressSpaceDescriptor, seg *SegmentDescriptor, start uint64, data []byte) error
	EraseMemory(ctx context.Context, as *AddressSpaceDescriptor, seg *SegmentDescriptor) error

	ReadRegister(ctx context.Context, desc *RegisterDescriptor) ([]byte, error)
	ReadRegisters(ctx context.Context, descs []*RegisterDescriptor) ([]RegisterValue, error)
	WriteRegister(ctx context.Context, desc *RegisterDescriptor, value []byte) error

	ProgramCounter(ctx context.Context) (uint64, error)
	SetProgramCounter(ctx context.Context, addr uint64) error
	StackPointer(ctx context.Context) (uint64, error)
	SetStackPointer(ctx context.Context, value uint64) error

	StopExecution(ctx context.Context) error
	ResumeExecution(ctx context.Context) error
	StepExecution(ctx context.Context) error
	ResetTarget(ctx context.Context) error
	State(ctx context.Context) (TargetState, error)

	EnableProgrammingMode(ctx context.Context) error
	DisableProgrammingMode(ctx context.Context) error

	SetProgramBreakpointAnyType(ctx context.Context, as *AddressSpaceDescriptor, seg *SegmentDescriptor, address uint64, size uint64, hardwareOnly bool) (ProgramBreakpoint, error)
	RemoveProgramBreakpoint(ctx context.Context, bp ProgramBreakpoint) error

	AtomicSession(ctx context.Context) (AtomicSession, error)
	Shutdown(ctx context.Context) error
}
