package session

import (
	"context"

	"github.com/embedded-tools/gdbrspd/internal/target"
)

// RangeSteppingSession drives GDB's "vCont;r,start,end" range-stepping
// request: keep single-stepping (or skipping ahead with a temporary
// breakpoint where safe) as long as the program counter stays inside
// [Start,End). Intercepted records the addresses a
// temporary breakpoint is currently installed at, so an interrupt or
// error mid-run can still clean them up.
type RangeSteppingSession struct {
	AddressSpace *target.AddressSpaceDescriptor
	Segment      *target.SegmentDescriptor
	Start, End   uint64
	Intercepted  map[uint64]target.ProgramBreakpoint
}

// runRangeStep performs the range-stepping loop
// §4.7:
//  1. Stop if the program counter has left [Start,End).
//  2. Decode the instruction at the program counter.
//  3. If it cannot itself transfer control out of the range within one
//     step, place a temporary breakpoint just past it and resume,
//     instead of single-stepping — this lets straight-line code run at
//     full speed.
//  4. Otherwise single-step, since skipping ahead could jump over the
//     range's exit condition.
//
// It returns once the target has left the range, hit an error, or ctx
// is cancelled by a client interrupt.
func (ds *DebugSession) runRangeStep(ctx context.Context) stopResult {
	rs := ds.rangeStep
	for {
		if ctx.Err() != nil {
			ds.cleanupRangeStepBreakpoints(context.Background())
			_ = ds.Controller.StopExecution(context.Background())
			return stopResult{reason: stopReplySIGINT}
		}

		pc, err := ds.Controller.ProgramCounter(ctx)
		if err != nil {
			return stopResult{err: err}
		}
		if pc < rs.Start || pc >= rs.End {
			return stopResult{reason: stopReplyTrap}
		}

		instr, err := ds.Controller.ReadMemory(ctx, rs.AddressSpace, rs.Segment, pc, 4, nil)
		if err != nil {
			return stopResult{err: err}
		}
		safe, size := ds.Target.Arch.IsSafeInstruction(instr)

		next := pc + uint64(size)
		if safe && size > 0 && next < rs.End {
			if res, done := ds.rangeStepSkip(ctx, next); done {
				return res
			}
			continue
		}

		if err := ds.Controller.StepExecution(ctx); err != nil {
			return stopResult{err: err}
		}
	}
}

// rangeStepSkip places a temporary breakpoint at next, resumes, and
// waits for it to be hit (or for the run to be interrupted/fail). done
// is true when the caller should stop the whole range-step loop and
// return res; false means "keep looping".
func (ds *DebugSession) rangeStepSkip(ctx context.Context, next uint64) (res stopResult, done bool) {
	rs := ds.rangeStep
	bp, err := ds.Controller.SetProgramBreakpointAnyType(ctx, rs.AddressSpace, rs.Segment, next, uint64(ds.Target.Arch.BreakpointSize), false)
	if err != nil {
		return stopResult{err: err}, true
	}
	rs.Intercepted[bp.Address] = bp
	defer func() {
		_ = ds.Controller.RemoveProgramBreakpoint(context.Background(), bp)
		delete(rs.Intercepted, bp.Address)
	}()

	if err := ds.Controller.ResumeExecution(ctx); err != nil {
		return stopResult{err: err}, true
	}
	sub := ds.pollUntilStopped(ctx)
	if sub.err != nil {
		return sub, true
	}
	if sub.reason == stopReplySIGINT {
		return sub, true
	}
	return stopResult{}, false
}

// cleanupRangeStepBreakpoints removes any temporary breakpoints still
// installed when a range-step is abandoned mid-flight.
func (ds *DebugSession) cleanupRangeStepBreakpoints(ctx context.Context) {
	rs := ds.rangeStep
	if rs == nil {
		return
	}
	for _, bp := range rs.Intercepted {
		_ = ds.Controller.RemoveProgramBreakpoint(ctx, bp)
	}
}
