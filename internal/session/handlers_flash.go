package session

import (
	"context"
	"strings"

	"github.com/embedded-tools/gdbrspd/internal/target"
)

func (ds *DebugSession) handleFlashErase(ctx context.Context, payload []byte) error {
	body := strings.TrimPrefix(string(payload), "vFlashErase:")
	addrStr, _, ok := strings.Cut(body, ",")
	if !ok {
		return ds.replyError(1)
	}
	addr, err := parseHexUint(addrStr)
	if err != nil {
		return ds.replyError(1)
	}
	as, native, err := ds.Target.Translator.ToNative(addr)
	if err != nil {
		return ds.replyServiceErr(err, false)
	}
	seg, ok := as.SegmentContaining(native)
	if !ok {
		return ds.replyError(1)
	}

	if !ds.clearedForProgramming {
		ds.clearBreakpointsForProgramming(ctx)
	}
	if err := ds.Controller.EnableProgrammingMode(ctx); err != nil {
		return ds.replyServiceErr(err, false)
	}
	if err := ds.Controller.EraseMemory(ctx, as, &seg); err != nil {
		_ = ds.Controller.DisableProgrammingMode(ctx)
		return ds.replyServiceErr(err, false)
	}
	ds.programAS = as
	ds.programSeg = &seg
	return ds.replyOK()
}

func (ds *DebugSession) handleFlashWrite(ctx context.Context, payload []byte) error {
	body := strings.TrimPrefix(string(payload), "vFlashWrite:")
	addrStr, data, ok := strings.Cut(body, ":")
	if !ok {
		return ds.replyError(1)
	}
	addr, err := parseHexUint(addrStr)
	if err != nil {
		return ds.replyError(1)
	}
	as, native, err := ds.Target.Translator.ToNative(addr)
	if err != nil {
		return ds.replyServiceErr(err, false)
	}
	if ds.programAS == nil {
		if !ds.clearedForProgramming {
			ds.clearBreakpointsForProgramming(ctx)
		}
		seg, ok := as.SegmentContaining(native)
		if !ok {
			return ds.replyError(1)
		}
		ds.programAS = as
		ds.programSeg = &seg
	}
	if ds.programming == nil {
		ds.programming = &ProgrammingSession{}
	}
	if err := ds.programming.Append(native, []byte(data)); err != nil {
		ds.Logger.Printf("session: %v", err)
		return ds.replyError(1)
	}
	return ds.replyOK()
}

func (ds *DebugSession) handleFlashDone(ctx context.Context, payload []byte) error {
	if ds.programming != nil && len(ds.programming.Buffer) > 0 {
		if err := ds.Controller.WriteMemory(ctx, ds.programAS, ds.programSeg, ds.programming.StartAddress, ds.programming.Buffer); err != nil {
			_ = ds.Controller.DisableProgrammingMode(ctx)
			return ds.replyServiceErr(err, false)
		}
	}
	if err := ds.Controller.DisableProgrammingMode(ctx); err != nil {
		return ds.replyServiceErr(err, false)
	}
	if err := ds.Controller.ResetTarget(ctx); err != nil {
		return ds.replyServiceErr(err, false)
	}
	if ds.clearedForProgramming {
		ds.reinstallBreakpoints(ctx)
	}
	ds.programming = nil
	ds.programAS = nil
	ds.programSeg = nil
	ds.clearedForProgramming = false
	return ds.replyOK()
}

// clearBreakpointsForProgramming removes every software breakpoint
// from the target ahead of a flash write, per the "before any
// flash-write operation, the service must clear all software
// breakpoints" — the registry itself keeps its entries so vFlashDone
// can reinstall them against the freshly-programmed image.
func (ds *DebugSession) clearBreakpointsForProgramming(ctx context.Context) {
	for _, bp := range ds.Breakpoints.All() {
		if bp.Kind != target.BreakpointSoftware {
			continue
		}
		if err := ds.Controller.RemoveProgramBreakpoint(ctx, bp); err != nil {
			ds.Logger.Printf("session: clearing breakpoint before programming: %v", err)
		}
	}
	ds.clearedForProgramming = true
}

func (ds *DebugSession) reinstallBreakpoints(ctx context.Context) {
	for _, bp := range ds.Breakpoints.All() {
		if bp.Kind != target.BreakpointSoftware {
			continue
		}
		as := ds.addressSpaceByID(bp.AddressSpaceID)
		if as == nil {
			continue
		}
		fresh, err := ds.Controller.SetProgramBreakpointAnyType(ctx, as, bp.Segment, bp.Address, bp.Size, false)
		if err != nil {
			ds.Logger.Printf("session: reinstalling breakpoint at 0x%x: %v", bp.Address, err)
			continue
		}
		ds.Breakpoints.Insert(fresh)
	}
}

func (ds *DebugSession) addressSpaceByID(id target.AddressSpaceID) *target.AddressSpaceDescriptor {
	for _, as := range ds.Target.Target.AddressSpaces {
		if as.ID == id {
			return as
		}
	}
	return nil
}
