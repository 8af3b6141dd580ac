package session

import (
	"context"
	"strings"
)

func parseBreakpointArgs(payload []byte) (addr, size uint64, err error) {
	body := string(payload[3:]) // strip "Z0," / "Z1," / "z0," / "z1,"
	addrStr, sizeStr, ok := strings.Cut(body, ",")
	if !ok {
		return 0, 0, errUnmappedMemory
	}
	addr, err = parseHexUint(addrStr)
	if err != nil {
		return 0, 0, err
	}
	size, err = parseHexUint(sizeStr)
	return addr, size, err
}

func (ds *DebugSession) handleSetBreakpoint(ctx context.Context, payload []byte) error {
	hardwareOnly := payload[1] == '1'
	addr, size, err := parseBreakpointArgs(payload)
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
	bp, err := ds.Controller.SetProgramBreakpointAnyType(ctx, as, &seg, native, size, hardwareOnly)
	if err != nil {
		return ds.replyServiceErr(err, false)
	}
	ds.Breakpoints.Insert(bp)
	return ds.replyOK()
}

// handleRemoveBreakpoint always replies OK, even for an address with
// no registered breakpoint.
func (ds *DebugSession) handleRemoveBreakpoint(ctx context.Context, payload []byte) error {
	addr, _, err := parseBreakpointArgs(payload)
	if err != nil {
		return ds.replyError(1)
	}
	as, native, err := ds.Target.Translator.ToNative(addr)
	if err != nil {
		return ds.replyServiceErr(err, false)
	}
	if bp, ok := ds.Breakpoints.Find(as.ID, native); ok {
		if err := ds.Controller.RemoveProgramBreakpoint(ctx, bp); err != nil {
			return ds.replyServiceErr(err, false)
		}
		ds.Breakpoints.RemoveByAddress(as.ID, native)
	}
	return ds.replyOK()
}
