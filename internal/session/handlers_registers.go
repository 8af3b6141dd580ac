package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/embedded-tools/gdbrspd/internal/target"
	"github.com/embedded-tools/gdbrspd/internal/target/arch"
)

func gdbRegNum(n int) target.GdbRegisterNumber { return target.GdbRegisterNumber(n) }

// readGdbRegister reads one GDB register map entry, routing PC and SP
// (when mapped) through the dedicated ProgramCounter/StackPointer
// calls and everything else through ReadRegister, then pads the result
// out to the width GDB expects for that register number.
func (ds *DebugSession) readGdbRegister(ctx context.Context, n int) ([]byte, error) {
	entry, ok := ds.Target.GdbRegister(gdbRegNum(n))
	if !ok {
		return nil, fmt.Errorf("session: no such gdb register %d", n)
	}
	if entry.IsPC {
		pc, err := ds.Controller.ProgramCounter(ctx)
		if err != nil {
			return nil, err
		}
		return arch.EncodeRegister(pc, entry.SizeBytes), nil
	}
	if entry.IsSP {
		sp, err := ds.Controller.StackPointer(ctx)
		if err != nil {
			return nil, err
		}
		return arch.EncodeRegister(sp, entry.SizeBytes), nil
	}
	raw, err := ds.Controller.ReadRegister(ctx, entry.Register)
	if err != nil {
		return nil, err
	}
	if len(raw) < entry.SizeBytes {
		padded := make([]byte, entry.SizeBytes)
		copy(padded, raw)
		raw = padded
	}
	return raw[:entry.SizeBytes], nil
}

func (ds *DebugSession) writeGdbRegister(ctx context.Context, n int, value []byte) error {
	entry, ok := ds.Target.GdbRegister(gdbRegNum(n))
	if !ok {
		return fmt.Errorf("session: no such gdb register %d", n)
	}
	if entry.IsPC {
		return ds.Controller.SetProgramCounter(ctx, arch.DecodeRegister(value))
	}
	if entry.IsSP {
		return ds.Controller.SetStackPointer(ctx, arch.DecodeRegister(value))
	}
	return ds.Controller.WriteRegister(ctx, entry.Register, value)
}

func (ds *DebugSession) handleReadRegisters(ctx context.Context, payload []byte) error {
	var sb strings.Builder
	for n := 0; n < len(ds.Target.RegisterMap); n++ {
		v, err := ds.readGdbRegister(ctx, n)
		if err != nil {
			return ds.replyServiceErr(err, false)
		}
		sb.WriteString(encodeHex(v))
	}
	return ds.replyText(sb.String())
}

func (ds *DebugSession) handleWriteRegisters(ctx context.Context, payload []byte) error {
	data, err := decodeHex(string(payload[1:]))
	if err != nil {
		return ds.replyError(1)
	}
	off := 0
	for n := 0; n < len(ds.Target.RegisterMap); n++ {
		entry, ok := ds.Target.GdbRegister(gdbRegNum(n))
		if !ok {
			return ds.replyError(1)
		}
		if off+entry.SizeBytes > len(data) {
			return ds.replyError(1)
		}
		if err := ds.writeGdbRegister(ctx, n, data[off:off+entry.SizeBytes]); err != nil {
			return ds.replyServiceErr(err, false)
		}
		off += entry.SizeBytes
	}
	return ds.replyOK()
}

func (ds *DebugSession) handleReadRegister(ctx context.Context, payload []byte) error {
	n, err := parseHexUint(string(payload[1:]))
	if err != nil {
		return ds.replyError(1)
	}
	v, err := ds.readGdbRegister(ctx, int(n))
	if err != nil {
		return ds.replyServiceErr(err, false)
	}
	return ds.replyText(encodeHex(v))
}

func (ds *DebugSession) handleWriteRegister(ctx context.Context, payload []byte) error {
	body := string(payload[1:])
	parts := strings.SplitN(body, "=", 2)
	if len(parts) != 2 {
		return ds.replyError(1)
	}
	n, err := parseHexUint(parts[0])
	if err != nil {
		return ds.replyError(1)
	}
	value, err := decodeHex(parts[1])
	if err != nil {
		return ds.replyError(1)
	}
	if err := ds.writeGdbRegister(ctx, int(n), value); err != nil {
		return ds.replyServiceErr(err, false)
	}
	return ds.replyOK()
}
