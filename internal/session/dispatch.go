package session

import (
	"bytes"
	"context"
)

// Kind tags an inbound RSP command packet by the operation it
// requests. classify inspects only as much of the payload as is
// needed to pick a Kind; each handler parses the rest of the payload
// itself.
type Kind int

const (
	KindUnknown Kind = iota
	KindHaltReason
	KindDetach
	KindReadRegisters
	KindWriteRegisters
	KindReadRegister
	KindWriteRegister
	KindReadMemory
	KindWriteMemory
	KindFlashErase
	KindFlashWrite
	KindFlashDone
	KindSetBreakpoint
	KindRemoveBreakpoint
	KindVContQuery
	KindVCont
	KindContinue
	KindStep
	KindQSupported
	KindQAttached
	KindQXferMemoryMap
	KindQRcmd
	KindStartNoAckMode
)

func classify(payload []byte) Kind {
	switch {
	case bytes.Equal(payload, []byte("?")):
		return KindHaltReason
	case len(payload) > 0 && payload[0] == 'D':
		return KindDetach
	case bytes.Equal(payload, []byte("g")):
		return KindReadRegisters
	case len(payload) > 0 && payload[0] == 'G':
		return KindWriteRegisters
	case len(payload) > 0 && payload[0] == 'p':
		return KindReadRegister
	case len(payload) > 0 && payload[0] == 'P':
		return KindWriteRegister
	case len(payload) > 0 && payload[0] == 'm':
		return KindReadMemory
	case len(payload) > 0 && payload[0] == 'M':
		return KindWriteMemory
	case hasPrefix(payload, "vFlashErase:"):
		return KindFlashErase
	case hasPrefix(payload, "vFlashWrite:"):
		return KindFlashWrite
	case bytes.Equal(payload, []byte("vFlashDone")):
		return KindFlashDone
	case hasPrefix(payload, "Z0,") || hasPrefix(payload, "Z1,"):
		return KindSetBreakpoint
	case hasPrefix(payload, "z0,") || hasPrefix(payload, "z1,"):
		return KindRemoveBreakpoint
	case bytes.Equal(payload, []byte("vCont?")):
		return KindVContQuery
	case hasPrefix(payload, "vCont;"):
		return KindVCont
	case bytes.Equal(payload, []byte("c")) || (len(payload) > 0 && payload[0] == 'c'):
		return KindContinue
	case bytes.Equal(payload, []byte("s")) || (len(payload) > 0 && payload[0] == 's'):
		return KindStep
	case hasPrefix(payload, "qSupported"):
		return KindQSupported
	case bytes.Equal(payload, []byte("qAttached")):
		return KindQAttached
	case hasPrefix(payload, "qXfer:memory-map:read:"):
		return KindQXferMemoryMap
	case hasPrefix(payload, "qRcmd,"):
		return KindQRcmd
	case bytes.Equal(payload, []byte("QStartNoAckMode")):
		return KindStartNoAckMode
	default:
		return KindUnknown
	}
}

func hasPrefix(payload []byte, prefix string) bool {
	return bytes.HasPrefix(payload, []byte(prefix))
}

type handlerFunc func(ds *DebugSession, ctx context.Context, payload []byte) error

var handlers = map[Kind]handlerFunc{
	KindHaltReason:       (*DebugSession).handleHaltReason,
	KindDetach:           (*DebugSession).handleDetach,
	KindReadRegisters:    (*DebugSession).handleReadRegisters,
	KindWriteRegisters:   (*DebugSession).handleWriteRegisters,
	KindReadRegister:     (*DebugSession).handleReadRegister,
	KindWriteRegister:    (*DebugSession).handleWriteRegister,
	KindReadMemory:       (*DebugSession).handleReadMemory,
	KindWriteMemory:      (*DebugSession).handleWriteMemory,
	KindFlashErase:       (*DebugSession).handleFlashErase,
	KindFlashWrite:       (*DebugSession).handleFlashWrite,
	KindFlashDone:        (*DebugSession).handleFlashDone,
	KindSetBreakpoint:    (*DebugSession).handleSetBreakpoint,
	KindRemoveBreakpoint: (*DebugSession).handleRemoveBreakpoint,
	KindVContQuery:       (*DebugSession).handleVContQuery,
	KindVCont:            (*DebugSession).handleVCont,
	KindContinue:         (*DebugSession).handleContinue,
	KindStep:             (*DebugSession).handleStep,
	KindQSupported:       (*DebugSession).handleQSupported,
	KindQAttached:        (*DebugSession).handleQAttached,
	KindQXferMemoryMap:   (*DebugSession).handleQXferMemoryMap,
	KindQRcmd:            (*DebugSession).handleQRcmd,
	KindStartNoAckMode:   (*DebugSession).handleStartNoAckMode,
}

// dispatch routes one command payload to its handler, replying with an
// empty packet (GDB's "unsupported" convention) for anything classify
// doesn't recognise.
func (ds *DebugSession) dispatch(ctx context.Context, payload []byte) error {
	k := classify(payload)
	h, ok := handlers[k]
	if !ok {
		return ds.replyEmpty()
	}
	return h(ds, ctx, payload)
}

func (ds *DebugSession) handleStartNoAckMode(ctx context.Context, payload []byte) error {
	if err := ds.replyOK(); err != nil {
		return err
	}
	ds.Conn.SetNoAckMode()
	return nil
}
