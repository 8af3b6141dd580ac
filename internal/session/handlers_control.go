package session

import (
	"context"
	"strings"
	"time"

	"github.com/embedded-tools/gdbrspd/internal/target"
)

// runKind tags which background operation runLoop is performing.
type runKind int

const (
	runKindContinue runKind = iota
	runKindStep
	runKindRangeStep
)

// stopResult is what a background run operation reports back to the
// Serve loop once the target has stopped (or the operation failed).
type stopResult struct {
	reason  string // one of stopReplyTrap, stopReplySIGINT
	err     error
	noReply bool // suppress any reply; the client gets nothing
}

const pollInterval = 10 * time.Millisecond

func (ds *DebugSession) handleHaltReason(ctx context.Context, payload []byte) error {
	return ds.replyText(stopReplyTrap)
}

func (ds *DebugSession) handleDetach(ctx context.Context, payload []byte) error {
	if err := ds.replyOK(); err != nil {
		return err
	}
	return errDetached
}

// handleInterrupt processes a synthetic 0x03 frame. Any
// error here is swallowed: the client gets no reply either way, only
// (eventually) a stop-reply once the target has actually halted.
func (ds *DebugSession) handleInterrupt(ctx context.Context) {
	if ds.waitingForBreak {
		if ds.runCancel != nil {
			ds.runCancel()
		}
		return
	}
	ds.pendingInterrupt = true
}

// beginRun starts a background continue or step operation. If an
// interrupt arrived while the target was already considered stopped,
// it is honoured immediately instead of resuming.
func (ds *DebugSession) beginRun(ctx context.Context, kind runKind) error {
	if ds.pendingInterrupt {
		ds.pendingInterrupt = false
		return ds.replyText(stopReplySIGINT)
	}
	runCtx, cancel := context.WithCancel(ctx)
	ds.runCancel = cancel
	ds.waitingForBreak = true
	if ds.stopEvents == nil {
		ds.stopEvents = make(chan stopResult, 1)
	}
	go ds.runLoop(runCtx, kind)
	return nil
}

func (ds *DebugSession) runLoop(ctx context.Context, kind runKind) {
	var res stopResult
	switch kind {
	case runKindStep:
		if err := ds.Controller.StepExecution(ctx); err != nil {
			res.err = err
		} else {
			res.reason = stopReplyTrap
		}
	case runKindContinue:
		if err := ds.Controller.ResumeExecution(ctx); err != nil {
			res.err = err
		} else {
			res = ds.pollUntilStopped(ctx)
		}
	case runKindRangeStep:
		res = ds.runRangeStep(ctx)
	}
	ds.stopEvents <- res
	ds.Conn.Interrupt()
}

// pollUntilStopped waits for the target to report StateStopped, or for
// ctx to be cancelled (an interrupt requested mid-run), whichever
// comes first.
func (ds *DebugSession) pollUntilStopped(ctx context.Context) stopResult {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := ds.Controller.StopExecution(context.Background()); err != nil {
				return stopResult{noReply: true}
			}
			return stopResult{reason: stopReplySIGINT}
		case <-ticker.C:
			state, err := ds.Controller.State(ctx)
			if err != nil {
				return stopResult{err: err}
			}
			if state == target.StateStopped {
				return stopResult{reason: stopReplyTrap}
			}
		}
	}
}

// onStopEvent is called from Serve once a background run operation has
// signalled completion via the stopEvents channel.
func (ds *DebugSession) onStopEvent(res stopResult) error {
	ds.waitingForBreak = false
	ds.runCancel = nil
	ds.rangeStep = nil
	if res.noReply {
		return nil
	}
	if res.err != nil {
		return ds.replyServiceErr(res.err, false)
	}
	return ds.replyText(res.reason)
}

func (ds *DebugSession) handleContinue(ctx context.Context, payload []byte) error {
	if len(payload) > 1 {
		if addr, err := parseHexUint(string(payload[1:])); err == nil {
			if err := ds.Controller.SetProgramCounter(ctx, addr); err != nil {
				return ds.replyServiceErr(err, false)
			}
		}
	}
	return ds.beginRun(ctx, runKindContinue)
}

func (ds *DebugSession) handleStep(ctx context.Context, payload []byte) error {
	if len(payload) > 1 {
		if addr, err := parseHexUint(string(payload[1:])); err == nil {
			if err := ds.Controller.SetProgramCounter(ctx, addr); err != nil {
				return ds.replyServiceErr(err, false)
			}
		}
	}
	return ds.beginRun(ctx, runKindStep)
}

func (ds *DebugSession) handleVContQuery(ctx context.Context, payload []byte) error {
	return ds.replyText("vCont;c;C;s;S;r")
}

func (ds *DebugSession) handleVCont(ctx context.Context, payload []byte) error {
	action := strings.TrimPrefix(string(payload), "vCont;")
	if action == "" {
		return ds.replyEmpty()
	}
	switch action[0] {
	case 'c', 'C':
		return ds.beginRun(ctx, runKindContinue)
	case 's', 'S':
		return ds.beginRun(ctx, runKindStep)
	case 'r':
		return ds.handleRangeStepRequest(ctx, action)
	default:
		return ds.replyEmpty()
	}
}

// handleRangeStepRequest parses "r,start,end[:threadid]" and starts a
// RangeSteppingSession.
func (ds *DebugSession) handleRangeStepRequest(ctx context.Context, action string) error {
	body := strings.TrimPrefix(action, "r,")
	body = strings.SplitN(body, ":", 2)[0]
	parts := strings.SplitN(body, ",", 2)
	if len(parts) != 2 {
		return ds.replyError(1)
	}
	startGdb, err := parseHexUint(parts[0])
	if err != nil {
		return ds.replyError(1)
	}
	endGdb, err := parseHexUint(parts[1])
	if err != nil {
		return ds.replyError(1)
	}

	if ds.pendingInterrupt {
		ds.pendingInterrupt = false
		return ds.replyText(stopReplySIGINT)
	}

	as, nativeStart, err := ds.Target.Translator.ToNative(startGdb)
	if err != nil {
		return ds.replyServiceErr(err, false)
	}
	_, nativeEnd, err := ds.Target.Translator.ToNative(endGdb)
	if err != nil {
		return ds.replyServiceErr(err, false)
	}
	seg, ok := as.SegmentContaining(nativeStart)
	if !ok {
		return ds.replyError(1)
	}

	ds.rangeStep = &RangeSteppingSession{
		AddressSpace: as,
		Segment:      &seg,
		Start:        nativeStart,
		End:          nativeEnd,
		Intercepted:  make(map[uint64]target.ProgramBreakpoint),
	}

	runCtx, cancel := context.WithCancel(ctx)
	ds.runCancel = cancel
	ds.waitingForBreak = true
	if ds.stopEvents == nil {
		ds.stopEvents = make(chan stopResult, 1)
	}
	go ds.runLoop(runCtx, runKindRangeStep)
	return nil
}
