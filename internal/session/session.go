// Package session implements one GDB client's view of a debug target:
// the per-connection DebugSession state machine, its command dispatch,
// and the vFlash* and range-stepping sub-sessions that run as
// separate, at-most-one-active entities. Commands are dispatched
// through a tagged Kind plus a handler map, in the style of Orizon's
// gdbserver packet switch.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/embedded-tools/gdbrspd/internal/breakpoint"
	"github.com/embedded-tools/gdbrspd/internal/rsp"
	"github.com/embedded-tools/gdbrspd/internal/target"
)

// errDetached is returned by handleDetach to tell Serve to end the
// session cleanly after the "OK" reply has already been sent.
var errDetached = errors.New("session: client detached")

const (
	stopReplyTrap   = "T05"
	stopReplySIGINT = "T02"
	// gdbPacketSize is the PacketSize qSupported advertises; packets
	// larger than this are never produced by this server and the
	// client is expected to never send one either.
	gdbPacketSize = 4096
)

// DebugSession is the per-connection state a GDB client drives: the
// RSP wire connection, the family-specific target adapter, the target
// service it issues blocking calls to, the external breakpoint
// registry, and the two optional sub-sessions (programming,
// range-stepping) that are active for at most one in-flight operation
// at a time.
type DebugSession struct {
	Conn       *rsp.Connection
	Target     *target.GdbTargetDescriptor
	Controller target.Controller
	Breakpoints *breakpoint.Registry
	Logger     *log.Logger

	programming *ProgrammingSession
	programAS   *target.AddressSpaceDescriptor
	programSeg  *target.SegmentDescriptor
	rangeStep   *RangeSteppingSession

	// stopEvents delivers the outcome of a background continue/step/
	// range-step operation to the Serve loop; runCancel requests that
	// operation stop early (an interrupt arrived mid-run).
	stopEvents chan stopResult
	runCancel  context.CancelFunc

	// waitingForBreak is true while a continue/step/range-step is
	// outstanding: the session has told the target to run and is
	// waiting for a stop event before it may reply.
	waitingForBreak bool
	// pendingInterrupt records a 0x03 byte received while the target
	// was already considered stopped (e.g. between handler calls); it
	// is honoured the next time the client asks the target to run.
	pendingInterrupt bool

	// clearedForProgramming remembers that software breakpoints were
	// removed from the target ahead of a flash write, so vFlashDone
	// knows to reinstall them.
	clearedForProgramming bool

	memoryMapXML string
}

// NewDebugSession builds a DebugSession over an already-accepted
// connection.
func NewDebugSession(conn *rsp.Connection, td *target.GdbTargetDescriptor, ctrl target.Controller, logger *log.Logger) *DebugSession {
	if logger == nil {
		logger = log.Default()
	}
	return &DebugSession{
		Conn:        conn,
		Target:      td,
		Controller:  ctrl,
		Breakpoints: breakpoint.New(),
		Logger:      logger,
	}
}

// Serve runs the session's packet loop until the client disconnects,
// a non-recoverable communication error occurs, or ctx is cancelled.
// It never returns rsp.InterruptedError (a woken read, from an
// external Interrupt call or a background run delivering its result):
// that case loops back around, and a cancelled ctx then ends the loop.
func (ds *DebugSession) Serve(ctx context.Context) error {
	defer ds.Conn.Close()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		frames, err := ds.Conn.ReadPackets()
		if err != nil {
			if errors.Is(err, rsp.InterruptedError) {
				// Either a genuine external interrupt() call (e.g. the
				// server shutting the session down) or a background
				// run operation waking us up to deliver its result.
				if ds.waitingForBreak {
					select {
					case res := <-ds.stopEvents:
						if serr := ds.onStopEvent(res); serr != nil {
							return serr
						}
					default:
					}
				}
				continue
			}
			var disc *rsp.DisconnectedError
			if errors.As(err, &disc) {
				return nil
			}
			return err
		}
		for _, f := range frames {
			if f.Interrupt {
				ds.handleInterrupt(ctx)
				continue
			}
			var notSupported *NotSupportedError
			if derr := ds.dispatch(ctx, f.Payload); derr != nil {
				if errors.Is(derr, errDetached) {
					return nil
				}
				if errors.As(derr, &notSupported) {
					return derr
				}
				ds.Logger.Printf("session: %v", derr)
			}
		}
	}
}

func (ds *DebugSession) replyOK() error {
	return ds.Conn.WritePacket([]byte("OK"))
}

func (ds *DebugSession) replyError(code byte) error {
	return ds.Conn.WritePacket([]byte(fmt.Sprintf("E%02x", code)))
}

func (ds *DebugSession) replyEmpty() error {
	return ds.Conn.WritePacket(nil)
}

func (ds *DebugSession) replyText(s string) error {
	return ds.Conn.WritePacket([]byte(s))
}

// replyServiceErr converts any TargetController failure into the
// standard E01 response, logging it unless it is the routine
// overshoot case handlers pass silent=true for (the tolerated
// `m` overshoot).
func (ds *DebugSession) replyServiceErr(err error, silent bool) error {
	svcErr := &ServiceError{Err: err}
	if !silent {
		ds.Logger.Printf("session: %v", svcErr)
	}
	return ds.replyError(1)
}

// TargetController and GdbTarget implement internal/monitor.Host,
// giving qRcmd commands the same access to the target a regular
// handler has without internal/monitor importing this package.
func (ds *DebugSession) TargetController() target.Controller   { return ds.Controller }
func (ds *DebugSession) GdbTarget() *target.GdbTargetDescriptor { return ds.Target }
