package rsp

import "errors"

// DisconnectedError is returned when the remote end closed the
// connection (EOF, EPIPE, ECONNRESET).
type DisconnectedError struct{ Err error }

func (e *DisconnectedError) Error() string { return "client disconnected: " + e.Err.Error() }
func (e *DisconnectedError) Unwrap() error { return e.Err }

// CommunicationError wraps any I/O failure that is not a clean
// disconnect, including an acknowledgement retry budget exhausted.
type CommunicationError struct{ Err error }

func (e *CommunicationError) Error() string { return "communication error: " + e.Err.Error() }
func (e *CommunicationError) Unwrap() error { return e.Err }

// InterruptedError is returned from a blocking read when the
// connection's interrupt notifier fired. It carries no payload: the
// caller is expected to treat it as a no-op and re-enter its loop.
var InterruptedError = errors.New("rsp: read interrupted")

// ErrTooManyRetransmits is the terminal CommunicationError cause when
// ten acknowledgement cycles have failed in a row.
var ErrTooManyRetransmits = errors.New("rsp: exceeded retransmission budget")
