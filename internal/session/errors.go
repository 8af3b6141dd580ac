package session

import "errors"

// NotSupportedError is raised when qSupported's handshake fails
// (neither swbreak+ nor hwbreak+ was advertised); the packet loop
// treats it the same as a disconnect and ends the session, per
// a ClientNotSupported error kind.
type NotSupportedError struct{ Err error }

func (e *NotSupportedError) Error() string { return "client not supported: " + e.Err.Error() }
func (e *NotSupportedError) Unwrap() error { return e.Err }

// InvalidOptionError is a monitor-command (qRcmd) argument error. It
// is reported as human text in a response packet; the connection
// stays open.
type InvalidOptionError struct{ Err error }

func (e *InvalidOptionError) Error() string { return "invalid option: " + e.Err.Error() }
func (e *InvalidOptionError) Unwrap() error { return e.Err }

// ServiceError wraps any error returned by the TargetController.
// Handlers convert it to an RSP E01 response and keep the connection
// open, matching a TargetServiceError kind.
type ServiceError struct{ Err error }

func (e *ServiceError) Error() string { return "target service error: " + e.Err.Error() }
func (e *ServiceError) Unwrap() error { return e.Err }

// errUnmappedMemory is returned internally by the memory handlers when
// a requested range isn't (fully) covered by any known segment.
var errUnmappedMemory = errors.New("session: address range not accessible")
