// Package gdbserver implements the TCP accept loop that binds an
// internal/session.DebugSession to a real network listener.
//
// Grounded on the "accept one GDB client connection at a
// time; a second connection attempt waits until the first disconnects"
// and on golang-debug's ogleproxy (ogle/cmd/ogleproxy/main.go), which
// serves exactly one connection for the lifetime of the process —
// generalized here into a loop so the daemon outlives any single GDB
// session instead of exiting when the client disconnects.
package gdbserver

import (
	"context"
	"errors"
	"log"
	"net"

	"github.com/embedded-tools/gdbrspd/internal/rsp"
	"github.com/embedded-tools/gdbrspd/internal/session"
	"github.com/embedded-tools/gdbrspd/internal/target"
)

// Server accepts GDB RSP connections on a net.Listener and serves them
// one at a time against a single target, matching the
// single-threaded-cooperative session model.
type Server struct {
	Listener   net.Listener
	Target     *target.GdbTargetDescriptor
	Controller target.Controller
	Logger     *log.Logger
}

// New builds a Server bound to ln, serving td/ctrl. logger may be nil,
// in which case log.Default() is used.
func New(ln net.Listener, td *target.GdbTargetDescriptor, ctrl target.Controller, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Listener: ln, Target: td, Controller: ctrl, Logger: logger}
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed, handling exactly one DebugSession at a time: Accept blocks
// again only after the previous session's Serve call returns, matching
// the single-client-at-a-time contract.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Listener.Close()
	}()

	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && !netErr.Temporary() {
				return err
			}
			s.Logger.Printf("gdbserver: accept: %v", err)
			continue
		}
		s.Logger.Printf("gdbserver: accepted connection from %s", conn.RemoteAddr())
		if err := s.serveOne(ctx, conn); err != nil {
			s.Logger.Printf("gdbserver: session ended: %v", err)
		}
	}
}

func (s *Server) serveOne(ctx context.Context, conn net.Conn) error {
	rspConn, err := rsp.NewConnection(conn, s.Logger)
	if err != nil {
		conn.Close()
		return err
	}

	// DebugSession.Serve blocks on the socket read, not on ctx, so an
	// external cancellation interrupts that read; Serve then sees the
	// cancelled ctx, returns, and closes the connection itself. This
	// goroutine is the bridge between the two.
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			rspConn.Interrupt()
		case <-stopped:
		}
	}()

	ds := session.NewDebugSession(rspConn, s.Target, s.Controller, s.Logger)
	return ds.Serve(ctx)
}
