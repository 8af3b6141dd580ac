package rsp

import (
	"io"
	"log"
	"net"
	"time"
)

const (
	ackByteTimeout = 300 * time.Millisecond
	maxAckRetries  = 10
	readChunkSize  = 4096
)

// waiter is the interruptible-read half of a Connection: it blocks
// until the underlying socket has data (which it reads directly into
// buf), the connection is asked to interrupt, or an error occurs. Two
// implementations exist: an epoll-backed one for Linux
// (connection_linux.go, grounded on golang.org/x/sys/unix, the
// teacher's dependency) and a portable deadline-based fallback for
// other platforms and non-TCP connections (connection_fallback.go).
type waiter interface {
	// readOrInterrupt blocks until either buf has been filled with at
	// least one byte read from the socket, or interrupt() has been
	// called since the last readOrInterrupt, in which case it returns
	// immediately with interrupted=true and n=0.
	readOrInterrupt(buf []byte) (n int, interrupted bool, err error)
	// interrupt unblocks a concurrent call to readOrInterrupt, exactly
	// once. It is safe to call from any goroutine.
	interrupt()
	close() error
}

// Connection owns one accepted TCP socket speaking the GDB Remote
// Serial Protocol. It provides blocking, interruptible reads of
// decoded frames and acknowledged writes of response packets.
type Connection struct {
	conn   net.Conn
	wait   waiter
	dec    Decoder
	logger *log.Logger

	noAck    bool
	lastSent []byte
}

// NewConnection wraps conn. logger may be nil, in which case
// log.Default() is used.
func NewConnection(conn net.Conn, logger *log.Logger) (*Connection, error) {
	w, err := newWaiter(conn)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Connection{conn: conn, wait: w, logger: logger}, nil
}

// Close closes the underlying socket and interrupt plumbing.
func (c *Connection) Close() error {
	c.wait.close()
	return c.conn.Close()
}

// Interrupt unblocks a concurrent ReadPackets call. It does not close
// the socket.
func (c *Connection) Interrupt() { c.wait.interrupt() }

// SetNoAckMode disables acknowledgement handling for the remainder of
// the connection's lifetime, per the QStartNoAckMode handshake.
func (c *Connection) SetNoAckMode() { c.noAck = true }

// ReadPackets blocks until at least one complete frame has been
// decoded from the socket, then returns every frame produced by that
// underlying read (a client that retransmits impatiently may coalesce
// several frames into one read; the caller is expected to act only on
// the last one and must still acknowledge every inbound frame, which
// ReadPackets does itself).
func (c *Connection) ReadPackets() ([]Frame, error) {
	buf := make([]byte, readChunkSize)
	for {
		n, interrupted, err := c.wait.readOrInterrupt(buf)
		if interrupted {
			return nil, InterruptedError
		}
		if err != nil {
			if err == io.EOF {
				return nil, &DisconnectedError{Err: err}
			}
			if ne, ok := err.(net.Error); ok && !ne.Timeout() {
				return nil, &DisconnectedError{Err: err}
			}
			return nil, &CommunicationError{Err: err}
		}
		if n == 0 {
			continue
		}

		frames := c.dec.Feed(buf[:n])
		if len(frames) == 0 {
			continue
		}

		valid := frames[:0]
		for _, f := range frames {
			if f.Interrupt {
				valid = append(valid, f)
				continue
			}
			if !c.noAck {
				ack := byte('+')
				if !f.Valid {
					ack = '-'
				}
				if _, werr := c.conn.Write([]byte{ack}); werr != nil {
					return nil, &CommunicationError{Err: werr}
				}
			}
			if f.Valid {
				valid = append(valid, f)
			}
		}
		if len(valid) == 0 {
			continue
		}
		return valid, nil
	}
}

// WritePacket encodes payload and writes it, honouring the
// acknowledgement protocol: after writing, if acknowledgement is
// enabled, it waits for a single '+' byte (300ms-per-byte timeout),
// retransmitting on '-' and giving up with a CommunicationError once
// the frame has been sent maxAckRetries (ten) times without a '+'.
func (c *Connection) WritePacket(payload []byte) error {
	frame := Encode(payload)
	c.lastSent = frame

	for attempt := 0; ; attempt++ {
		if _, err := c.conn.Write(frame); err != nil {
			return &CommunicationError{Err: err}
		}
		if c.noAck {
			return nil
		}

		ackByte, err := c.readAckByte()
		if err != nil {
			return &CommunicationError{Err: err}
		}
		switch ackByte {
		case '+':
			return nil
		case '-':
			if attempt+1 >= maxAckRetries {
				return &CommunicationError{Err: ErrTooManyRetransmits}
			}
			c.logger.Printf("rsp: retransmitting frame after nack (attempt %d)", attempt+1)
			continue
		default:
			// Garbage on the wire where an ack byte was expected;
			// treat like a nack and retry within budget.
			if attempt+1 >= maxAckRetries {
				return &CommunicationError{Err: ErrTooManyRetransmits}
			}
			continue
		}
	}
}

func (c *Connection) readAckByte() (byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(ackByteTimeout)); err != nil {
		return 0, err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	var b [1]byte
	if _, err := io.ReadFull(c.conn, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
