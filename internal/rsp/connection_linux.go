//go:build linux

package rsp

import (
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// epollWaiter implements waiter on Linux using a real epoll instance
// watching the connection's socket fd and a self-signalling eventfd,
// so a blocked read can be woken by either the peer or an injected
// interrupt.
type epollWaiter struct {
	epfd    int
	eventfd int
	sockfd  int
}

func newWaiter(conn net.Conn) (waiter, error) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return newGenericWaiter(conn)
	}

	sc, err := tcp.SyscallConn()
	if err != nil {
		return newGenericWaiter(conn)
	}

	var sockfd int
	var dupErr error
	ctrlErr := sc.Control(func(fd uintptr) {
		sockfd, dupErr = unix.Dup(int(fd))
	})
	if ctrlErr != nil {
		return nil, ctrlErr
	}
	if dupErr != nil {
		return nil, dupErr
	}

	eventfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(sockfd)
		return nil, err
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(sockfd)
		unix.Close(eventfd)
		return nil, err
	}

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, sockfd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(sockfd)}); err != nil {
		unix.Close(epfd)
		unix.Close(sockfd)
		unix.Close(eventfd)
		return nil, err
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, eventfd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(eventfd)}); err != nil {
		unix.Close(epfd)
		unix.Close(sockfd)
		unix.Close(eventfd)
		return nil, err
	}

	return &epollWaiter{epfd: epfd, eventfd: eventfd, sockfd: sockfd}, nil
}

// readOrInterrupt waits for either fd to become readable. If the
// eventfd fires, the write is drained and (0, true, nil) is returned
// without touching buf. If the socket fd fires, it is read directly
// (the dup'd fd shares the same underlying file description as the
// net.Conn, so this does not race with, or duplicate, the Conn's own
// reads: the two never read concurrently because the session thread
// owns both the waiter and the Conn).
func (w *epollWaiter) readOrInterrupt(buf []byte) (int, bool, error) {
	events := make([]unix.EpollEvent, 2)
	for {
		n, err := unix.EpollWait(w.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, false, err
		}
		for i := 0; i < n; i++ {
			if events[i].Fd == int32(w.eventfd) {
				var drain [8]byte
				unix.Read(w.eventfd, drain[:])
				return 0, true, nil
			}
		}
		for i := 0; i < n; i++ {
			if events[i].Fd == int32(w.sockfd) {
				rn, rerr := unix.Read(w.sockfd, buf)
				if rerr != nil {
					return 0, false, rerr
				}
				if rn == 0 {
					return 0, false, io.EOF
				}
				return rn, false, nil
			}
		}
	}
}

func (w *epollWaiter) interrupt() {
	one := [8]byte{0, 0, 0, 0, 0, 0, 0, 1}
	unix.Write(w.eventfd, one[:])
}

func (w *epollWaiter) close() error {
	unix.Close(w.epfd)
	unix.Close(w.eventfd)
	unix.Close(w.sockfd)
	return nil
}
