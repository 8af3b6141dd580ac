//go:build !linux

package rsp

import "net"

// newWaiter on non-Linux platforms always uses the portable
// deadline-polling waiter; only Linux gets the epoll-backed one.
func newWaiter(conn net.Conn) (waiter, error) {
	return newGenericWaiter(conn)
}
