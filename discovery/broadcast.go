package discovery

import (
	"net"
	"syscall"
)

// ipv4BroadcastConn lets a *net.UDPConn enable SO_BROADCAST before sending
// to a broadcast address. No third-party UDP/socket library in the
// retrieval pack exposes this option — it's a raw socket flag, not
// application protocol behavior — so this reaches straight into
// syscall.RawConn rather than going through any higher-level package.
type ipv4BroadcastConn struct {
	*net.UDPConn
}

func (c ipv4BroadcastConn) enableBroadcast() error {
	raw, err := c.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
