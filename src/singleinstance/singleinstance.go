// Package singleinstance keeps a second copy of the tool from running
// by holding a loopback TCP port for the life of the process.
package singleinstance

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

const defaultPort = 49531

// port returns the claim port, overridable for tests and multi-user
// machines via SINGLEINSTANCE_PORT. Clamped to the unprivileged range.
func port() int {
	p := defaultPort
	if v := os.Getenv("SINGLEINSTANCE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p = n
		}
	}
	if p < 1024 {
		p = 1024
	}
	if p > 65535 {
		p = 65535
	}
	return p
}

// Lock is the held claim. Release it at shutdown.
type Lock struct {
	listener net.Listener
}

// Acquire claims the instance port. A busy port means another copy is
// already resident.
func Acquire() (*Lock, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port())
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("another instance is already running on %s", addr)
	}
	return &Lock{listener: l}, nil
}

func (l *Lock) Release() {
	if l.listener != nil {
		l.listener.Close()
		l.listener = nil
	}
}
