//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package echo

import "syscall"

// ReusePort is ignored here; the runtime's socket defaults apply.
func control(Config) func(network, address string, c syscall.RawConn) error {
	return nil
}
