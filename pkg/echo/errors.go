package echo

import (
	"fmt"
	"net"
)

// BindError is returned by Listen when the listening socket cannot be set up.
// It is the only failure that escapes the service.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// AcceptError is reported when Accept fails on a listener that is still open.
// The accept loop keeps running.
type AcceptError struct {
	Err error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("accept: %v", e.Err)
}

func (e *AcceptError) Unwrap() error { return e.Err }

// ReadError is reported when a read fails for any reason other than the peer
// closing its side.
type ReadError struct {
	ID     string
	Remote net.Addr
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s (%v): %v", e.ID, e.Remote, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is reported when a chunk could not be echoed in full.
type WriteError struct {
	ID     string
	Remote net.Addr
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s (%v): %v", e.ID, e.Remote, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
