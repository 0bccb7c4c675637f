package echo

import "net"

// ConnEvent describes a connection opening or closing. Total is the value of
// the connection counter right after the change.
type ConnEvent struct {
	ID     string
	Remote net.Addr
	Total  int64
}

// Observer receives lifecycle events and operational errors. Methods are
// called from the accept loop and from connection goroutines concurrently.
type Observer interface {
	Opened(ev ConnEvent)
	Closed(ev ConnEvent)
	// Failed receives a *BindError, *AcceptError, *ReadError or *WriteError.
	Failed(err error)
}

// NopObserver drops everything.
type NopObserver struct{}

func (NopObserver) Opened(ConnEvent) {}
func (NopObserver) Closed(ConnEvent) {}
func (NopObserver) Failed(error)     {}
