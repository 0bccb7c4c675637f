package echo

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

type state int

const (
	stateReading state = iota
	stateWriting
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateReading:
		return "reading"
	case stateWriting:
		return "writing"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// handler owns one accepted connection and its chunk buffer for as long as
// its goroutine runs.
type handler struct {
	id   string
	conn net.Conn
	buf  []byte
	idle time.Duration
	cnt  *Counter
	obs  Observer

	state state
	// n is the length of the chunk waiting to be echoed.
	n int
	// rerr is a read error that arrived together with data; it closes the
	// connection once that data has been echoed.
	rerr error
}

// serve runs the read/echo loop until the connection is closed. The counter
// was incremented by the accept loop; it is decremented here exactly once.
func (h *handler) serve(ctx context.Context) {
	sever := context.AfterFunc(ctx, func() {
		h.conn.Close()
	})
	defer func() {
		sever()
		h.conn.Close()
		total := h.cnt.Dec()
		h.obs.Closed(ConnEvent{ID: h.id, Remote: h.conn.RemoteAddr(), Total: total})
	}()

	h.state = stateReading
	for h.state != stateClosed {
		switch h.state {
		case stateReading:
			h.state = h.read(ctx)
		case stateWriting:
			h.state = h.write(ctx)
		}
	}
}

func (h *handler) read(ctx context.Context) state {
	if h.idle > 0 {
		if err := h.conn.SetReadDeadline(time.Now().Add(h.idle)); err != nil {
			h.readFailed(ctx, err)
			return stateClosed
		}
	}

	n, err := h.conn.Read(h.buf)
	if n > 0 {
		h.n, h.rerr = n, err
		return stateWriting
	}
	if err == nil {
		// Zero-length read without an error; treat it like a closed peer.
		err = io.EOF
	}
	h.readFailed(ctx, err)
	return stateClosed
}

func (h *handler) write(ctx context.Context) state {
	n, err := h.conn.Write(h.buf[:h.n])
	if err == nil && n != h.n {
		err = io.ErrShortWrite
	}
	if err != nil {
		if ctx.Err() == nil {
			h.obs.Failed(&WriteError{ID: h.id, Remote: h.conn.RemoteAddr(), Err: err})
		}
		return stateClosed
	}

	if h.rerr != nil {
		h.readFailed(ctx, h.rerr)
		return stateClosed
	}
	return stateReading
}

// readFailed reports err unless it is the peer closing or the listener
// severing the connection.
func (h *handler) readFailed(ctx context.Context, err error) {
	if errors.Is(err, io.EOF) || ctx.Err() != nil {
		return
	}
	h.obs.Failed(&ReadError{ID: h.id, Remote: h.conn.RemoteAddr(), Err: err})
}
