package echo

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortConn writes one byte less than asked.
type shortConn struct {
	net.Conn
}

func (c shortConn) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return c.Conn.Write(p[:len(p)-1])
}

// dataErrConn returns its payload together with an error on the first read.
type dataErrConn struct {
	net.Conn
	payload []byte
	err     error
	once    sync.Once
}

func (c *dataErrConn) Read(p []byte) (n int, err error) {
	err = io.EOF
	c.once.Do(func() {
		n, err = copy(p, c.payload), c.err
	})
	return n, err
}

func newTestHandler(conn net.Conn, chunk int, cnt *Counter, obs Observer) *handler {
	cnt.Inc()
	return &handler{id: "test", conn: conn, buf: make([]byte, chunk), cnt: cnt, obs: obs}
}

func runHandler(t *testing.T, h *handler) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.serve(context.Background())
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(settle):
		t.Fatal("handler did not finish")
	}
}

func TestHandlerShortWrite(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	var cnt Counter
	rec := &recorder{}
	h := newTestHandler(shortConn{server}, 8, &cnt, rec)
	done := runHandler(t, h)

	go func() {
		client.Write([]byte("abcd"))
	}()
	got := make([]byte, 3)
	_, err := io.ReadFull(client, got)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	waitDone(t, done)
	assert.EqualValues(t, 0, cnt.Load())
	assert.Equal(t, stateClosed, h.state)

	errs := rec.errors()
	require.Len(t, errs, 1)
	var werr *WriteError
	require.ErrorAs(t, errs[0], &werr)
	assert.ErrorIs(t, werr, io.ErrShortWrite)
}

func TestHandlerEchoesDataBeforeReadError(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	boom := errors.New("boom")
	var cnt Counter
	rec := &recorder{}
	conn := &dataErrConn{Conn: server, payload: []byte("last words"), err: boom}
	done := runHandler(t, newTestHandler(conn, 64, &cnt, rec))

	got := make([]byte, len("last words"))
	_, err := io.ReadFull(client, got)
	require.NoError(t, err)
	assert.Equal(t, "last words", string(got))

	waitDone(t, done)
	assert.EqualValues(t, 0, cnt.Load())

	errs := rec.errors()
	require.Len(t, errs, 1)
	var rerr *ReadError
	require.ErrorAs(t, errs[0], &rerr)
	assert.ErrorIs(t, rerr, boom)
}

func TestHandlerDecrementsOnce(t *testing.T) {
	server, client := net.Pipe()

	var cnt Counter
	rec := &recorder{}
	done := runHandler(t, newTestHandler(server, 8, &cnt, rec))

	client.Close()
	waitDone(t, done)

	// Closing an already closed conn must not fault or decrement again.
	assert.NoError(t, client.Close())
	assert.EqualValues(t, 0, cnt.Load())
	require.Len(t, rec.closedEvents(), 1)
	assert.EqualValues(t, 0, rec.closedEvents()[0].Total)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "reading", stateReading.String())
	assert.Equal(t, "writing", stateWriting.String())
	assert.Equal(t, "closed", stateClosed.String())
}
