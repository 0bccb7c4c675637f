package talk

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	gologging "github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingyuanliang/echosvc/pkg/echo"
	"github.com/jingyuanliang/echosvc/pkg/logging"
)

func testLogger(t *testing.T) *gologging.Logger {
	t.Helper()
	log, err := logging.New("talk-test", io.Discard, "debug")
	require.NoError(t, err)
	return log
}

func TestNewValidates(t *testing.T) {
	log := testLogger(t)

	_, err := New(Config{Addr: "x", Message: []byte("x")}, log)
	assert.Error(t, err)

	_, err = New(Config{Addr: "x", Conns: 1}, log)
	assert.Error(t, err)

	tk, err := New(Config{Addr: "x", Conns: 1, Message: []byte("x")}, log)
	require.NoError(t, err)
	assert.Equal(t, 1, tk.cfg.Parallel)
	assert.Equal(t, time.Second, tk.cfg.Interval)
}

func TestRunAgainstEchoServer(t *testing.T) {
	l, err := echo.Listen(context.Background(), echo.Config{Host: "127.0.0.1"})
	require.NoError(t, err)
	defer l.Close()

	tk, err := New(Config{
		Addr:     l.Addr().String(),
		Conns:    20,
		Parallel: 4,
		Message:  []byte("x"),
		Interval: 10 * time.Millisecond,
		Deadline: time.Second,
	}, testLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tk.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return tk.Live() == 20 && l.ConnectionCount() == 20
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return tk.Report().Echoed >= 40
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	r := tk.Report()
	assert.EqualValues(t, 20, r.Top)
	assert.Zero(t, r.Errors)
	assert.Zero(t, r.Mismatches)
	assert.Zero(t, tk.Live())

	require.Eventually(t, func() bool {
		return l.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunCountsMismatches(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4)
				for {
					if _, err := io.ReadFull(c, buf); err != nil {
						return
					}
					if _, err := c.Write([]byte("pong")); err != nil {
						return
					}
				}
			}(c)
		}
	}()

	tk, err := New(Config{
		Addr:     ln.Addr().String(),
		Conns:    1,
		Message:  []byte("ping"),
		Interval: 10 * time.Millisecond,
	}, testLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	tk.Run(ctx)

	r := tk.Report()
	assert.Positive(t, r.Mismatches)
	assert.Zero(t, r.Echoed)
}

func TestRunCountsDialErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	tk, err := New(Config{Addr: addr, Conns: 3, Message: []byte("x")}, testLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tk.Run(ctx)

	assert.EqualValues(t, 3, tk.Report().Errors)
	assert.Zero(t, tk.Report().Top)
}

func TestSteady(t *testing.T) {
	counts := []int64{1, 2, 3}
	i := 0
	count := func() int64 {
		if i < len(counts) {
			i++
			return counts[i-1]
		}
		return counts[len(counts)-1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	top := Steady(ctx, testLogger(t), 5*time.Millisecond, 30*time.Millisecond, count)
	assert.EqualValues(t, 3, top)
	assert.NoError(t, ctx.Err(), "Steady should return before the context ends")
}
