// Package talk drives an echo server with many long-lived connections and
// checks every reply.
package talk

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	gologging "github.com/op/go-logging"
	"golang.org/x/sync/semaphore"
)

type Config struct {
	Addr string
	// Conns is the number of connections to open.
	Conns int
	// Parallel bounds concurrent dials.
	Parallel int
	Message  []byte
	// Interval between round trips on one connection.
	Interval time.Duration
	// Deadline bounds each write and each read.
	Deadline time.Duration
}

type Report struct {
	Top        int64
	Echoed     int64
	Errors     int64
	Mismatches int64
}

type Talker struct {
	cfg Config
	log *gologging.Logger
	sem *semaphore.Weighted

	cnt        atomic.Int64
	top        atomic.Int64
	echoed     atomic.Int64
	errs       atomic.Int64
	mismatches atomic.Int64
}

func New(cfg Config, log *gologging.Logger) (*Talker, error) {
	if cfg.Conns <= 0 {
		return nil, errors.New("talk: conns must be positive")
	}
	if len(cfg.Message) == 0 {
		return nil, errors.New("talk: empty message")
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 10 * time.Second
	}
	return &Talker{
		cfg: cfg,
		log: log,
		sem: semaphore.NewWeighted(int64(cfg.Parallel)),
	}, nil
}

// Live returns the number of open connections.
func (t *Talker) Live() int64 {
	return t.cnt.Load()
}

func (t *Talker) Report() Report {
	return Report{
		Top:        t.top.Load(),
		Echoed:     t.echoed.Load(),
		Errors:     t.errs.Load(),
		Mismatches: t.mismatches.Load(),
	}
}

// Run opens the configured connections and keeps them talking until ctx is
// done, then waits for all of them to close.
func (t *Talker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	var d net.Dialer
	for i := 0; i < t.cfg.Conns; i++ {
		if err := t.sem.Acquire(ctx, 1); err != nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := d.DialContext(ctx, "tcp", t.cfg.Addr)
			t.sem.Release(1)
			if err != nil {
				if ctx.Err() == nil {
					t.errs.Add(1)
					t.log.Warningf("[d:err] %v", err)
				}
				return
			}
			t.talk(ctx, conn)
		}()
	}
}

func (t *Talker) talk(ctx context.Context, c net.Conn) {
	t.raiseTop(t.cnt.Add(1))
	defer t.cnt.Add(-1)
	defer c.Close()

	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	buf := make([]byte, len(t.cfg.Message))
	tick := time.NewTicker(t.cfg.Interval)
	defer tick.Stop()

	for {
		if err := t.roundTrip(c, buf); err != nil {
			if ctx.Err() == nil {
				t.errs.Add(1)
				t.log.Warningf("%v", err)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return "[" + e.op + ":err] " + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

func (t *Talker) roundTrip(c net.Conn, buf []byte) error {
	if err := c.SetWriteDeadline(time.Now().Add(t.cfg.Deadline)); err != nil {
		return &opError{"wd", err}
	}
	if _, err := c.Write(t.cfg.Message); err != nil {
		return &opError{"w", err}
	}

	if err := c.SetReadDeadline(time.Now().Add(t.cfg.Deadline)); err != nil {
		return &opError{"rd", err}
	}
	if _, err := io.ReadFull(c, buf); err != nil {
		return &opError{"r", err}
	}

	if !bytes.Equal(buf, t.cfg.Message) {
		t.mismatches.Add(1)
		t.log.Warningf("[mismatch] got %q", buf)
		return nil
	}
	t.echoed.Add(1)
	return nil
}

func (t *Talker) raiseTop(n int64) {
	for {
		top := t.top.Load()
		if n <= top || t.top.CompareAndSwap(top, n) {
			return
		}
	}
}

// Steady logs count every tick and returns the highest value seen once it
// has not grown for the steady period, or when ctx is done.
func Steady(ctx context.Context, log *gologging.Logger, tick, steady time.Duration, count func() int64) int64 {
	t := time.NewTicker(tick)
	defer t.Stop()

	var top int64
	topTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			return top
		case <-t.C:
		}

		c := count()
		log.Infof("[conn] %d", c)
		if c > top {
			top = c
			topTime = time.Now()
		} else if time.Since(topTime) > steady {
			return top
		}
	}
}
