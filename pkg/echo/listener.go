// Package echo implements a concurrent TCP echo service.
//
// A Listener owns the listening socket and a single accept goroutine. Every
// accepted connection gets its own goroutine that echoes each chunk it reads
// until the peer goes away or an I/O error occurs. The only state shared
// between connections is the connection Counter.
package echo

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

type Option func(*Listener)

// WithObserver routes lifecycle events and errors to o.
func WithObserver(o Observer) Option {
	return func(l *Listener) {
		if o != nil {
			l.obs = o
		}
	}
}

type Listener struct {
	cfg Config
	ln  net.Listener
	cnt Counter
	obs Observer

	// base is cancelled by Close; every live connection is closed with it.
	base   context.Context
	cancel context.CancelFunc

	handlers errgroup.Group

	stopc     chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	stopErr   error
	closeOnce sync.Once
}

// Listen binds cfg.Host:cfg.Port and starts accepting. ctx only bounds the
// bind itself; use Stop, Close or Shutdown to end the service.
func Listen(ctx context.Context, cfg Config, opts ...Option) (*Listener, error) {
	l := newListener(cfg, opts...)

	lc := net.ListenConfig{Control: control(l.cfg)}
	ln, err := lc.Listen(ctx, "tcp", l.cfg.address())
	if err != nil {
		berr := &BindError{Addr: l.cfg.address(), Err: err}
		l.obs.Failed(berr)
		return nil, berr
	}

	l.serve(ln)
	return l, nil
}

func newListener(cfg Config, opts ...Option) *Listener {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	l := &Listener{
		cfg:   cfg,
		obs:   NopObserver{},
		stopc: make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// serve takes ownership of ln and starts the accept loop.
func (l *Listener) serve(ln net.Listener) {
	l.ln = ln
	l.base, l.cancel = context.WithCancel(context.Background())
	go l.acceptLoop()
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// ConnectionCount returns the number of open connections. The value is a
// snapshot and may already be stale when it is returned.
func (l *Listener) ConnectionCount() int64 {
	return l.cnt.Load()
}

// Done is closed once the accept loop has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func (l *Listener) acceptLoop() {
	defer close(l.done)

	var delay time.Duration
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.stopped() || errors.Is(err, net.ErrClosed) {
				return
			}
			l.obs.Failed(&AcceptError{Err: err})

			delay *= 2
			if delay == 0 {
				delay = minAcceptDelay
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-l.stopc:
				t.Stop()
				return
			}
			continue
		}
		delay = 0

		l.spawn(conn)
	}
}

func (l *Listener) spawn(conn net.Conn) {
	h := &handler{
		id:   uuid.NewString(),
		conn: conn,
		buf:  make([]byte, l.cfg.ChunkSize),
		idle: l.cfg.IdleTimeout,
		cnt:  &l.cnt,
		obs:  l.obs,
	}

	total := l.cnt.Inc()
	l.obs.Opened(ConnEvent{ID: h.id, Remote: conn.RemoteAddr(), Total: total})

	l.handlers.Go(func() error {
		h.serve(l.base)
		return nil
	})
}

func (l *Listener) stopped() bool {
	select {
	case <-l.stopc:
		return true
	default:
		return false
	}
}

// Stop closes the listening socket. Connections already accepted keep
// echoing until their peers disconnect.
func (l *Listener) Stop() error {
	l.stopOnce.Do(func() {
		close(l.stopc)
		if err := l.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			l.stopErr = err
		}
	})
	return l.stopErr
}

// Close stops accepting, severs every open connection, including ones in the
// middle of a read or write, and waits for all connection goroutines to exit.
// The connection count is 0 when Close returns.
func (l *Listener) Close() error {
	err := l.Stop()
	l.closeOnce.Do(func() {
		<-l.done
		l.cancel()
		_ = l.handlers.Wait()
	})
	return err
}

// Shutdown stops accepting and waits for open connections to finish on their
// own. If ctx ends first the remaining connections are severed as in Close
// and ctx.Err() is returned.
func (l *Listener) Shutdown(ctx context.Context) error {
	err := l.Stop()

	drained := make(chan struct{})
	go func() {
		<-l.done
		_ = l.handlers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		l.cancel()
		return err
	case <-ctx.Done():
		// Close repeats Stop's error; keep it once.
		if cerr := l.Close(); cerr != nil && !errors.Is(err, cerr) {
			err = errors.Join(err, cerr)
		}
		return errors.Join(err, ctx.Err())
	}
}
