package echo

import "sync/atomic"

// Counter holds the number of connections that have been accepted and not
// yet closed. Every mutation is a single atomic add.
type Counter struct {
	n atomic.Int64
}

// Inc records an opened connection and returns the resulting total.
func (c *Counter) Inc() int64 {
	return c.n.Add(1)
}

// Dec records a closed connection and returns the resulting total.
func (c *Counter) Dec() int64 {
	return c.n.Add(-1)
}

func (c *Counter) Load() int64 {
	return c.n.Load()
}
