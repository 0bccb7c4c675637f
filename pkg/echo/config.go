package echo

import (
	"net"
	"strconv"
	"time"
)

const (
	DefaultPort      = 12345
	DefaultChunkSize = 1024
)

// Config is the fixed configuration handed to Listen.
type Config struct {
	// Host to bind. Empty means all interfaces.
	Host string
	// Port to bind. 0 picks an ephemeral port, see Listener.Addr.
	Port int
	// ChunkSize is the per-read buffer capacity. It is not a message boundary.
	ChunkSize int
	// ReusePort sets SO_REUSEPORT on the listening socket where supported.
	ReusePort bool
	// IdleTimeout bounds each read. 0 disables it.
	IdleTimeout time.Duration
}

func (c Config) address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
