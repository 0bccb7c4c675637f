// Package logging sets up go-logging loggers with the service's "[pid:N]"
// prefix and adapts them to the echo event stream.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	gologging "github.com/op/go-logging"
)

const format = `%{time:15:04:05.000000} %{shortfunc} %{level:.4s} %{id:03x} ▶ %{message}`

// New returns a logger for module writing to w at the named level
// (debug, info, notice, warning, error, critical).
func New(module string, w io.Writer, level string) (*gologging.Logger, error) {
	lvl, err := gologging.LogLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	backend := gologging.NewLogBackend(w, fmt.Sprintf("[pid:%d] ", os.Getpid()), 0)
	formatted := gologging.NewBackendFormatter(backend, gologging.MustStringFormatter(format))
	leveled := gologging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")

	log := gologging.MustGetLogger(module)
	log.SetBackend(leveled)
	return log, nil
}

// Report logs the value of count every interval until ctx is done.
func Report(ctx context.Context, log *gologging.Logger, interval time.Duration, count func() int64) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			log.Infof("[conn] %d", count())
		}
	}
}
