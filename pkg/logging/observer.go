package logging

import (
	"errors"

	gologging "github.com/op/go-logging"

	"github.com/jingyuanliang/echosvc/pkg/echo"
)

// Observer renders echo events through a go-logging logger.
type Observer struct {
	log *gologging.Logger
}

var _ echo.Observer = (*Observer)(nil)

func NewObserver(log *gologging.Logger) *Observer {
	return &Observer{log: log}
}

func (o *Observer) Opened(ev echo.ConnEvent) {
	o.log.Debugf("[open] %s %v total %d", ev.ID, ev.Remote, ev.Total)
}

func (o *Observer) Closed(ev echo.ConnEvent) {
	o.log.Debugf("[close] %s %v total %d", ev.ID, ev.Remote, ev.Total)
}

func (o *Observer) Failed(err error) {
	var berr *echo.BindError
	if errors.As(err, &berr) {
		o.log.Errorf("[err] %v", err)
		return
	}
	o.log.Warningf("[err] %v", err)
}
