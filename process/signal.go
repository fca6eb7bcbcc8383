package process

import (
	"os"
	"os/signal"
)

// Delivery of a set of signals, from NotifySignals until Stop.  Signals that arrive while nobody
// is waiting are queued, not handled by the default action.
type Signals struct {
	c chan os.Signal
}

func NotifySignals(signals ...os.Signal) *Signals {
	s := &Signals{c: make(chan os.Signal, 4)}
	signal.Notify(s.c, signals...)
	return s
}

// Block until one of the signals is delivered, and return it.
func (s *Signals) Wait() os.Signal {
	return <-s.c
}

func (s *Signals) Stop() {
	signal.Stop(s.c)
}
