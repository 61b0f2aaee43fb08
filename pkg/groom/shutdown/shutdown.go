// Package shutdown turns SIGINT and SIGTERM into either an immediate exit or
// a cancelled run context.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jamesainslie/groom/pkg/groom/logging"
)

// Mode selects what happens when a signal arrives.
type Mode int

const (
	// Immediate exits the process with status 0. Work in flight is abandoned;
	// a rename already issued completes or not as a single system call.
	Immediate Mode = iota

	// Graceful cancels the run context so workers stop between items and the
	// summary is still printed.
	Graceful
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Graceful {
		return "graceful"
	}
	return "immediate"
}

// Controller owns the signal registration for one run.
type Controller struct {
	mode   Mode
	cancel context.CancelFunc

	// exit is os.Exit outside of tests.
	exit func(code int)

	signals  chan os.Signal
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
	received chan os.Signal
}

// New creates a Controller. cancel is called in Graceful mode and may be nil
// in Immediate mode.
func New(mode Mode, cancel context.CancelFunc) *Controller {
	return &Controller{
		mode:     mode,
		cancel:   cancel,
		exit:     os.Exit,
		signals:  make(chan os.Signal, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		received: make(chan os.Signal, 1),
	}
}

// SetExit replaces the function used to exit in Immediate mode.
func (c *Controller) SetExit(exit func(code int)) {
	c.exit = exit
}

// Start registers for SIGINT and SIGTERM and handles the first one received.
func (c *Controller) Start() {
	signal.Notify(c.signals, os.Interrupt, syscall.SIGTERM)
	go c.loop()
}

// Stop unregisters the handler. It is safe to call more than once.
func (c *Controller) Stop() {
	c.once.Do(func() {
		signal.Stop(c.signals)
		close(c.stop)
		<-c.done
	})
}

// Received returns a channel that yields the signal that was handled, if any.
func (c *Controller) Received() <-chan os.Signal {
	return c.received
}

func (c *Controller) loop() {
	defer close(c.done)

	select {
	case <-c.stop:
		return
	case sig := <-c.signals:
		c.handle(sig)
	}
}

func (c *Controller) handle(sig os.Signal) {
	log := logging.Get("shutdown")

	select {
	case c.received <- sig:
	default:
	}

	if c.mode == Graceful {
		log.Warn("received signal, stopping after current items", "signal", sig.String())
		if c.cancel != nil {
			c.cancel()
		}
		return
	}

	log.Warn("received signal, exiting", "signal", sig.String())
	c.exit(0)
}
