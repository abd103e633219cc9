package task

import (
	"time"

	"github.com/benbjohnson/clock"
)

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func() error

func (f RunnerFunc) Run() error {
	return f()
}

// NewTickerTaskFromFunc runs fn every interval on clk. A nil clk means the wall clock.
func NewTickerTaskFromFunc(interval time.Duration, clk clock.Clock, fn func() error) *TickerTask {
	return NewTickerTaskWithOptions(Options{
		Interval: interval,
		Runner:   RunnerFunc(fn),
		Clock:    clk,
	})
}
