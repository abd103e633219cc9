package task

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dlgate/download-gate/logger"
)

type Runner interface {
	Run() error
}

type TickerTask struct {
	interval       time.Duration
	runner         Runner
	skipInitialRun bool
	clock          clock.Clock
	done           chan struct{}
	stopOnce       sync.Once
}

func NewTickerTask(interval time.Duration, runner Runner) *TickerTask {
	return NewTickerTaskWithOptions(Options{
		Interval: interval,
		Runner:   runner,
	})
}

type Options struct {
	Interval       time.Duration
	Runner         Runner
	SkipInitialRun bool
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

func NewTickerTaskWithOptions(opt Options) *TickerTask {
	c := opt.Clock
	if c == nil {
		c = clock.New()
	}
	return &TickerTask{
		interval:       opt.Interval,
		runner:         opt.Runner,
		skipInitialRun: opt.SkipInitialRun,
		clock:          c,
		done:           make(chan struct{}),
	}
}

// Start runs the task immediately and then schedules the task to run periodically
// if a positive interval has been specified.
func (t *TickerTask) Start() {
	if !t.skipInitialRun {
		t.run()
	}

	if t.interval > 0 {
		ticker := t.clock.Ticker(t.interval)
		go t.runRecurring(ticker)
	}
}

// Stop stops the periodic task but the task runner maintains state. Calling it twice is safe.
func (t *TickerTask) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

// Done exports readonly done channel
func (t *TickerTask) Done() <-chan struct{} {
	return t.done
}

func (t *TickerTask) run() {
	if err := t.runner.Run(); err != nil {
		logger.Warnf("ticker task failed: %v", err)
	}
}

// runRecurring executes the task on each tick until Stop is called.
func (t *TickerTask) runRecurring(ticker *clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.run()
		case <-t.done:
			return
		}
	}
}
