package analytics

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dlgate/download-gate/errortypes"
	"github.com/dlgate/download-gate/logger"
	"github.com/dlgate/download-gate/metrics"
)

// AsyncReporter queues events on a bounded buffer and ships them from a single worker.
// When the buffer is full the event is dropped and counted.
type AsyncReporter struct {
	module  Module
	me      metrics.MetricsEngine
	queue   chan *Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	closing sync.Once
	dropped uint64
}

// The first drop and every dropLogInterval-th after it are logged.
const dropLogInterval = 1000

func NewAsyncReporter(module Module, bufferSize int, me metrics.MetricsEngine) *AsyncReporter {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	r := &AsyncReporter{
		module: module,
		me:     me,
		queue:  make(chan *Event, bufferSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *AsyncReporter) Report(e *Event) {
	if e == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(e, "reporter is shut down")
		return
	}
	select {
	case r.queue <- e:
	default:
		r.drop(e, "telemetry buffer is full")
	}
}

// Dropped is the number of events dropped so far.
func (r *AsyncReporter) Dropped() uint64 {
	return atomic.LoadUint64(&r.dropped)
}

func (r *AsyncReporter) drop(e *Event, cause string) {
	r.me.RecordTelemetry(metrics.TelemetryDropped)
	n := atomic.AddUint64(&r.dropped, 1)
	if n != 1 && n%dropLogInterval != 0 {
		return
	}
	warning := &errortypes.Warning{
		Message:     fmt.Sprintf("%s, dropped %s event for %s (%d dropped so far)", cause, e.Event, e.AppSlug, n),
		WarningCode: errortypes.TelemetryDroppedWarningCode,
	}
	logger.Warnf("telemetry: %v (code %d)", warning, errortypes.ReadCode(warning))
}

// Shutdown stops accepting events, drains what is queued and shuts the module down.
func (r *AsyncReporter) Shutdown() {
	r.closing.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
		<-r.done
		r.module.Shutdown()
	})
}

func (r *AsyncReporter) run() {
	defer close(r.done)
	for e := range r.queue {
		if err := r.deliver(e); err != nil {
			r.me.RecordTelemetry(metrics.TelemetryFailed)
			logger.Warnf("telemetry: %v", err)
			continue
		}
		r.me.RecordTelemetry(metrics.TelemetrySent)
	}
}

func (r *AsyncReporter) deliver(e *Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("analytics module panicked on %s event: %v", e.Event, p)
		}
	}()
	return r.module.LogEvent(e)
}
