package eventchannel

import (
	"bytes"
	"compress/gzip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dlgate/download-gate/logger"
)

type Metrics struct {
	bufferSize int64
	eventCount int64
}

type Limit struct {
	maxByteSize   int64
	maxEventCount int64
	maxTime       time.Duration
}

// EventChannel gzips pushed events into one batch and hands the batch to its Sender when the
// batch is full, when maxTime passes, or on Close.
type EventChannel struct {
	gz   *gzip.Writer
	buff *bytes.Buffer

	ch          chan []byte
	endCh       chan struct{}
	doneCh      chan struct{}
	metrics     Metrics
	muxGzBuffer sync.RWMutex
	send        Sender
	sends       sync.WaitGroup
	limit       Limit
	clock       clock.Clock
	closeOnce   sync.Once
}

func NewEventChannel(sender Sender, clock clock.Clock, maxByteSize, maxEventCount int64, maxTime time.Duration) *EventChannel {
	b := &bytes.Buffer{}
	gzw := gzip.NewWriter(b)

	c := EventChannel{
		gz:      gzw,
		buff:    b,
		ch:      make(chan []byte),
		endCh:   make(chan struct{}),
		doneCh:  make(chan struct{}),
		metrics: Metrics{},
		send:    sender,
		limit:   Limit{maxByteSize, maxEventCount, maxTime},
		clock:   clock,
	}
	go c.start()
	return &c
}

// Push adds an event to the current batch. Events pushed after Close are dropped.
func (c *EventChannel) Push(event []byte) {
	select {
	case c.ch <- event:
	case <-c.doneCh:
	}
}

// Close flushes the pending batch and waits for every send to finish.
func (c *EventChannel) Close() {
	c.closeOnce.Do(func() {
		close(c.endCh)
	})
	<-c.doneCh
	c.sends.Wait()
}

func (c *EventChannel) buffer(event []byte) {
	c.muxGzBuffer.Lock()
	defer c.muxGzBuffer.Unlock()

	_, err := c.gz.Write(event)
	if err != nil {
		logger.Warnf("[eventchannel] fail to compress, skip the event: %v", err)
		return
	}

	c.metrics.eventCount++
	c.metrics.bufferSize += int64(len(event))
}

func (c *EventChannel) isBufferFull() bool {
	c.muxGzBuffer.RLock()
	defer c.muxGzBuffer.RUnlock()
	return c.metrics.eventCount >= c.limit.maxEventCount || c.metrics.bufferSize >= c.limit.maxByteSize
}

func (c *EventChannel) reset() {
	// reset buffer
	c.gz.Reset(c.buff)
	c.buff.Reset()

	// reset metrics
	c.metrics.eventCount = 0
	c.metrics.bufferSize = 0
}

func (c *EventChannel) flush() {
	c.muxGzBuffer.Lock()
	defer c.muxGzBuffer.Unlock()

	if c.metrics.eventCount == 0 || c.metrics.bufferSize == 0 {
		return
	}

	// reset buffers and writers
	defer c.reset()

	// finish writing gzip footer
	err := c.gz.Close()
	if err != nil {
		logger.Warnf("[eventchannel] fail to close gzipped buffer: %v", err)
		return
	}

	// copy the current buffer to send the payload in a new goroutine
	payload := make([]byte, c.buff.Len())
	_, err = c.buff.Read(payload)
	if err != nil {
		logger.Warnf("[eventchannel] fail to copy the buffer: %v", err)
		return
	}

	// send events (async)
	c.sends.Add(1)
	go func() {
		defer c.sends.Done()
		if err := c.send(payload); err != nil {
			logger.Warnf("[eventchannel] fail to send %d bytes: %v", len(payload), err)
		}
	}()
}

func (c *EventChannel) start() {
	ticker := c.clock.Ticker(c.limit.maxTime)
	defer ticker.Stop()
	defer close(c.doneCh)

	for {
		select {
		case <-c.endCh:
			c.flush()
			return

		// event is received
		case event := <-c.ch:
			c.buffer(event)
			if c.isBufferFull() {
				c.flush()
			}

		// time between 2 flushes has passed
		case <-ticker.C:
			c.flush()
		}
	}
}
