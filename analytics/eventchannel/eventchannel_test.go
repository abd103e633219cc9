package eventchannel

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

var maxByteSize = int64(15)
var maxEventCount = int64(3)
var maxTime = 2 * time.Hour

func readGz(encoded []byte) string {
	gr, _ := gzip.NewReader(bytes.NewReader(encoded))
	defer gr.Close()

	decoded, _ := io.ReadAll(gr)
	return string(decoded)
}

type collector struct {
	mu   sync.Mutex
	data []byte
	raw  [][]byte
}

func (c *collector) send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = append(c.raw, payload)
	c.data = append(c.data, readGz(payload)...)
	return nil
}

func (c *collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.data)
}

func (c *collector) batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.raw)
}

func TestEventChannel_isBufferFull(t *testing.T) {
	send := func([]byte) error { return nil }

	eventChannel := NewEventChannel(send, clock.NewMock(), maxByteSize, maxEventCount, maxTime)
	defer eventChannel.Close()

	eventChannel.buffer([]byte("one"))
	eventChannel.buffer([]byte("two"))

	assert.False(t, eventChannel.isBufferFull())

	eventChannel.buffer([]byte("three"))

	assert.True(t, eventChannel.isBufferFull())

	eventChannel.reset()

	assert.False(t, eventChannel.isBufferFull())

	eventChannel.buffer([]byte("big-event-abcdefghijklmnopqrstuvwxyz"))

	assert.True(t, eventChannel.isBufferFull())
}

func TestEventChannel_reset(t *testing.T) {
	send := func([]byte) error { return nil }

	eventChannel := NewEventChannel(send, clock.NewMock(), maxByteSize, maxEventCount, maxTime)
	defer eventChannel.Close()

	assert.Zero(t, eventChannel.metrics.eventCount)
	assert.Zero(t, eventChannel.metrics.bufferSize)

	eventChannel.buffer([]byte("one"))
	eventChannel.buffer([]byte("two"))

	assert.NotZero(t, eventChannel.metrics.eventCount)
	assert.NotZero(t, eventChannel.metrics.bufferSize)

	eventChannel.reset()

	assert.Zero(t, eventChannel.buff.Len())
	assert.Zero(t, eventChannel.metrics.eventCount)
	assert.Zero(t, eventChannel.metrics.bufferSize)
}

func TestEventChannel_flush(t *testing.T) {
	c := &collector{}

	eventChannel := NewEventChannel(c.send, clock.NewMock(), maxByteSize, maxEventCount, maxTime)

	eventChannel.buffer([]byte("one"))
	eventChannel.buffer([]byte("two"))
	eventChannel.buffer([]byte("three"))
	eventChannel.flush()
	eventChannel.Close()

	assert.Equal(t, "onetwothree", c.String())
	assert.Equal(t, 1, c.batches())
}

func TestEventChannel_close(t *testing.T) {
	c := &collector{}

	eventChannel := NewEventChannel(c.send, clock.NewMock(), 15000, 15000, 2*time.Hour)

	eventChannel.Push([]byte("one"))
	eventChannel.Push([]byte("two"))
	eventChannel.Push([]byte("three"))
	eventChannel.Close()

	assert.Equal(t, "onetwothree", c.String())

	// Pushing after close neither blocks nor sends.
	eventChannel.Push([]byte("four"))
	eventChannel.Close()
	assert.Equal(t, "onetwothree", c.String())
}

func TestEventChannel_PushFlushesFullBatch(t *testing.T) {
	c := &collector{}

	eventChannel := NewEventChannel(c.send, clock.NewMock(), 15000, 2, maxTime)
	defer eventChannel.Close()

	eventChannel.Push([]byte("1"))
	eventChannel.Push([]byte("2"))

	assert.Eventually(t, func() bool { return c.String() == "12" }, time.Second, time.Millisecond)
}

func TestEventChannel_FlushOnTick(t *testing.T) {
	c := &collector{}
	mockClock := clock.NewMock()

	eventChannel := NewEventChannel(c.send, mockClock, 15000, 15000, 5*time.Second)
	defer eventChannel.Close()

	eventChannel.Push([]byte("tick"))
	mockClock.Add(5 * time.Second)

	assert.Eventually(t, func() bool { return c.String() == "tick" }, time.Second, time.Millisecond)
}

func TestEventChannel_SendErrorsAreSwallowed(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	send := func([]byte) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("collector down")
	}

	eventChannel := NewEventChannel(send, clock.NewMock(), 15000, 1, maxTime)
	eventChannel.Push([]byte("one"))
	eventChannel.Push([]byte("two"))
	eventChannel.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestEventChannel_OutputFormat(t *testing.T) {
	toGzip := func(payload string) []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)

		if _, err := zw.Write([]byte(payload)); err != nil {
			assert.Fail(t, err.Error())
		}

		if err := zw.Close(); err != nil {
			assert.Fail(t, err.Error())
		}
		return buf.Bytes()
	}

	c := &collector{}
	eventChannel := NewEventChannel(c.send, clock.NewMock(), 15000, 10, 2*time.Minute)

	eventChannel.buffer([]byte("one"))
	eventChannel.flush()
	eventChannel.sends.Wait()

	eventChannel.buffer([]byte("two"))
	eventChannel.buffer([]byte("three"))
	eventChannel.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, [][]byte{toGzip("one"), toGzip("twothree")}, c.raw)
}
