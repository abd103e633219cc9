// Use the OS "logrotate" daemon with copytruncate option

package filesystem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dlgate/download-gate/analytics"
)

// Module that writes one JSON line per telemetry event
type fileLogger struct {
	logger *log.Logger
	file   *os.File
	pool   sync.Pool
}

func (f *fileLogger) print(b *bytes.Buffer) {
	timestamp := time.Now().Format(time.DateTime)
	f.logger.Printf("[%s] %s", timestamp, b.String())
}

func (f *fileLogger) release(b *bytes.Buffer) {
	f.pool.Put(b)
}

func (f *fileLogger) getBuffer() *bytes.Buffer {
	buf := f.pool.Get().(*bytes.Buffer)
	buf.Reset()

	return buf
}

func (f *fileLogger) LogEvent(e *analytics.Event) error {
	if e == nil {
		return nil
	}

	b := f.getBuffer()
	defer f.release(b)
	if err := jsonifyEvent(b, e); err != nil {
		return err
	}
	f.print(b)
	return nil
}

func (f *fileLogger) Shutdown() {
	_, _ = f.file.Write([]byte("[fileLogger] Shutdown\n"))
	_ = f.file.Close()
}

func NewFileLogger(filename string) (analytics.Module, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("error creating file logger: %w", err)
	}

	return &fileLogger{
		file:   f,
		logger: log.New(f, "", 0),
		pool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}, nil
}

func jsonifyEvent(buffer *bytes.Buffer, e *analytics.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("telemetry event %s badly formed: %w", e.Event, err)
	}
	_, _ = buffer.Write(b)
	return nil
}
