package server

import (
	"net"
	"sync"

	"github.com/dlgate/download-gate/metrics"
	"github.com/golang/glog"
)

// monitorableListener tracks connection churn on the main server.
type monitorableListener struct {
	net.Listener
	metrics metrics.MetricsEngine
}

type monitorableConnection struct {
	net.Conn
	metrics metrics.MetricsEngine
	once    sync.Once
}

func (l *monitorableConnection) Close() error {
	err := l.Conn.Close()
	l.once.Do(func() {
		if err == nil {
			l.metrics.RecordConnectionClose(true)
		} else {
			glog.Errorf("Error closing connection: %v", err)
			l.metrics.RecordConnectionClose(false)
		}
	})
	return err
}

func (ln *monitorableListener) Accept() (net.Conn, error) {
	conn, err := ln.Listener.Accept()
	if err != nil {
		glog.Errorf("Error accepting connection: %v", err)
		ln.metrics.RecordConnectionAccept(false)
		return conn, err
	}
	ln.metrics.RecordConnectionAccept(true)
	return &monitorableConnection{
		Conn:    conn,
		metrics: ln.metrics,
	}, nil
}
