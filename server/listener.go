package server

import (
	"net"

	"github.com/openbidder/bidserver/metrics"
)

// monitorableListener counts accepted connections, and monitorableConnection the closed ones.
type monitorableListener struct {
	net.Listener
	metrics metrics.MetricsEngine
}

type monitorableConnection struct {
	net.Conn
	metrics metrics.MetricsEngine
}

func (ln *monitorableListener) Accept() (net.Conn, error) {
	conn, err := ln.Listener.Accept()
	if err != nil {
		ln.metrics.RecordConnectionAccept(false)
		return nil, err
	}
	ln.metrics.RecordConnectionAccept(true)
	return &monitorableConnection{conn, ln.metrics}, nil
}

func (c *monitorableConnection) Close() error {
	err := c.Conn.Close()
	c.metrics.RecordConnectionClose(err == nil)
	return err
}
