package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/metrics"
	metricsconfig "github.com/openbidder/bidserver/metrics/config"
)

// shutdownTimeout bounds the graceful shutdown of each server.
const shutdownTimeout = 10 * time.Second

// managedServer is one of the servers run by Listen.
type managedServer struct {
	name     string
	server   *http.Server
	metrics  metrics.MetricsEngine
	listener net.Listener
}

// Listen serves exchange traffic, the admin endpoints and, when a port is configured, Prometheus. It blocks
// until the process receives SIGTERM or SIGINT, then shuts every server down gracefully.
//
// Listen fails without serving anything when one of the ports cannot be bound.
func Listen(cfg *config.Configuration, handler http.Handler, adminHandler http.Handler, metricsEngine *metricsconfig.DetailedMetricsEngine) error {
	var connectionMetrics metrics.MetricsEngine
	if metricsEngine != nil {
		connectionMetrics = metricsEngine
	}

	servers := []*managedServer{
		{name: "Main", server: newMainServer(cfg, handler), metrics: connectionMetrics},
		{name: "Admin", server: newAdminServer(cfg, adminHandler)},
	}
	if cfg.Metrics.Prometheus.Port != 0 {
		prometheusServer, err := newPrometheusServer(cfg, metricsEngine)
		if err != nil {
			return err
		}
		servers = append(servers, &managedServer{name: "Prometheus", server: prometheusServer})
	}

	for i, s := range servers {
		ln, err := newListener(s.server.Addr, s.metrics)
		if err != nil {
			glog.Errorf("%s server: %v", s.name, err)
			for _, bound := range servers[:i] {
				bound.listener.Close()
			}
			return err
		}
		s.listener = ln
	}

	stopSignals := make(chan os.Signal, 1)
	signal.Notify(stopSignals, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(stopSignals)

	done := make(chan struct{})
	stoppers := make([]chan<- os.Signal, 0, len(servers))
	for _, s := range servers {
		stopper := make(chan os.Signal)
		stoppers = append(stoppers, stopper)
		go shutdownAfterSignals(s.server, stopper, done)
		go runServer(s.server, s.name, s.listener)
	}

	wait(stopSignals, done, stoppers...)
	return nil
}

func newAdminServer(cfg *config.Configuration, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    cfg.Host + ":" + strconv.Itoa(cfg.AdminPort),
		Handler: handler,
	}
}

// newMainServer answers exchange requests. Exchanges enforce their own deadlines well below the read
// and write timeouts, which only guard against stalled connections.
func newMainServer(cfg *config.Configuration, handler http.Handler) *http.Server {
	if cfg.EnableGzip {
		handler = gziphandler.GzipHandler(handler)
	}
	return &http.Server{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

func runServer(server *http.Server, name string, listener net.Listener) {
	glog.Infof("%s server starting on: %s", name, server.Addr)
	err := server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		glog.Infof("%s server stopped", name)
		return
	}
	glog.Errorf("%s server quit with error: %v", name, err)
}

// newListener binds address. Connections accepted on it are counted by me, when set.
func newListener(address string, me metrics.MetricsEngine) (net.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for TCP connections on %s: %v", address, err)
	}
	if me != nil {
		ln = &monitorableListener{ln, me}
	}
	return ln, nil
}

// wait forwards the first signal received on inbound to every outbound channel, then blocks until
// each of them has reported on done.
func wait(inbound <-chan os.Signal, done <-chan struct{}, outbound ...chan<- os.Signal) {
	sig := <-inbound
	for _, to := range outbound {
		go sendSignal(to, sig)
	}
	for range outbound {
		<-done
	}
}

func shutdownAfterSignals(server *http.Server, stopper <-chan os.Signal, done chan<- struct{}) {
	sig := <-stopper

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	glog.Infof("Stopping %s because of signal: %s", server.Addr, sig.String())
	if err := server.Shutdown(ctx); err != nil {
		glog.Errorf("Failed to shutdown %s: %v", server.Addr, err)
	}
	done <- struct{}{}
}

func sendSignal(to chan<- os.Signal, sig os.Signal) {
	to <- sig
}
