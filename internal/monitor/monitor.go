// Package monitor serves the Prometheus metrics and health endpoints.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Handler exposes /metrics from g and a /health probe
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Server is the metrics HTTP server
type Server struct {
	addr string
	ln   net.Listener
	http *http.Server
	log  logrus.FieldLogger
}

// NewServer creates a metrics server listening on addr
func NewServer(addr string, g prometheus.Gatherer, log logrus.FieldLogger) *Server {
	return &Server{
		addr: addr,
		http: &http.Server{
			Handler:           Handler(g),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Listen binds the server address. Run calls it when it has not been called.
func (s *Server) Listen() error {
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	s.ln = ln
	s.log.Infof("Metrics server listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		s.log.WithError(err).Error("Metrics server failed to start")
		return err
	}
	ln := s.ln

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.http.Shutdown(shutdownCtx)
	}()

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Errorf("Metrics server error: %v", err)
		return err
	}
	return nil
}
