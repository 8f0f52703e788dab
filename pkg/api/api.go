// Package api serves the report index over HTTP.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethpandaops/junitoor/pkg/config"
	"github.com/ethpandaops/junitoor/pkg/reportindex"
	"github.com/sirupsen/logrus"
)

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// ObjectReader fetches uploaded reports. It returns (nil, nil) when the
// object does not exist.
type ObjectReader interface {
	GetObject(ctx context.Context, uri string) ([]byte, error)
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.APIConfig
	index      reportindex.Store
	objects    ObjectReader
	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer creates a new API server over an already started index store.
// objects may be nil when reports are only served from local disk.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.APIConfig,
	index reportindex.Store,
	objects ObjectReader,
) Server {
	return newServer(log, cfg, index, objects)
}

func newServer(
	log logrus.FieldLogger,
	cfg *config.APIConfig,
	index reportindex.Store,
	objects ObjectReader,
) *server {
	return &server{
		log:     log.WithField("component", "api"),
		cfg:     cfg,
		index:   index,
		objects: objects,
	}
}

// Start binds the listener and serves the API in the background.
func (s *server) Start(_ context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Listen).
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *server) Stop() error {
	if s.httpServer != nil {
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	s.log.Info("API server stopped")

	return nil
}
