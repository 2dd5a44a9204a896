// Package server decompresses DCL streams and DBC files over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/undbc/config"
)

const (
	DefaultShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg    *config.Config
	log    *logrus.Entry
	router *mux.Router
}

func New(cfg *config.Config) (*Server, error) {
	if cfg == nil || cfg.TOML == nil || cfg.TOML.Server == nil || cfg.TOML.Config == nil {
		return nil, errors.New("config cannot be nil")
	}

	s := &Server{
		cfg: cfg,
		log: logrus.WithField("pkg", "server"),
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/health-check", s.healthCheckHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.versionHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/dbc", s.dbcHandler).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/blast", s.blastHandler).Methods(http.MethodPost)

	return s, nil
}

// Handler returns the routes served by Run.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	llog := s.log.WithFields(logrus.Fields{
		"method": "Run",
	})

	llog.Debug("start")
	defer llog.Debug("exit")

	srv := &http.Server{
		Addr:              s.cfg.TOML.Server.ListenAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		llog.Infof("listening on %s", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "server error")
		}

		return nil
	case <-ctx.Done():
		llog.Debug("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "unable to shut down server")
	}

	return nil
}
