package ops

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

var (
	ErrServerStart    = errors.New("operator server failed to start")
	ErrServerShutdown = errors.New("operator server shutdown failed")
)

// Config holds operator API server settings.
type Config struct {
	Addr            string        `env:"OPS_ADDR" envDefault:":8081"`
	ReadTimeout     time.Duration `env:"OPS_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"OPS_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"OPS_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Server runs the operator API over HTTP with graceful shutdown tied to
// the passed context.
type Server struct {
	cfg Config
	log *slog.Logger
}

func NewServer(cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, log: log}
}

// Run serves handler until ctx is cancelled, then drains connections
// within the shutdown timeout. Suitable for errgroup.Go.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.log.Info("operator API listening", slog.String("addr", s.cfg.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Join(ErrServerShutdown, err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Join(ErrServerShutdown, err)
		}
		s.log.Info("operator API stopped")
		return nil

	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Join(ErrServerStart, err)
		}
		return nil
	}
}
