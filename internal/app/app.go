package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/csereviewer/exam-engine/internal/config"
	"github.com/csereviewer/exam-engine/internal/exam"
	"github.com/csereviewer/exam-engine/internal/logging"
	"github.com/csereviewer/exam-engine/internal/progress"
	"github.com/csereviewer/exam-engine/internal/server"
)

// Application aggregates the exam engine's shared infrastructure: the loaded
// question bank, the progress store, and the HTTP server.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	store *progress.Store
	http  *http.Server
}

// New bootstraps logger, question bank, progress store, services, and the
// HTTP server.
func New(cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	repo, err := exam.LoadFromDir(cfg.Bank.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}

	store, err := progress.Open(cfg.Progress.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open progress store: %w", err)
	}

	sampler := exam.NewSampler(repo, logger)
	svc := exam.NewService(repo, sampler, store, store, logger)
	sessions := exam.NewManager(svc, cfg.Session.AutosaveSeconds, logger)

	handlers := server.NewHandlers(svc, sessions, logger)
	apiServer := server.NewHTTPServer(cfg, handlers)

	return &Application{
		cfg:    cfg,
		logger: logger,
		store:  store,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("progress store shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
