package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"skrut/internal/jobdesc"
)

const shutdownTimeout = 30 * time.Second

// Start serves HTTP until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer, err := s.setupHTTPServer()
	if err != nil {
		return err
	}

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	if err := s.startJobDescriptionWatcher(); err != nil {
		return err
	}

	s.displayServerInfo()

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() (*http.Server, error) {
	if s.Evaluator == nil {
		return nil, fmt.Errorf("server has no evaluator configured")
	}

	return &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           s.Handler(),
		ReadTimeout:       s.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}, nil
}

// startJobDescriptionWatcher reloads the stored job description when the
// file is edited outside the server
func (s *Server) startJobDescriptionWatcher() error {
	if s.AppConfig == nil || !s.AppConfig.JobDescription.Watch || s.JobDescriptions.Path() == "" {
		return nil
	}

	watcher, err := jobdesc.NewWatcher(s.JobDescriptions, 0, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to create job description watcher: %w", err)
	}
	watcher.OnReload(func(string) {
		s.Observability.RecordJobDescriptionUpdate(context.Background(), "file")
	})
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start job description watcher: %w", err)
	}
	s.jdWatch = watcher
	return nil
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// certificates are already loaded into the TLS config
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.cleanup()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cleanup()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanup stops background workers owned by the server
func (s *Server) cleanup() {
	if s.jdWatch != nil {
		if err := s.jdWatch.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop job description watcher")
		}
	}

	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
