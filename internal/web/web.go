// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package web implementa a interface HTTP administrativa do ncourier-server:
// view das mensagens persistidas, deleção, download de arquivos, métricas
// Prometheus e health check.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nishisan-dev/n-courier/internal/config"
	"github.com/nishisan-dev/n-courier/internal/metrics"
	"github.com/nishisan-dev/n-courier/internal/store"
)

// Server é a view administrativa. repo nil indica persistência desabilitada:
// as rotas de mensagens respondem 503 e metrics/health seguem funcionando.
type Server struct {
	repo    store.Repository
	root    string
	m       *metrics.Metrics
	version string
	started time.Time
	logger  *slog.Logger
}

// New cria a view administrativa sobre o root de armazenamento do server.
func New(repo store.Repository, root string, m *metrics.Metrics, version string, logger *slog.Logger) *Server {
	return &Server{
		repo:    repo,
		root:    root,
		m:       m,
		version: version,
		started: time.Now(),
		logger:  logger,
	}
}

// Handler monta o router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countRequests)

	r.Get("/", s.handleIndex)
	r.Post("/delete", s.handleDelete)
	r.Get("/download/{id}", s.handleDownload)
	r.Get("/health", s.handleHealth)
	if s.m != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.m.Registry, promhttp.HandlerOpts{}))
	}

	return r
}

// Run sobe o listener HTTP e bloqueia até o context ser cancelado.
func (s *Server) Run(ctx context.Context, cfg config.WebConfig) error {
	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web interface listening", "address", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// countRequests alimenta http_requests_total, excluindo métricas e health.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.m != nil && r.URL.Path != "/metrics" && r.URL.Path != "/health" {
			s.m.HTTPRequestsTotal.Inc()
		}
		next.ServeHTTP(w, r)
	})
}
