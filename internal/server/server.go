// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package server implementa o servidor de mensagens (ncourier-server).
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/nishisan-dev/n-courier/internal/config"
	"github.com/nishisan-dev/n-courier/internal/metrics"
	"github.com/nishisan-dev/n-courier/internal/pki"
	"github.com/nishisan-dev/n-courier/internal/store"
)

// Options agrupa as dependências opcionais do server. Qualquer campo nil
// desabilita o recurso correspondente.
type Options struct {
	// Metrics instrumenta o tráfego e a contagem de mensagens.
	Metrics *metrics.Metrics
	// Notify é o canal do sink de persistência.
	Notify chan<- store.ExecNotification
	// Archiver espelha arquivos commitados para armazenamento externo.
	Archiver Archiver
	// SessionLogDir habilita logs dedicados por sessão com falha.
	SessionLogDir string
}

// Run inicia o servidor de mensagens e bloqueia até o context ser cancelado.
func Run(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger, opts Options) error {
	ln, err := Listen(cfg, opts.Metrics)
	if err != nil {
		return err
	}
	defer ln.Close()

	logger.Info("server listening", "address", cfg.Server.Listen, "mtls", cfg.TLS.MTLSEnabled())

	if opts.SessionLogDir == "" {
		opts.SessionLogDir = cfg.Logging.SessionLogDir
	}

	executor := NewExecutor(NewStorage(cfg.Storage.Root), opts.Notify, opts.Archiver, logger)
	return RunWithListener(ctx, ln, executor, logger, opts)
}

// Listen abre o listener de mensagens, com as camadas de TLS e metering
// conforme a configuração.
func Listen(cfg *config.ServerConfig, m *metrics.Metrics) (net.Listener, error) {
	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", cfg.Server.Listen, err)
	}

	if cfg.TLS.MTLSEnabled() {
		tlsCfg, err := pki.NewServerTLSConfig(cfg.TLS.CACert, cfg.TLS.ServerCert, cfg.TLS.ServerKey)
		if err != nil {
			ln.Close()
			return nil, fmt.Errorf("configuring TLS: %w", err)
		}
		ln = NewTLSListener(ln, tlsCfg)
	}

	if m != nil {
		ln = metrics.NewMeteredListener(ln, m)
	}

	return ln, nil
}

// RunWithListener roda o accept loop sobre um listener já existente.
// Cada conexão vira uma sessão em goroutine própria, registrada por endereço
// do peer; no shutdown as conexões abertas são fechadas e o loop espera
// todas as sessões terminarem.
func RunWithListener(ctx context.Context, ln net.Listener, executor *Executor, logger *slog.Logger, opts Options) error {
	var onMessage func()
	if opts.Metrics != nil {
		onMessage = opts.Metrics.MessagesTotal.Inc
	}

	var (
		mu       sync.Mutex
		sessions = make(map[string]net.Conn)
		wg       sync.WaitGroup
	)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		ln.Close()

		mu.Lock()
		for _, conn := range sessions {
			conn.Close()
		}
		mu.Unlock()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			var hsErr *HandshakeError
			switch {
			case ctx.Err() != nil || errors.Is(err, net.ErrClosed):
				wg.Wait()
				logger.Info("server shutdown complete")
				return nil
			case errors.As(err, &hsErr):
				logger.Warn("tls handshake failed", "remote", hsErr.Remote.String(), "error", hsErr.Err)
				continue
			default:
				logger.Error("accepting connection", "error", err)
				continue
			}
		}

		addr := conn.RemoteAddr().String()
		logger.Info("handling connection", "remote", addr)

		mu.Lock()
		sessions[addr] = conn
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				mu.Lock()
				delete(sessions, addr)
				mu.Unlock()
				logger.Info("closing connection", "remote", addr)
			}()

			NewSession(conn, logger, opts.SessionLogDir).Run(ctx, executor, onMessage)
		}()
	}
}
