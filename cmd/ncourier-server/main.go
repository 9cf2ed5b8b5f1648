// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nishisan-dev/n-courier/internal/archive"
	"github.com/nishisan-dev/n-courier/internal/config"
	"github.com/nishisan-dev/n-courier/internal/logging"
	"github.com/nishisan-dev/n-courier/internal/metrics"
	"github.com/nishisan-dev/n-courier/internal/server"
	"github.com/nishisan-dev/n-courier/internal/store"
	"github.com/nishisan-dev/n-courier/internal/web"
)

// version é sobrescrito no build via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to server config file (optional)")
	root := flag.String("root", "", "storage root directory (default: current directory)")
	cert := flag.String("cert", "", "path to server certificate (PEM)")
	key := flag.String("key", "", "path to server private key (PEM)")
	caCert := flag.String("ca-cert", "", "path to CA certificate for client verification (PEM)")
	webAddress := flag.String("web-address", "", "admin web listen address (default: 127.0.0.1:8080)")
	noWeb := flag.Bool("no-web", false, "disable the admin web listener")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags têm precedência sobre o YAML.
	if addr := flag.Arg(0); addr != "" {
		cfg.Server.Listen = addr
	}
	if *root != "" {
		cfg.Storage.Root = *root
	}
	if *cert != "" {
		cfg.TLS.ServerCert = *cert
	}
	if *key != "" {
		cfg.TLS.ServerKey = *key
	}
	if *caCert != "" {
		cfg.TLS.CACert = *caCert
	}
	// A view web fica ligada por default; --no-web desliga. Com --config o
	// YAML decide, a menos que as flags digam o contrário.
	if *configPath == "" {
		cfg.Web.Enabled = true
	}
	if *webAddress != "" {
		cfg.Web.Enabled = true
		cfg.Web.Listen = *webAddress
	}
	if *noWeb {
		cfg.Web.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error validating config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logCloser.Close()

	// Context com cancelamento via signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// loadConfig carrega o YAML quando informado; sem --config a configuração
// vem inteira das flags e dos defaults do Validate.
func loadConfig(path string) (*config.ServerConfig, error) {
	if path == "" {
		return &config.ServerConfig{}, nil
	}
	return config.LoadServerConfig(path)
}

// run monta as dependências opcionais (persistência, web, janitor, archive)
// e roda o listener de mensagens até o context ser cancelado.
func run(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) error {
	m := metrics.New()
	opts := server.Options{Metrics: m}

	var repo store.Repository
	if cfg.Database.URL != "" {
		st, err := store.Open(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()
		repo = st

		notify := make(chan store.ExecNotification, store.NotificationBuffer)
		opts.Notify = notify
		go store.RunNotifier(ctx, st, notify, logger)

		logger.Info("persistence enabled")
	}

	if cfg.Janitor.Enabled {
		janitor := store.NewJanitor(repo, cfg.Storage.Root, logger)
		go func() {
			if err := janitor.Run(ctx, cfg.Janitor.Schedule); err != nil {
				logger.Error("janitor error", "error", err)
			}
		}()
	}

	if cfg.Archive.Enabled {
		archiver, err := archive.New(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix, cfg.Archive.Region, logger)
		if err != nil {
			return fmt.Errorf("configuring archive: %w", err)
		}
		opts.Archiver = archiver
	}

	if cfg.Web.Enabled {
		ws := web.New(repo, cfg.Storage.Root, m, version, logger)
		go func() {
			if err := ws.Run(ctx, cfg.Web); err != nil {
				logger.Error("web server error", "error", err)
			}
		}()
	}

	return server.Run(ctx, cfg, logger, opts)
}
