// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nishisan-dev/n-courier/internal/client"
	"github.com/nishisan-dev/n-courier/internal/config"
	"github.com/nishisan-dev/n-courier/internal/logging"
)

func main() {
	nick := flag.String("nick", "", "nickname announced to the server (required)")
	cert := flag.String("cert", "", "path to client certificate (PEM)")
	key := flag.String("key", "", "path to client private key (PEM)")
	caCert := flag.String("ca-cert", "", "path to CA certificate for server verification (PEM)")
	certDomain := flag.String("cert-domain", "", "expected hostname in the server certificate (default: localhost)")
	limitRate := flag.Int64("limit-rate", 0, "upload rate limit in bytes/s (0 = unlimited)")
	logLevel := flag.String("log-level", "", "log level: debug|info|warn|error")
	flag.Parse()

	cfg := &config.ClientConfig{
		Nick:   *nick,
		Server: flag.Arg(0),
		TLS: config.TLSClient{
			CACert:     *caCert,
			ClientCert: *cert,
			ClientKey:  *key,
			ServerName: *certDomain,
		},
		LimitRate: *limitRate,
		Logging:   config.LoggingInfo{Level: *logLevel},
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error validating config: %v\n", err)
		flag.Usage()
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
		logger.Info("received signal, exiting", "signal", sig)
		cancel()
	}()

	if err := client.Run(ctx, cfg, os.Stdin, logger); err != nil {
		logger.Error("client error", "error", err)
		os.Exit(1)
	}
}
