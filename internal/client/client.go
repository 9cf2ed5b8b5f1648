// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package client implementa o ncourier-client: conexão com o server,
// parsing dos comandos do stdin e envio de mensagens e arquivos.
package client

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/nishisan-dev/n-courier/internal/config"
	"github.com/nishisan-dev/n-courier/internal/pki"
	"github.com/nishisan-dev/n-courier/internal/proto"
)

// SoftError marca uma falha local recuperável (arquivo inexistente, extensão
// errada): o comando é descartado e o loop continua. Qualquer outro erro é
// hard e encerra o client — depois de uma escrita parcial a conexão não tem
// mais framing confiável.
type SoftError struct {
	Err error
}

func (e *SoftError) Error() string {
	return e.Err.Error()
}

func (e *SoftError) Unwrap() error {
	return e.Err
}

func softErrorf(format string, args ...any) error {
	return &SoftError{Err: fmt.Errorf(format, args...)}
}

// Dial conecta ao server, com mTLS quando configurado.
func Dial(cfg *config.ClientConfig) (net.Conn, error) {
	conn, err := net.Dial("tcp", cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Server, err)
	}

	if !cfg.TLS.MTLSEnabled() {
		return conn, nil
	}

	tlsCfg, err := pki.NewClientTLSConfig(cfg.TLS.CACert, cfg.TLS.ClientCert, cfg.TLS.ClientKey, cfg.TLS.ServerName)
	if err != nil {
		conn.Close()
		return nil, err
	}

	tlsConn := tls.Client(conn, tlsCfg)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", cfg.Server, err)
	}

	return tlsConn, nil
}

// Client envia comandos sobre uma conexão estabelecida.
type Client struct {
	conn   net.Conn
	w      io.Writer
	logger *slog.Logger
	// sentBytes acumula o total escrito na conexão, para o log de saída.
	sentBytes int64
}

// New cria um Client. limitRate > 0 limita o upload em bytes/s.
func New(ctx context.Context, conn net.Conn, limitRate int64, logger *slog.Logger) *Client {
	return &Client{
		conn:   conn,
		w:      NewThrottledWriter(ctx, conn, limitRate),
		logger: logger,
	}
}

// SentBytes retorna o total de bytes enviados até aqui.
func (c *Client) SentBytes() int64 {
	return c.sentBytes
}

// Run é o loop principal do client: anuncia o apelido e processa as linhas
// do input até .quit, EOF ou erro hard.
func Run(ctx context.Context, cfg *config.ClientConfig, input io.Reader, logger *slog.Logger) error {
	conn, err := Dial(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("connected", "server", cfg.Server, "mtls", cfg.TLS.MTLSEnabled())

	c := New(ctx, conn, cfg.LimitRate, logger)

	// O apelido da flag é o primeiro comando da sessão.
	commands := []Command{{Kind: CommandNick, Arg: cfg.Nick}}

	scanner := bufio.NewScanner(input)
	for {
		for _, cmd := range commands {
			quit, err := c.Execute(cmd)
			if quit {
				logger.Info("exiting", "sent", humanBytes(float64(c.sentBytes)))
				return nil
			}
			if err != nil {
				var soft *SoftError
				if errors.As(err, &soft) {
					logger.Warn("non-fatal error", "error", soft.Err)
					continue
				}
				return err
			}
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			logger.Info("input closed, exiting", "sent", humanBytes(float64(c.sentBytes)))
			return nil
		}
		commands = []Command{ParseCommand(scanner.Text())}
	}
}

// Execute envia um comando e espera a response. Retorna quit=true para
// .quit. Erros do server são logados e não encerram o loop.
func (c *Client) Execute(cmd Command) (quit bool, err error) {
	var (
		req      *proto.Request
		filePath string
	)

	switch cmd.Kind {
	case CommandQuit:
		return true, nil

	case CommandText:
		req = proto.TextRequest(cmd.Arg)

	case CommandNick:
		req = proto.NicknameRequest(cmd.Arg)

	case CommandFile, CommandImage:
		req, filePath, err = c.prepareUpload(cmd)
		if err != nil {
			return false, err
		}
	}

	n, err := proto.WriteRequest(c.w, req)
	c.sentBytes += int64(n)
	if err != nil {
		return false, fmt.Errorf("sending request: %w", err)
	}

	if filePath != "" {
		sent, err := c.sendStreamedFile(filePath)
		c.sentBytes += sent
		if err != nil {
			return false, err
		}
	}

	c.logger.Info("command sent, waiting for response")
	resp, err := proto.ReadResponse(c.conn)
	if err != nil {
		return false, fmt.Errorf("reading response: %w", err)
	}

	if respErr := resp.Result(); respErr != nil {
		c.logger.Error("server responded with an error", "error", respErr)
	} else {
		c.logger.Info("request was successful")
	}

	return false, nil
}
