// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/nishisan-dev/n-courier/internal/logging"
	"github.com/nishisan-dev/n-courier/internal/proto"
)

// Session é o estado de uma conexão de client: o stream, o endereço e o
// apelido anunciado. Cada sessão roda em sua própria goroutine.
type Session struct {
	conn     net.Conn
	addr     net.Addr
	nickname string
	logger   *slog.Logger

	// base é o logger sem o arquivo de sessão, usado como primário do
	// fan-out quando o apelido é anunciado.
	base          *slog.Logger
	id            string
	sessionLogDir string
	logCloser     io.Closer
	// failed marca que a sessão produziu alguma response de erro; o log
	// dedicado só é mantido nesse caso.
	failed bool
}

// NewSession cria uma sessão sobre uma conexão aceita. Com sessionLogDir
// não-vazio, o anúncio do apelido abre um arquivo de log dedicado em
// {dir}/{nick}/{session-id}.log.
func NewSession(conn net.Conn, logger *slog.Logger, sessionLogDir string) *Session {
	addr := conn.RemoteAddr()
	return &Session{
		conn:          conn,
		addr:          addr,
		logger:        logger.With("remote", addr.String()),
		base:          logger,
		id:            uuid.NewString(),
		sessionLogDir: sessionLogDir,
	}
}

// Stream retorna o stream da conexão. Requests de streaming leem seus
// frames diretamente daqui.
func (s *Session) Stream() io.ReadWriter {
	return s.conn
}

// SetNickname registra o apelido anunciado pelo client. O primeiro anúncio
// também abre o log dedicado da sessão, quando configurado.
func (s *Session) SetNickname(nick string) {
	s.nickname = nick

	if s.sessionLogDir == "" || s.logCloser != nil {
		return
	}
	logger, closer, path, err := logging.NewSessionLogger(s.base, s.sessionLogDir, nick, s.id)
	if err != nil {
		s.logger.Warn("could not open session log", "error", err)
		return
	}
	s.logger = logger.With("remote", s.addr.String(), "session", s.id)
	s.logCloser = closer
	s.logger.Debug("session log opened", "path", path)
}

// Nickname retorna o apelido corrente; vazio se nunca anunciado.
func (s *Session) Nickname() string {
	return s.nickname
}

// IP retorna o IP do peer, sem a porta.
func (s *Session) IP() string {
	if host, _, err := net.SplitHostPort(s.addr.String()); err == nil {
		return host
	}
	return s.addr.String()
}

// Run processa requests até a conexão encerrar. Erros de decodificação e de
// execução são soft: viram uma response de erro e o loop segue. Falha ao
// escrever a response é hard e encerra a sessão — o client não tem mais como
// distinguir sucesso de falha.
func (s *Session) Run(ctx context.Context, executor *Executor, onMessage func()) {
	defer s.conn.Close()
	defer func() {
		if s.logCloser == nil {
			return
		}
		s.logCloser.Close()
		if !s.failed {
			logging.RemoveSessionLog(s.sessionLogDir, s.nickname, s.id)
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		if !s.tick(ctx, executor, onMessage) {
			return
		}
	}
}

// tick executa uma iteração: lê um request, despacha, responde.
// Retorna false quando a sessão deve encerrar.
func (s *Session) tick(ctx context.Context, executor *Executor, onMessage func()) bool {
	var resp *proto.Response

	req, err := proto.ReadRequest(s.conn)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false
		}
		s.logger.Debug("failed to read message", "error", err)
		resp = proto.ErrResponse(proto.ReadError(err.Error()))
	} else {
		if onMessage != nil {
			onMessage()
		}
		resp = proto.OkResponse()
		if err := executor.Exec(ctx, req, s); err != nil {
			var reqErr *proto.RequestError
			if !errors.As(err, &reqErr) {
				reqErr = proto.MessageExecError(err.Error())
			}
			resp = proto.ErrResponse(reqErr)
		}
	}

	if resp.Err != nil {
		s.failed = true
	}

	if _, err := proto.WriteResponse(s.conn, resp); err != nil {
		s.failed = true
		s.logger.Debug("failed to send response", "error", err)
		return false
	}

	return true
}
