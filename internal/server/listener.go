// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// handshakeTimeout limita quanto tempo um peer pode segurar o handshake TLS.
const handshakeTimeout = 10 * time.Second

// HandshakeError marca uma falha de handshake TLS no accept. O supervisor a
// trata como soft: loga e continua aceitando.
type HandshakeError struct {
	Remote net.Addr
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("tls handshake with %s: %v", e.Remote, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// TLSListener embrulha um listener e completa o handshake mTLS no accept,
// antes da conexão chegar à sessão. Uma falha de handshake fecha a conexão
// e retorna *HandshakeError sem derrubar o listener.
type TLSListener struct {
	inner net.Listener
	cfg   *tls.Config
}

// NewTLSListener cria o wrapper TLS.
func NewTLSListener(inner net.Listener, cfg *tls.Config) *TLSListener {
	return &TLSListener{inner: inner, cfg: cfg}
}

// Accept aceita uma conexão e executa o handshake com deadline.
func (l *TLSListener) Accept() (net.Conn, error) {
	conn, err := l.inner.Accept()
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Server(conn, l.cfg)
	if err := conn.SetDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		conn.Close()
		return nil, &HandshakeError{Remote: conn.RemoteAddr(), Err: err}
	}
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, &HandshakeError{Remote: conn.RemoteAddr(), Err: err}
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, &HandshakeError{Remote: conn.RemoteAddr(), Err: err}
	}

	return tlsConn, nil
}

// Close fecha o listener subjacente.
func (l *TLSListener) Close() error {
	return l.inner.Close()
}

// Addr retorna o endereço do listener subjacente.
func (l *TLSListener) Addr() net.Addr {
	return l.inner.Addr()
}
