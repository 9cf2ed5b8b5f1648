// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package metrics

import (
	"net"
	"sync"
)

// MeteredListener embrulha um net.Listener e instrumenta cada conexão
// aceita: bytes lidos/escritos alimentam os counters de tráfego e o gauge
// de conexões ativas sobe no accept e desce no close.
type MeteredListener struct {
	inner net.Listener
	m     *Metrics
}

// NewMeteredListener cria o wrapper instrumentado.
func NewMeteredListener(inner net.Listener, m *Metrics) *MeteredListener {
	return &MeteredListener{inner: inner, m: m}
}

// Accept aceita uma conexão e a devolve instrumentada.
func (l *MeteredListener) Accept() (net.Conn, error) {
	conn, err := l.inner.Accept()
	if err != nil {
		return nil, err
	}
	l.m.ActiveConnections.Inc()
	return &meteredConn{Conn: conn, m: l.m}, nil
}

// Close fecha o listener subjacente.
func (l *MeteredListener) Close() error {
	return l.inner.Close()
}

// Addr retorna o endereço do listener subjacente.
func (l *MeteredListener) Addr() net.Addr {
	return l.inner.Addr()
}

// meteredConn contabiliza o tráfego de uma conexão. O decremento do gauge é
// protegido por Once porque Close pode ser chamado mais de uma vez (defer na
// sessão + shutdown do supervisor).
type meteredConn struct {
	net.Conn
	m    *Metrics
	once sync.Once
}

func (c *meteredConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.m.MessagesReceivedBytes.Add(float64(n))
	}
	return n, err
}

func (c *meteredConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if n > 0 {
		c.m.MessagesSentBytes.Add(float64(n))
	}
	return n, err
}

func (c *meteredConn) Close() error {
	c.once.Do(func() { c.m.ActiveConnections.Dec() })
	return c.Conn.Close()
}
