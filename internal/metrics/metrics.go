// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package metrics define os contadores Prometheus do ncourier-server e o
// wrapper de listener que mede o tráfego das conexões aceitas.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics agrupa os instrumentos do server. Uma instância por processo,
// registrada em um Registry próprio exposto em GET /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTPRequestsTotal conta requests HTTP administrativos, exceto
	// /metrics e /health.
	HTTPRequestsTotal prometheus.Counter
	// MessagesTotal conta mensagens tratadas; um upload streamed conta
	// como uma mensagem.
	MessagesTotal prometheus.Counter
	// MessagesReceivedBytes conta bytes lidos das conexões de mensagens.
	MessagesReceivedBytes prometheus.Counter
	// MessagesSentBytes conta bytes escritos nas conexões de mensagens.
	MessagesSentBytes prometheus.Counter
	// ActiveConnections é o número corrente de sessões abertas.
	ActiveConnections prometheus.Gauge
}

// New cria e registra os instrumentos em um Registry novo.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests over server's lifetime. Excludes metrics and health requests.",
		}),
		MessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total number of messages handled by server. File streaming messages are counted as one.",
		}),
		MessagesReceivedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_received_bytes",
			Help: "Total number of bytes received when handling messages.",
		}),
		MessagesSentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_sent_bytes",
			Help: "Total number of bytes sent when handling messages.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections to the server.",
		}),
	}

	m.Registry.MustRegister(
		m.HTTPRequestsTotal,
		m.MessagesTotal,
		m.MessagesReceivedBytes,
		m.MessagesSentBytes,
		m.ActiveConnections,
	)

	return m
}
