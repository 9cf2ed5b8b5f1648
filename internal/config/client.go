// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
)

// ClientConfig representa a configuração do ncourier-client, montada a
// partir das flags de linha de comando.
type ClientConfig struct {
	// Nick é o apelido anunciado ao server na abertura da sessão.
	Nick string
	// Server é o endereço host:port do ncourier-server.
	Server string
	// TLS habilita mTLS quando os três paths estão presentes.
	TLS TLSClient
	// LimitRate limita o upload em bytes/s; 0 = sem limite.
	LimitRate int64
	Logging   LoggingInfo
}

// TLSClient contém os caminhos dos certificados mTLS do client.
type TLSClient struct {
	CACert     string
	ClientCert string
	ClientKey  string
	// ServerName é o hostname esperado no certificado do server
	// (flag --cert-domain, default "localhost").
	ServerName string
}

// MTLSEnabled reporta se os três paths de certificado foram informados.
func (t TLSClient) MTLSEnabled() bool {
	return t.CACert != "" && t.ClientCert != "" && t.ClientKey != ""
}

// Validate aplica defaults e rejeita combinações inválidas.
func (c *ClientConfig) Validate() error {
	if c.Nick == "" {
		return fmt.Errorf("nick is required")
	}

	c.Server = NormalizeAddress(c.Server, DefaultListenAddress)

	partial := c.TLS.CACert != "" || c.TLS.ClientCert != "" || c.TLS.ClientKey != ""
	if partial && !c.TLS.MTLSEnabled() {
		return fmt.Errorf("tls requires ca-cert, cert and key together")
	}
	if c.TLS.ServerName == "" {
		c.TLS.ServerName = "localhost"
	}

	if c.LimitRate < 0 {
		return fmt.Errorf("limit-rate must be >= 0, got %d", c.LimitRate)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	return nil
}
