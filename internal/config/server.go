// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults do server.
const (
	DefaultListenAddress = "127.0.0.1:11111"
	DefaultWebAddress    = "127.0.0.1:8080"
)

// ServerConfig representa a configuração completa do ncourier-server.
// Flags de linha de comando preenchem os campos básicos; o arquivo YAML
// opcional (--config) cobre os blocos estendidos (web, database, janitor,
// archive, logging).
type ServerConfig struct {
	Server   ServerListen   `yaml:"server"`
	TLS      TLSServer      `yaml:"tls"`
	Storage  StorageInfo    `yaml:"storage"`
	Web      WebConfig      `yaml:"web"`
	Database DatabaseConfig `yaml:"database"`
	Janitor  JanitorConfig  `yaml:"janitor"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Logging  LoggingInfo    `yaml:"logging"`
}

// ServerListen contém o endereço de escuta do listener de mensagens.
type ServerListen struct {
	Listen string `yaml:"listen"` // default: "127.0.0.1:11111"
}

// TLSServer contém os caminhos dos certificados mTLS do server.
// Os três paths devem ser informados juntos; vazios = listener TCP puro.
type TLSServer struct {
	CACert     string `yaml:"ca_cert"`
	ServerCert string `yaml:"server_cert"`
	ServerKey  string `yaml:"server_key"`
}

// StorageInfo contém o diretório raiz onde files/ e images/ são criados.
type StorageInfo struct {
	Root string `yaml:"root"` // default: "."
}

// WebConfig configura o listener HTTP administrativo (view de mensagens,
// download, métricas, health).
type WebConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Listen       string        `yaml:"listen"`        // default: "127.0.0.1:8080"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 15s
	IdleTimeout  time.Duration `yaml:"idle_timeout"`  // default: 60s
}

// DatabaseConfig configura a persistência de metadados das mensagens.
// URL vazia desabilita a persistência; a env DATABASE_URL tem precedência.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// JanitorConfig configura a remoção agendada de arquivos órfãos — bodies em
// disco cujas linhas message_file foram deletadas pela view administrativa.
type JanitorConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression, default: "@hourly"
}

// ArchiveConfig configura o espelhamento opcional de arquivos commitados
// para um bucket S3.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
}

// LoggingInfo contém as configurações de log compartilhadas entre binários.
type LoggingInfo struct {
	Level  string `yaml:"level"`  // debug|info|warn|error (default: info)
	Format string `yaml:"format"` // json|text (default: json)
	File   string `yaml:"file"`   // vazio = stdout apenas
	// SessionLogDir habilita um arquivo de log por sessão com falha,
	// criado em {dir}/{nick}/{session-id}.log. Vazio = desabilitado.
	SessionLogDir string `yaml:"session_log_dir"`
}

// MTLSEnabled reporta se os três paths de certificado foram informados.
func (t TLSServer) MTLSEnabled() bool {
	return t.CACert != "" && t.ServerCert != "" && t.ServerKey != ""
}

// NormalizeAddress aplica o default e converte o hostname "localhost" para
// 127.0.0.1, evitando o dual-stack lookup do resolver em dev.
func NormalizeAddress(addr, def string) string {
	if addr == "" {
		return def
	}
	if strings.HasPrefix(addr, "localhost:") {
		return "127.0.0.1" + strings.TrimPrefix(addr, "localhost")
	}
	return addr
}

// LoadServerConfig lê e valida o arquivo YAML de configuração do server.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config: %w", err)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating server config: %w", err)
	}

	return &cfg, nil
}

// Validate aplica defaults e rejeita combinações inválidas. É chamado tanto
// pelo LoadServerConfig quanto pelo main quando a configuração vem só de flags.
func (c *ServerConfig) Validate() error {
	c.Server.Listen = NormalizeAddress(c.Server.Listen, DefaultListenAddress)

	partial := c.TLS.CACert != "" || c.TLS.ServerCert != "" || c.TLS.ServerKey != ""
	if partial && !c.TLS.MTLSEnabled() {
		return fmt.Errorf("tls requires ca_cert, server_cert and server_key together")
	}

	if c.Storage.Root == "" {
		c.Storage.Root = "."
	}

	if c.Web.Enabled {
		c.Web.Listen = NormalizeAddress(c.Web.Listen, DefaultWebAddress)
		if c.Web.ReadTimeout <= 0 {
			c.Web.ReadTimeout = 5 * time.Second
		}
		if c.Web.WriteTimeout <= 0 {
			c.Web.WriteTimeout = 15 * time.Second
		}
		if c.Web.IdleTimeout <= 0 {
			c.Web.IdleTimeout = 60 * time.Second
		}
	}

	// A env tem precedência sobre o YAML, no espírito de twelve-factor.
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}

	if c.Janitor.Enabled {
		if c.Janitor.Schedule == "" {
			c.Janitor.Schedule = "@hourly"
		}
		if c.Database.URL == "" {
			return fmt.Errorf("janitor requires database.url (or DATABASE_URL)")
		}
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when archive is enabled")
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	return nil
}
