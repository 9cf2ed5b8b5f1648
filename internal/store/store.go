// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package store persiste os metadados das mensagens recebidas em PostgreSQL
// e serve as consultas da view administrativa. Os bodies dos arquivos ficam
// no filesystem; o banco guarda apenas filename, path, mime, tamanho e hash.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ExecNotification descreve uma mensagem executada com sucesso, emitida pelo
// executor para o sink de persistência. Exatamente um de Text/File é não-nil.
type ExecNotification struct {
	// Nickname é o apelido anunciado pela sessão; vazio se nunca anunciado.
	Nickname  string
	IP        string
	Timestamp time.Time
	Text      *string
	File      *FileInfo
}

// FileInfo descreve um arquivo commitado em disco.
type FileInfo struct {
	Filename string
	// Filepath é relativo ao root de armazenamento do server.
	Filepath string
	Mime     string
	// Hash é o SHA-256 do conteúdo em hex.
	Hash   string
	Length int64
}

// FullMessage é uma linha de message com seu subtipo (texto ou arquivo).
type FullMessage struct {
	MessageID int64
	PublicID  uuid.UUID
	Timestamp time.Time
	Nickname  string
	IP        string
	Text      *string
	File      *FileInfo
}

// Repository expõe as consultas usadas pela view administrativa e pelo
// janitor. Implementado por *Store; a view aceita a interface para permitir
// fakes em teste.
type Repository interface {
	// Messages lista mensagens ordenadas da mais recente para a mais
	// antiga. username vazio não filtra.
	Messages(ctx context.Context, username string, offset, limit int) ([]FullMessage, error)
	// MessageByPublicID retorna nil sem erro quando o id não existe.
	MessageByPublicID(ctx context.Context, id uuid.UUID) (*FullMessage, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
	DeleteByUsername(ctx context.Context, username string) error
	// ReferencedFilepaths retorna os paths (relativos ao root) ainda
	// referenciados por alguma linha message_file.
	ReferencedFilepaths(ctx context.Context) ([]string, error)
}
