// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema cria as tabelas de metadados. Idempotente; executado no startup
// quando a persistência está habilitada.
const schema = `
CREATE TABLE IF NOT EXISTS message (
	message_id    BIGSERIAL PRIMARY KEY,
	public_id     UUID NOT NULL UNIQUE,
	timestamp     TIMESTAMP NOT NULL,
	user_nickname VARCHAR NOT NULL,
	user_ip       VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS message_text (
	message_id BIGINT PRIMARY KEY REFERENCES message(message_id) ON DELETE CASCADE,
	text       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS message_file (
	message_id BIGINT PRIMARY KEY REFERENCES message(message_id) ON DELETE CASCADE,
	filename   VARCHAR NOT NULL,
	filepath   VARCHAR NOT NULL,
	length     BIGINT NOT NULL,
	hash       VARCHAR NOT NULL,
	mime       VARCHAR
);
`

// Store implementa Repository sobre um pool pgx.
type Store struct {
	pool *pgxpool.Pool
}

// Open conecta ao PostgreSQL indicado pela URL, valida a conexão e garante
// o schema.
func Open(ctx context.Context, url string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close fecha o pool de conexões.
func (s *Store) Close() {
	s.pool.Close()
}

// Insert grava uma notificação: a linha message e o subtipo correspondente,
// na mesma transação.
func (s *Store) Insert(ctx context.Context, n ExecNotification) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var messageID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO message (public_id, timestamp, user_nickname, user_ip)
		 VALUES ($1, $2, $3, $4)
		 RETURNING message_id`,
		uuid.New(), n.Timestamp.UTC(), n.Nickname, n.IP,
	).Scan(&messageID)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	switch {
	case n.Text != nil:
		_, err = tx.Exec(ctx,
			`INSERT INTO message_text (message_id, text) VALUES ($1, $2)`,
			messageID, *n.Text)
		if err != nil {
			return fmt.Errorf("inserting message text: %w", err)
		}
	case n.File != nil:
		_, err = tx.Exec(ctx,
			`INSERT INTO message_file (message_id, filename, filepath, length, hash, mime)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			messageID, n.File.Filename, n.File.Filepath, n.File.Length, n.File.Hash, nullable(n.File.Mime))
		if err != nil {
			return fmt.Errorf("inserting message file: %w", err)
		}
	default:
		return fmt.Errorf("notification has neither text nor file")
	}

	return tx.Commit(ctx)
}

// Messages implementa Repository.
func (s *Store) Messages(ctx context.Context, username string, offset, limit int) ([]FullMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.message_id, m.public_id, m.timestamp, m.user_nickname, m.user_ip,
		        t.text,
		        f.filename, f.filepath, f.length, f.hash, f.mime
		 FROM message m
		 LEFT JOIN message_text t ON t.message_id = m.message_id
		 LEFT JOIN message_file f ON f.message_id = m.message_id
		 WHERE $1 = '' OR m.user_nickname = $1
		 ORDER BY m.timestamp DESC, m.message_id DESC
		 OFFSET $2 LIMIT $3`,
		username, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []FullMessage
	for rows.Next() {
		m, err := scanFullMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// MessageByPublicID implementa Repository.
func (s *Store) MessageByPublicID(ctx context.Context, id uuid.UUID) (*FullMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.message_id, m.public_id, m.timestamp, m.user_nickname, m.user_ip,
		        t.text,
		        f.filename, f.filepath, f.length, f.hash, f.mime
		 FROM message m
		 LEFT JOIN message_text t ON t.message_id = m.message_id
		 LEFT JOIN message_file f ON f.message_id = m.message_id
		 WHERE m.public_id = $1`,
		id)
	if err != nil {
		return nil, fmt.Errorf("querying message by public id: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanFullMessage(rows)
}

// DeleteByIDs implementa Repository. Remove apenas os metadados; o body em
// disco fica para o janitor.
func (s *Store) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM message WHERE public_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("deleting messages by ids: %w", err)
	}
	return nil
}

// DeleteByUsername implementa Repository.
func (s *Store) DeleteByUsername(ctx context.Context, username string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM message WHERE user_nickname = $1`, username)
	if err != nil {
		return fmt.Errorf("deleting messages by username: %w", err)
	}
	return nil
}

// ReferencedFilepaths implementa Repository.
func (s *Store) ReferencedFilepaths(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT filepath FROM message_file`)
	if err != nil {
		return nil, fmt.Errorf("querying referenced filepaths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning filepath: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func scanFullMessage(rows pgx.Rows) (*FullMessage, error) {
	var (
		m        FullMessage
		text     *string
		filename *string
		filepath *string
		length   *int64
		hash     *string
		mime     *string
	)
	err := rows.Scan(&m.MessageID, &m.PublicID, &m.Timestamp, &m.Nickname, &m.IP,
		&text, &filename, &filepath, &length, &hash, &mime)
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	m.Text = text
	if filename != nil {
		f := FileInfo{Filename: *filename, Filepath: *filepath, Length: *length, Hash: *hash}
		if mime != nil {
			f.Mime = *mime
		}
		m.File = &f
	}
	return &m, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
