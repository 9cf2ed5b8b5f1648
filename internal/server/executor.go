// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nishisan-dev/n-courier/internal/proto"
	"github.com/nishisan-dev/n-courier/internal/store"
)

// pngExtension é a única extensão aceita em requests Image/ImageStream.
const pngExtension = ".png"

// Archiver espelha um arquivo commitado para armazenamento externo.
// Implementado pelo archiver S3; nil desabilita o espelhamento.
type Archiver interface {
	Archive(ctx context.Context, path, filename string)
}

// Executor aplica o efeito de cada request: grava arquivos sob o root,
// loga textos e emite notificações para o sink de persistência.
type Executor struct {
	storage  *Storage
	notify   chan<- store.ExecNotification
	archiver Archiver
	logger   *slog.Logger
}

// NewExecutor cria um Executor sobre o root de armazenamento.
// notify e archiver são opcionais (nil desabilita).
func NewExecutor(st *Storage, notify chan<- store.ExecNotification, archiver Archiver, logger *slog.Logger) *Executor {
	return &Executor{storage: st, notify: notify, archiver: archiver, logger: logger}
}

// Exec despacha um request. O stream da sessão é lido apenas pelos requests
// de streaming, que consomem seus frames antes de retornar. Erros retornados
// como *proto.RequestError viajam ao client como estão; os demais são
// embrulhados como MessageExec pela sessão.
func (e *Executor) Exec(ctx context.Context, req *proto.Request, sess *Session) error {
	start := time.Now()

	var notification *store.ExecNotification

	switch req.Kind {
	case proto.KindText:
		e.logger.Info("message received", "from", sess.Nickname(), "text", req.Text)
		text := req.Text
		notification = &store.ExecNotification{Text: &text}

	case proto.KindAnnounceNickname:
		sess.SetNickname(req.Nick)
		e.logger.Info("client set nickname", "nickname", req.Nick)
		return nil

	case proto.KindFile, proto.KindImage:
		info, err := e.receiveInline(req)
		if err != nil {
			return err
		}
		e.logReceive(start, req.Name, info.Length)
		notification = &store.ExecNotification{File: info}

	case proto.KindFileStream, proto.KindImageStream:
		info, err := e.receiveStream(req, sess)
		if err != nil {
			return err
		}
		e.logReceive(start, req.Name, info.Length)
		notification = &store.ExecNotification{File: info}

	default:
		return proto.MessageExecError(fmt.Sprintf("unsupported request %s", req.Kind))
	}

	if notification != nil {
		if notification.File != nil && e.archiver != nil {
			e.archiver.Archive(ctx, filepath.Join(e.storage.Root(), notification.File.Filepath), notification.File.Filename)
		}
		e.emit(ctx, sess, notification)
	}

	return nil
}

// receiveInline grava um arquivo cujo conteúdo veio completo no request.
func (e *Executor) receiveInline(req *proto.Request) (*store.FileInfo, error) {
	path, err := e.destination(req)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, req.Data, 0644); err != nil {
		return nil, proto.MessageExecError(err.Error())
	}

	sum := sha256.Sum256(req.Data)
	sniff := req.Data
	if len(sniff) > sniffBufferSize {
		sniff = sniff[:sniffBufferSize]
	}

	return e.fileInfo(req.Name, path, uint64(len(req.Data)), hex.EncodeToString(sum[:]), mimetype.Detect(sniff).String())
}

// receiveStream consome os frames de streaming da sessão e grava o arquivo.
func (e *Executor) receiveStream(req *proto.Request, sess *Session) (*store.FileInfo, error) {
	path, err := e.destination(req)
	if err != nil {
		// O client ainda vai enviar os frames anunciados; sem consumi-los
		// o próximo tick leria um Payload como request. Drena até End/Abort.
		drainStream(sess.Stream())
		return nil, err
	}

	info, serr := receiveStreamedFile(sess.Stream(), path, req.Size)
	if serr != nil {
		return nil, serr.toRequestError()
	}

	return e.fileInfo(req.Name, path, info.length, info.hash, info.mime)
}

// destination valida o request e resolve o caminho de destino.
func (e *Executor) destination(req *proto.Request) (string, error) {
	switch req.Kind {
	case proto.KindImage, proto.KindImageStream:
		if !strings.HasSuffix(req.Name, pngExtension) {
			return "", proto.MessageExecError("Only .png images are supported")
		}
		path, err := e.storage.ImagePath(req.Name)
		if err != nil {
			return "", proto.MessageExecError(err.Error())
		}
		return path, nil
	default:
		path, err := e.storage.FilePath(req.Name)
		if err != nil {
			return "", proto.MessageExecError(err.Error())
		}
		return path, nil
	}
}

func (e *Executor) fileInfo(filename, path string, length uint64, hash, mime string) (*store.FileInfo, error) {
	rel, err := filepath.Rel(e.storage.Root(), path)
	if err != nil {
		return nil, proto.MessageExecError(err.Error())
	}
	return &store.FileInfo{
		Filename: filename,
		Filepath: rel,
		Mime:     mime,
		Hash:     hash,
		Length:   int64(length),
	}, nil
}

// emit envia a notificação ao sink de persistência, respeitando o cancel do
// context. Com o canal cheio a sessão bloqueia aqui (backpressure).
func (e *Executor) emit(ctx context.Context, sess *Session, n *store.ExecNotification) {
	if e.notify == nil {
		return
	}

	n.Nickname = sess.Nickname()
	n.IP = sess.IP()
	n.Timestamp = time.Now().UTC()

	select {
	case e.notify <- *n:
	case <-ctx.Done():
	}
}

func (e *Executor) logReceive(start time.Time, filename string, length int64) {
	duration := time.Since(start)
	speed := float64(length) / duration.Seconds()
	e.logger.Info("received file",
		"filename", filename,
		"size", humanBytes(float64(length)),
		"duration", duration,
		"speed", humanBytes(speed)+"/s",
	)
}

// drainStream descarta frames de streaming até End, Abort ou erro de leitura.
func drainStream(r io.Reader) {
	for {
		frame, err := proto.ReadStreamFrame(r)
		if err != nil {
			return
		}
		if frame.Kind == proto.FrameEnd || frame.Kind == proto.FrameAbort {
			return
		}
	}
}

// humanBytes formata um tamanho em unidades legíveis (base 1024).
func humanBytes(n float64) string {
	const unit = 1024.0
	if n < unit {
		return fmt.Sprintf("%.0f B", n)
	}
	units := []string{"KiB", "MiB", "GiB", "TiB"}
	value := n
	for _, u := range units {
		value /= unit
		if value < unit {
			return fmt.Sprintf("%.1f %s", value, u)
		}
	}
	return fmt.Sprintf("%.1f PiB", value/unit)
}
