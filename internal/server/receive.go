// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nishisan-dev/n-courier/internal/proto"
)

// sniffBufferSize limita quantos bytes iniciais alimentam a detecção de mime.
const sniffBufferSize = 4096

// streamInfo resume um arquivo recebido com sucesso.
type streamInfo struct {
	length uint64
	// hash é o SHA-256 hex do conteúdo gravado.
	hash string
	mime string
}

// streamErrorKind classifica as falhas do receiver de streaming.
type streamErrorKind int

const (
	// streamErrFs é uma falha de filesystem (criar/gravar/remover).
	streamErrFs streamErrorKind = iota
	// streamErrRead é uma falha de leitura/decodificação de frame.
	streamErrRead
	// streamErrAbort é o cancelamento explícito pelo client.
	streamErrAbort
	// streamErrExpectedMore: o client encerrou com menos bytes que o anunciado.
	streamErrExpectedMore
	// streamErrExpectedLess: o client enviou mais bytes que o anunciado.
	streamErrExpectedLess
)

// streamError é o erro do receiver, com os contadores da transferência.
type streamError struct {
	kind     streamErrorKind
	expected uint64
	received uint64
	err      error
}

func (e *streamError) Error() string {
	switch e.kind {
	case streamErrFs:
		return fmt.Sprintf("file system error: %v", e.err)
	case streamErrRead:
		return fmt.Sprintf("client read error: %v", e.err)
	case streamErrAbort:
		return fmt.Sprintf("client explicitly aborted file transfer without end message, received %d out of %d bytes", e.received, e.expected)
	case streamErrExpectedMore:
		return fmt.Sprintf("expected %d bytes but received %d bytes (not enough)", e.expected, e.received)
	case streamErrExpectedLess:
		return fmt.Sprintf("expected %d bytes but received %d bytes (too many)", e.expected, e.received)
	default:
		return "unknown stream error"
	}
}

func (e *streamError) Unwrap() error {
	return e.err
}

// toRequestError converte para o erro de wire reportado ao client:
// filesystem → MessageExec, abort → ClientAbort, o resto → Read.
func (e *streamError) toRequestError() *proto.RequestError {
	switch e.kind {
	case streamErrFs:
		return proto.MessageExecError(e.err.Error())
	case streamErrAbort:
		return proto.ClientAbortError()
	default:
		return proto.ReadError(e.Error())
	}
}

// receiveStreamedFile consome frames de streaming do reader e grava o
// conteúdo em path, calculando o SHA-256 e alimentando o buffer de sniffing
// durante a escrita — o arquivo nunca é relido do disco.
//
// O loop aceita frames enquanto received <= expected: um chunk que estoura o
// total anunciado ainda é consumido e gravado, e a reconciliação final
// decide o resultado. Em caso de Abort o arquivo parcial é removido
// best-effort.
func receiveStreamedFile(r io.Reader, path string, expected uint64) (*streamInfo, *streamError) {
	file, err := os.Create(path)
	if err != nil {
		return nil, &streamError{kind: streamErrFs, expected: expected, err: err}
	}
	defer file.Close()

	hasher := sha256.New()
	sniff := make([]byte, 0, sniffBufferSize)
	var received uint64

	for received <= expected {
		frame, err := proto.ReadStreamFrame(r)
		if err != nil {
			return nil, &streamError{kind: streamErrRead, expected: expected, received: received, err: err}
		}

		switch frame.Kind {
		case proto.FramePayload:
			if _, err := file.Write(frame.Data); err != nil {
				return nil, &streamError{kind: streamErrFs, expected: expected, received: received, err: err}
			}
			hasher.Write(frame.Data)
			if room := sniffBufferSize - len(sniff); room > 0 {
				sniff = append(sniff, frame.Data[:min(room, len(frame.Data))]...)
			}
			received += uint64(len(frame.Data))

		case proto.FrameAbort:
			// Best-effort: o erro dominante é o abort, não a remoção.
			file.Close()
			if err := os.Remove(path); err != nil {
				return nil, &streamError{kind: streamErrAbort, expected: expected, received: received, err: err}
			}
			return nil, &streamError{kind: streamErrAbort, expected: expected, received: received}

		case proto.FrameEnd:
			return finishStreamedFile(file, hasher, sniff, received, expected)
		}
	}

	return finishStreamedFile(file, hasher, sniff, received, expected)
}

func finishStreamedFile(file *os.File, hasher hash.Hash, sniff []byte, received, expected uint64) (*streamInfo, *streamError) {
	switch {
	case received < expected:
		return nil, &streamError{kind: streamErrExpectedMore, expected: expected, received: received}
	case received > expected:
		return nil, &streamError{kind: streamErrExpectedLess, expected: expected, received: received}
	}

	if err := file.Close(); err != nil {
		return nil, &streamError{kind: streamErrFs, expected: expected, received: received, err: err}
	}

	return &streamInfo{
		length: received,
		hash:   hex.EncodeToString(hasher.Sum(nil)),
		mime:   detectMime(sniff, received),
	}, nil
}

// detectMime classifica o conteúdo pelos primeiros bytes recebidos,
// truncados a min(bufferUsed, received).
func detectMime(sniff []byte, received uint64) string {
	n := uint64(len(sniff))
	if received < n {
		n = received
	}
	return mimetype.Detect(sniff[:n]).String()
}
