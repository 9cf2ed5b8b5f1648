// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package proto implementa o protocolo de mensagens N-Courier sobre TCP+TLS.
//
// Cada mensagem trafega em um envelope auto-delimitado:
//
//	[Length uint64 big-endian 8B] [Body CBOR de exatamente Length bytes]
//
// O mesmo framing é usado nas duas direções: requests (Client → Server),
// frames de streaming de arquivo (Client → Server, intercalados dentro do
// dispatch de um request *Stream) e responses (Server → Client).
package proto

import "errors"

// MaxFrameSize é o tamanho máximo aceito para o body de um envelope.
// Protege o reader contra alocações gigantes induzidas por um peer hostil
// ou por um length corrompido.
const MaxFrameSize = 512 * 1024 * 1024 // 512MB

// Erros do protocolo.
var (
	ErrFrameTooLarge = errors.New("proto: frame exceeds max size")
	ErrUnknownTag    = errors.New("proto: unknown variant tag")
)
