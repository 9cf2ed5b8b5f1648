// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package proto

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// frameHeaderSize é o tamanho do prefixo de length em bytes.
const frameHeaderSize = 8

// WriteFrame escreve um envelope completo: length (uint64 BE) + body.
// Retorna o total de bytes escritos (8 + len(body)).
// Uma escrita parcial do stream subjacente é reportada como erro; em caso de
// sucesso o peer nunca observa um envelope truncado.
func WriteFrame(w io.Writer, body []byte) (int, error) {
	var header [frameHeaderSize]byte
	binary.BigEndian.PutUint64(header[:], uint64(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return 0, fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return 0, fmt.Errorf("writing frame body: %w", err)
	}

	return frameHeaderSize + len(body), nil
}

// ReadFrame lê um envelope completo e retorna o body.
// Lê exatamente 8 + length bytes do stream; em caso de erro a posição do
// stream é indefinida e a conexão deve ser considerada comprometida.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading frame length: %w", err)
	}

	length := binary.BigEndian.Uint64(header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes: %w", length, ErrFrameTooLarge)
	}

	// Buffer dimensionado exatamente para o length anunciado — sem alocação
	// especulativa.
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}

	return body, nil
}

// WriteRequest serializa e envia um request (Client → Server).
func WriteRequest(w io.Writer, req *Request) (int, error) {
	body, err := cbor.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encoding request: %w", err)
	}
	return WriteFrame(w, body)
}

// ReadRequest lê e decodifica um request (Server side).
func ReadRequest(r io.Reader) (*Request, error) {
	body, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}

	var req Request
	if err := cbor.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return &req, nil
}

// WriteStreamFrame serializa e envia um frame de streaming de arquivo.
func WriteStreamFrame(w io.Writer, frame *StreamFrame) (int, error) {
	body, err := cbor.Marshal(frame)
	if err != nil {
		return 0, fmt.Errorf("encoding stream frame: %w", err)
	}
	return WriteFrame(w, body)
}

// ReadStreamFrame lê e decodifica um frame de streaming de arquivo.
func ReadStreamFrame(r io.Reader) (*StreamFrame, error) {
	body, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}

	var frame StreamFrame
	if err := cbor.Unmarshal(body, &frame); err != nil {
		return nil, fmt.Errorf("decoding stream frame: %w", err)
	}
	return &frame, nil
}

// WriteResponse serializa e envia uma response (Server → Client).
func WriteResponse(w io.Writer, resp *Response) (int, error) {
	body, err := cbor.Marshal(resp)
	if err != nil {
		return 0, fmt.Errorf("encoding response: %w", err)
	}
	return WriteFrame(w, body)
}

// ReadResponse lê e decodifica uma response (Client side).
func ReadResponse(r io.Reader) (*Response, error) {
	body, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := cbor.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}
