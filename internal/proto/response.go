// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package proto

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrorKind identifica a categoria de um erro de request.
type ErrorKind int

// Categorias de erro reportadas ao client.
const (
	// ErrRead indica falha ao ler/decodificar a mensagem — p.ex.
	// incompatibilidade de versão do client ou tamanho divergente em um
	// upload streamed.
	ErrRead ErrorKind = iota
	// ErrClientAbort confirma que o server entendeu um Abort do client.
	ErrClientAbort
	// ErrMessageExec indica falha na execução do request — p.ex. disco
	// cheio ou nome de arquivo inválido.
	ErrMessageExec
	// ErrUnspecified cobre erros sem categoria própria.
	ErrUnspecified
)

const (
	tagOk          = "Ok"
	tagErr         = "Err"
	tagRead        = "Read"
	tagClientAbort = "ClientAbort"
	tagMessageExec = "MessageExec"
	tagUnspecified = "Unspecified"
)

// String retorna a tag de wire da categoria.
func (k ErrorKind) String() string {
	switch k {
	case ErrRead:
		return tagRead
	case ErrClientAbort:
		return tagClientAbort
	case ErrMessageExec:
		return tagMessageExec
	case ErrUnspecified:
		return tagUnspecified
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// RequestError é um erro de request reportável ao client.
// Detail é vazio para ErrClientAbort (variante unit no wire).
type RequestError struct {
	Kind   ErrorKind
	Detail string
}

// Error implementa a interface error, no formato do log do server.
func (e *RequestError) Error() string {
	switch e.Kind {
	case ErrRead:
		return fmt.Sprintf("failed to read message: %s", e.Detail)
	case ErrClientAbort:
		return "abort understood"
	case ErrMessageExec:
		return fmt.Sprintf("message execution error: %s", e.Detail)
	default:
		return fmt.Sprintf("unspecified error: %s", e.Detail)
	}
}

// ReadError cria um erro de leitura de mensagem.
func ReadError(detail string) *RequestError {
	return &RequestError{Kind: ErrRead, Detail: detail}
}

// ClientAbortError cria a confirmação de abort.
func ClientAbortError() *RequestError {
	return &RequestError{Kind: ErrClientAbort}
}

// MessageExecError cria um erro de execução de request.
func MessageExecError(detail string) *RequestError {
	return &RequestError{Kind: ErrMessageExec, Detail: detail}
}

// UnspecifiedError cria um erro sem categoria própria.
func UnspecifiedError(detail string) *RequestError {
	return &RequestError{Kind: ErrUnspecified, Detail: detail}
}

// MarshalCBOR codifica o erro: ClientAbort como tag pura, as demais
// categorias como {tag: detail}.
func (e RequestError) MarshalCBOR() ([]byte, error) {
	switch e.Kind {
	case ErrClientAbort:
		return cbor.Marshal(tagClientAbort)
	case ErrRead, ErrMessageExec, ErrUnspecified:
		return marshalTagged(e.Kind.String(), e.Detail)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTag, e.Kind)
	}
}

// UnmarshalCBOR decodifica um erro de request.
func (e *RequestError) UnmarshalCBOR(data []byte) error {
	tag, inner, err := unmarshalTagged(data)
	if err != nil {
		return err
	}

	switch tag {
	case tagClientAbort:
		e.Kind = ErrClientAbort
		return nil
	case tagRead:
		e.Kind = ErrRead
	case tagMessageExec:
		e.Kind = ErrMessageExec
	case tagUnspecified:
		e.Kind = ErrUnspecified
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return cbor.Unmarshal(inner, &e.Detail)
}

// Response representa uma mensagem Server → Client em resposta a um request.
// Err == nil significa Ok.
type Response struct {
	Err *RequestError
}

// OkResponse cria a response de sucesso.
func OkResponse() *Response {
	return &Response{}
}

// ErrResponse embrulha um erro de request em uma response.
func ErrResponse(err *RequestError) *Response {
	return &Response{Err: err}
}

// Result converte a response em um error Go: nil para Ok, o *RequestError
// para Err. É o que o client propaga ao caller.
func (r *Response) Result() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// MarshalCBOR codifica a response: Ok como tag pura, Err como {Err: erro}.
func (r Response) MarshalCBOR() ([]byte, error) {
	if r.Err == nil {
		return cbor.Marshal(tagOk)
	}
	return marshalTagged(tagErr, r.Err)
}

// UnmarshalCBOR decodifica uma response.
func (r *Response) UnmarshalCBOR(data []byte) error {
	tag, inner, err := unmarshalTagged(data)
	if err != nil {
		return err
	}

	switch tag {
	case tagOk:
		r.Err = nil
		return nil
	case tagErr:
		r.Err = new(RequestError)
		return cbor.Unmarshal(inner, r.Err)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}
