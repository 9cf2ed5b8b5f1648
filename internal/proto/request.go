// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package proto

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// RequestKind identifica a variante de um Request.
type RequestKind int

// Variantes de Request. As tags no wire são os nomes das variantes
// (externally-tagged) e fazem parte do contrato de compatibilidade.
const (
	// KindText é uma mensagem de texto.
	KindText RequestKind = iota
	// KindFile é um arquivo inline: nome + conteúdo completo no envelope.
	KindFile
	// KindImage é uma imagem inline; o nome deve terminar em ".png".
	KindImage
	// KindFileStream anuncia um upload de arquivo em chunks de exatamente
	// Size bytes, enviados como StreamFrames após este request.
	KindFileStream
	// KindImageStream é como KindFileStream, com a restrição ".png".
	KindImageStream
	// KindAnnounceNickname define o apelido da sessão corrente.
	KindAnnounceNickname
)

// Tags de variante no wire.
const (
	tagText             = "Text"
	tagFile             = "File"
	tagImage            = "Image"
	tagFileStream       = "FileStream"
	tagImageStream      = "ImageStream"
	tagAnnounceNickname = "AnnounceNickname"
)

// String retorna a tag de wire da variante.
func (k RequestKind) String() string {
	switch k {
	case KindText:
		return tagText
	case KindFile:
		return tagFile
	case KindImage:
		return tagImage
	case KindFileStream:
		return tagFileStream
	case KindImageStream:
		return tagImageStream
	case KindAnnounceNickname:
		return tagAnnounceNickname
	default:
		return fmt.Sprintf("RequestKind(%d)", int(k))
	}
}

// Request representa uma mensagem Client → Server.
// Apenas os campos da variante indicada por Kind são significativos:
//
//	Text:             Text
//	File/Image:       Name, Data
//	*Stream:          Name, Size
//	AnnounceNickname: Nick
type Request struct {
	Kind RequestKind
	Name string
	Data []byte
	Size uint64
	Text string
	Nick string
}

// TextRequest cria um request de mensagem de texto.
func TextRequest(text string) *Request {
	return &Request{Kind: KindText, Text: text}
}

// FileRequest cria um request de arquivo inline.
func FileRequest(name string, data []byte) *Request {
	return &Request{Kind: KindFile, Name: name, Data: data}
}

// ImageRequest cria um request de imagem inline.
func ImageRequest(name string, data []byte) *Request {
	return &Request{Kind: KindImage, Name: name, Data: data}
}

// FileStreamRequest anuncia um upload em chunks de size bytes.
func FileStreamRequest(name string, size uint64) *Request {
	return &Request{Kind: KindFileStream, Name: name, Size: size}
}

// ImageStreamRequest anuncia um upload de imagem em chunks de size bytes.
func ImageStreamRequest(name string, size uint64) *Request {
	return &Request{Kind: KindImageStream, Name: name, Size: size}
}

// NicknameRequest cria um request de anúncio de apelido.
func NicknameRequest(nick string) *Request {
	return &Request{Kind: KindAnnounceNickname, Nick: nick}
}

// MarshalCBOR codifica o request na forma externally-tagged:
// variantes newtype como {tag: valor}, variantes tupla como {tag: [campos]}.
// A ordem dos campos nas tuplas (nome primeiro) é estável no wire.
func (r Request) MarshalCBOR() ([]byte, error) {
	switch r.Kind {
	case KindText:
		return marshalTagged(tagText, r.Text)
	case KindFile:
		return marshalTagged(tagFile, []any{r.Name, r.Data})
	case KindImage:
		return marshalTagged(tagImage, []any{r.Name, r.Data})
	case KindFileStream:
		return marshalTagged(tagFileStream, []any{r.Name, r.Size})
	case KindImageStream:
		return marshalTagged(tagImageStream, []any{r.Name, r.Size})
	case KindAnnounceNickname:
		return marshalTagged(tagAnnounceNickname, r.Nick)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTag, r.Kind)
	}
}

// UnmarshalCBOR decodifica um request externally-tagged.
func (r *Request) UnmarshalCBOR(data []byte) error {
	tag, inner, err := unmarshalTagged(data)
	if err != nil {
		return err
	}

	switch tag {
	case tagText:
		r.Kind = KindText
		return cbor.Unmarshal(inner, &r.Text)
	case tagFile, tagImage:
		r.Kind = KindFile
		if tag == tagImage {
			r.Kind = KindImage
		}
		return unmarshalPair(inner, &r.Name, &r.Data)
	case tagFileStream, tagImageStream:
		r.Kind = KindFileStream
		if tag == tagImageStream {
			r.Kind = KindImageStream
		}
		return unmarshalPair(inner, &r.Name, &r.Size)
	case tagAnnounceNickname:
		r.Kind = KindAnnounceNickname
		return cbor.Unmarshal(inner, &r.Nick)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}

// StreamFrameKind identifica a variante de um StreamFrame.
type StreamFrameKind int

// Variantes de StreamFrame.
const (
	// FramePayload carrega um chunk de dados do arquivo.
	FramePayload StreamFrameKind = iota
	// FrameEnd marca o fim bem-sucedido da transferência.
	FrameEnd
	// FrameAbort cancela a transferência por iniciativa do client.
	FrameAbort
)

const (
	tagPayload = "Payload"
	tagEnd     = "End"
	tagAbort   = "Abort"
)

// String retorna a tag de wire da variante.
func (k StreamFrameKind) String() string {
	switch k {
	case FramePayload:
		return tagPayload
	case FrameEnd:
		return tagEnd
	case FrameAbort:
		return tagAbort
	default:
		return fmt.Sprintf("StreamFrameKind(%d)", int(k))
	}
}

// StreamFrame representa um frame Client → Server enviado após um request
// *Stream. Data só é significativo quando Kind == FramePayload.
type StreamFrame struct {
	Kind StreamFrameKind
	Data []byte
}

// PayloadFrame cria um frame de chunk.
func PayloadFrame(data []byte) *StreamFrame {
	return &StreamFrame{Kind: FramePayload, Data: data}
}

// EndFrame cria o marcador de fim de transferência.
func EndFrame() *StreamFrame {
	return &StreamFrame{Kind: FrameEnd}
}

// AbortFrame cria o marcador de cancelamento.
func AbortFrame() *StreamFrame {
	return &StreamFrame{Kind: FrameAbort}
}

// MarshalCBOR codifica o frame: Payload como {tag: bytes}, End e Abort como
// a tag pura (variantes unit).
func (f StreamFrame) MarshalCBOR() ([]byte, error) {
	switch f.Kind {
	case FramePayload:
		return marshalTagged(tagPayload, f.Data)
	case FrameEnd:
		return cbor.Marshal(tagEnd)
	case FrameAbort:
		return cbor.Marshal(tagAbort)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTag, f.Kind)
	}
}

// UnmarshalCBOR decodifica um frame de streaming.
func (f *StreamFrame) UnmarshalCBOR(data []byte) error {
	tag, inner, err := unmarshalTagged(data)
	if err != nil {
		return err
	}

	switch tag {
	case tagPayload:
		f.Kind = FramePayload
		return cbor.Unmarshal(inner, &f.Data)
	case tagEnd:
		f.Kind = FrameEnd
		return nil
	case tagAbort:
		f.Kind = FrameAbort
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}

// marshalTagged codifica {tag: value}.
func marshalTagged(tag string, value any) ([]byte, error) {
	inner, err := cbor.Marshal(value)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(map[string]cbor.RawMessage{tag: inner})
}

// unmarshalTagged decodifica uma variante externally-tagged: ou uma string
// pura (variante unit, inner == nil) ou um map de exatamente uma entrada.
func unmarshalTagged(data []byte) (string, cbor.RawMessage, error) {
	var tag string
	if err := cbor.Unmarshal(data, &tag); err == nil {
		return tag, nil, nil
	}

	var m map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &m); err != nil {
		return "", nil, fmt.Errorf("decoding variant: %w", err)
	}
	if len(m) != 1 {
		return "", nil, fmt.Errorf("%w: expected single-entry map, got %d entries", ErrUnknownTag, len(m))
	}

	for tag, inner := range m {
		return tag, inner, nil
	}
	return "", nil, ErrUnknownTag // unreachable
}

// unmarshalPair decodifica uma variante tupla de dois campos.
func unmarshalPair[A, B any](data cbor.RawMessage, a *A, b *B) error {
	var fields []cbor.RawMessage
	if err := cbor.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decoding variant fields: %w", err)
	}
	if len(fields) != 2 {
		return fmt.Errorf("expected 2 variant fields, got %d", len(fields))
	}
	if err := cbor.Unmarshal(fields[0], a); err != nil {
		return fmt.Errorf("decoding first variant field: %w", err)
	}
	if err := cbor.Unmarshal(fields[1], b); err != nil {
		return fmt.Errorf("decoding second variant field: %w", err)
	}
	return nil
}
