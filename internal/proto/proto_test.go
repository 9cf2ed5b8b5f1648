// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package proto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
	}{
		{"text", TextRequest("hello there")},
		{"text empty", TextRequest("")},
		{"file", FileRequest("notes.txt", []byte("conteudo"))},
		{"file empty body", FileRequest("empty.bin", []byte{})},
		{"image", ImageRequest("logo.png", []byte{0x89, 'P', 'N', 'G'})},
		{"file stream", FileStreamRequest("bundle.tar", 4096)},
		{"image stream", ImageStreamRequest("shot.png", 1)},
		{"nickname", NicknameRequest("alice")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := WriteRequest(&buf, tt.req)
			if err != nil {
				t.Fatalf("WriteRequest: %v", err)
			}
			if n != buf.Len() {
				t.Errorf("reported %d bytes written, buffer has %d", n, buf.Len())
			}

			got, err := ReadRequest(&buf)
			if err != nil {
				t.Fatalf("ReadRequest: %v", err)
			}
			if got.Kind != tt.req.Kind {
				t.Fatalf("kind = %s, want %s", got.Kind, tt.req.Kind)
			}
			if got.Name != tt.req.Name || got.Text != tt.req.Text ||
				got.Nick != tt.req.Nick || got.Size != tt.req.Size {
				t.Errorf("fields diverge: got %+v, want %+v", got, tt.req)
			}
			if !bytes.Equal(got.Data, tt.req.Data) {
				t.Errorf("data = %x, want %x", got.Data, tt.req.Data)
			}
		})
	}
}

func TestStreamFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame *StreamFrame
	}{
		{"payload", PayloadFrame([]byte("chunk de dados"))},
		{"payload empty", PayloadFrame([]byte{})},
		{"end", EndFrame()},
		{"abort", AbortFrame()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := WriteStreamFrame(&buf, tt.frame); err != nil {
				t.Fatalf("WriteStreamFrame: %v", err)
			}
			got, err := ReadStreamFrame(&buf)
			if err != nil {
				t.Fatalf("ReadStreamFrame: %v", err)
			}
			if got.Kind != tt.frame.Kind {
				t.Fatalf("kind = %s, want %s", got.Kind, tt.frame.Kind)
			}
			if !bytes.Equal(got.Data, tt.frame.Data) {
				t.Errorf("data = %x, want %x", got.Data, tt.frame.Data)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
	}{
		{"ok", OkResponse()},
		{"err read", ErrResponse(ReadError("expected more data"))},
		{"err client abort", ErrResponse(ClientAbortError())},
		{"err message exec", ErrResponse(MessageExecError("no space left on device"))},
		{"err unspecified", ErrResponse(UnspecifiedError("boom"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := WriteResponse(&buf, tt.resp); err != nil {
				t.Fatalf("WriteResponse: %v", err)
			}
			got, err := ReadResponse(&buf)
			if err != nil {
				t.Fatalf("ReadResponse: %v", err)
			}
			if !reflect.DeepEqual(got, tt.resp) {
				t.Errorf("response = %+v, want %+v", got, tt.resp)
			}
		})
	}
}

// Variantes unit devem ir no wire como a string pura da tag, e newtypes como
// um map de uma entrada. Isso é contrato de compatibilidade com clients
// existentes, não detalhe de implementação.
func TestWireEncodingShape(t *testing.T) {
	t.Run("unit variant is bare string", func(t *testing.T) {
		body, err := cbor.Marshal(EndFrame())
		if err != nil {
			t.Fatal(err)
		}
		var s string
		if err := cbor.Unmarshal(body, &s); err != nil || s != "End" {
			t.Fatalf("End frame encoded as %x, want text string \"End\"", body)
		}

		body, err = cbor.Marshal(OkResponse())
		if err != nil {
			t.Fatal(err)
		}
		if err := cbor.Unmarshal(body, &s); err != nil || s != "Ok" {
			t.Fatalf("Ok response encoded as %x, want text string \"Ok\"", body)
		}
	})

	t.Run("newtype variant is single-entry map", func(t *testing.T) {
		body, err := cbor.Marshal(TextRequest("hi"))
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]string
		if err := cbor.Unmarshal(body, &m); err != nil {
			t.Fatalf("decoding as map: %v", err)
		}
		if len(m) != 1 || m["Text"] != "hi" {
			t.Fatalf("Text request encoded as %v, want {Text: hi}", m)
		}
	})

	t.Run("tuple variant is tagged array", func(t *testing.T) {
		body, err := cbor.Marshal(FileStreamRequest("a.bin", 42))
		if err != nil {
			t.Fatal(err)
		}
		var m map[string][]any
		if err := cbor.Unmarshal(body, &m); err != nil {
			t.Fatalf("decoding as map of array: %v", err)
		}
		fields, ok := m["FileStream"]
		if !ok || len(fields) != 2 {
			t.Fatalf("FileStream request encoded as %v", m)
		}
		if name, _ := fields[0].(string); name != "a.bin" {
			t.Errorf("first field = %v, want a.bin", fields[0])
		}
	})
}

func TestUnknownVariantTag(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"unknown unit", "Bogus"},
		{"unknown newtype", map[string]string{"Bogus": "x"}},
		{"two entries", map[string]string{"Text": "a", "Nick": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := cbor.Marshal(tt.body)
			if err != nil {
				t.Fatal(err)
			}
			var req Request
			if err := cbor.Unmarshal(body, &req); !errors.Is(err, ErrUnknownTag) {
				t.Errorf("err = %v, want ErrUnknownTag", err)
			}
		})
	}
}

// Dois envelopes concatenados no mesmo stream devem ser lidos de volta
// intactos, com EOF exato no final — propriedade central do framing.
func TestFrameBoundaries(t *testing.T) {
	var buf bytes.Buffer
	first := []byte("primeiro")
	second := []byte("segundo envelope, maior")

	if _, err := WriteFrame(&buf, first); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteFrame(&buf, second); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("first ReadFrame: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Errorf("first body = %q, want %q", got, first)
	}

	got, err = ReadFrame(&buf)
	if err != nil {
		t.Fatalf("second ReadFrame: %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Errorf("second body = %q, want %q", got, second)
	}

	if _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Errorf("err after last frame = %v, want io.EOF", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	var full bytes.Buffer
	if _, err := WriteFrame(&full, []byte("payload inteiro")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cut  int
	}{
		{"empty stream", 0},
		{"partial header", 3},
		{"header only", frameHeaderSize},
		{"partial body", frameHeaderSize + 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(full.Bytes()[:tt.cut])
			if _, err := ReadFrame(r); err == nil {
				t.Error("expected error on truncated frame")
			}
		})
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var header [frameHeaderSize]byte
	binary.BigEndian.PutUint64(header[:], MaxFrameSize+1)

	_, err := ReadFrame(bytes.NewReader(header[:]))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestResponseResult(t *testing.T) {
	if err := OkResponse().Result(); err != nil {
		t.Errorf("Ok result = %v, want nil", err)
	}

	reqErr := MessageExecError("disk full")
	err := ErrResponse(reqErr).Result()
	if err == nil {
		t.Fatal("Err result = nil")
	}
	var got *RequestError
	if !errors.As(err, &got) || got.Kind != ErrMessageExec {
		t.Errorf("result = %v, want MessageExec", err)
	}
}
