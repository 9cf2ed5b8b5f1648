// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/nishisan-dev/n-courier/internal/proto"
)

// streamOf monta o wire de uma sequência de frames de streaming.
func streamOf(t *testing.T, frames ...*proto.StreamFrame) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, f := range frames {
		if _, err := proto.WriteStreamFrame(&buf, f); err != nil {
			t.Fatal(err)
		}
	}
	return &buf
}

func TestReceiveStreamedFile(t *testing.T) {
	content := []byte("streamed content split across frames")
	stream := streamOf(t,
		proto.PayloadFrame(content[:10]),
		proto.PayloadFrame(content[10:]),
		proto.EndFrame(),
	)

	path := filepath.Join(t.TempDir(), "out.bin")
	info, serr := receiveStreamedFile(stream, path, uint64(len(content)))
	if serr != nil {
		t.Fatalf("receiveStreamedFile: %v", serr)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("file content = %q, want %q", got, content)
	}

	if info.length != uint64(len(content)) {
		t.Errorf("length = %d, want %d", info.length, len(content))
	}
	sum := sha256.Sum256(content)
	if info.hash != hex.EncodeToString(sum[:]) {
		t.Errorf("hash = %s, want sha256 of content", info.hash)
	}
	if info.mime == "" {
		t.Error("mime not detected")
	}
}

func TestReceiveStreamedFileEmpty(t *testing.T) {
	// Transferência de zero bytes: só o End.
	stream := streamOf(t, proto.EndFrame())

	path := filepath.Join(t.TempDir(), "empty.bin")
	info, serr := receiveStreamedFile(stream, path, 0)
	if serr != nil {
		t.Fatalf("receiveStreamedFile: %v", serr)
	}
	if info.length != 0 {
		t.Errorf("length = %d, want 0", info.length)
	}
}

func TestReceiveStreamedFileExpectedMore(t *testing.T) {
	stream := streamOf(t,
		proto.PayloadFrame([]byte("short")),
		proto.EndFrame(),
	)

	path := filepath.Join(t.TempDir(), "out.bin")
	_, serr := receiveStreamedFile(stream, path, 100)
	if serr == nil || serr.kind != streamErrExpectedMore {
		t.Fatalf("error = %v, want ExpectedMore", serr)
	}
	if serr.received != 5 || serr.expected != 100 {
		t.Errorf("counters = %d/%d", serr.received, serr.expected)
	}

	// ExpectedMore viaja como Err(Read) para o client.
	if reqErr := serr.toRequestError(); reqErr.Kind != proto.ErrRead {
		t.Errorf("wire error = %s, want Read", reqErr.Kind)
	}
}

func TestReceiveStreamedFileExpectedLess(t *testing.T) {
	stream := streamOf(t,
		proto.PayloadFrame(bytes.Repeat([]byte("x"), 50)),
	)

	path := filepath.Join(t.TempDir(), "out.bin")
	_, serr := receiveStreamedFile(stream, path, 10)
	if serr == nil || serr.kind != streamErrExpectedLess {
		t.Fatalf("error = %v, want ExpectedLess", serr)
	}
	if reqErr := serr.toRequestError(); reqErr.Kind != proto.ErrRead {
		t.Errorf("wire error = %s, want Read", reqErr.Kind)
	}
}

func TestReceiveStreamedFileAbort(t *testing.T) {
	stream := streamOf(t,
		proto.PayloadFrame([]byte("partial")),
		proto.AbortFrame(),
	)

	path := filepath.Join(t.TempDir(), "out.bin")
	_, serr := receiveStreamedFile(stream, path, 100)
	if serr == nil || serr.kind != streamErrAbort {
		t.Fatalf("error = %v, want Abort", serr)
	}

	// O arquivo parcial é removido.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("partial file not removed after abort")
	}

	if reqErr := serr.toRequestError(); reqErr.Kind != proto.ErrClientAbort {
		t.Errorf("wire error = %s, want ClientAbort", reqErr.Kind)
	}
}

func TestReceiveStreamedFileTruncatedStream(t *testing.T) {
	stream := streamOf(t, proto.PayloadFrame([]byte("data")))
	// Sem End e sem bytes suficientes: a próxima leitura falha.

	path := filepath.Join(t.TempDir(), "out.bin")
	_, serr := receiveStreamedFile(stream, path, 100)
	if serr == nil || serr.kind != streamErrRead {
		t.Fatalf("error = %v, want Read", serr)
	}
}

func TestDetectMimePNG(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)
	stream := streamOf(t,
		proto.PayloadFrame(png),
		proto.EndFrame(),
	)

	path := filepath.Join(t.TempDir(), "img.png")
	info, serr := receiveStreamedFile(stream, path, uint64(len(png)))
	if serr != nil {
		t.Fatalf("receiveStreamedFile: %v", serr)
	}
	if info.mime != "image/png" {
		t.Errorf("mime = %q, want image/png", info.mime)
	}
}
