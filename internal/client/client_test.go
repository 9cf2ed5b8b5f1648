// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package client

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nishisan-dev/n-courier/internal/proto"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{".quit", Command{Kind: CommandQuit}},
		{".file /tmp/a.txt", Command{Kind: CommandFile, Arg: "/tmp/a.txt"}},
		{".image shot.png", Command{Kind: CommandImage, Arg: "shot.png"}},
		{".nick alice", Command{Kind: CommandNick, Arg: "alice"}},
		{"hello there", Command{Kind: CommandText, Arg: "hello there"}},
		{"", Command{Kind: CommandText, Arg: ""}},
		// Comandos sem argumento (sem espaço) são texto, como digitados.
		{".file", Command{Kind: CommandText, Arg: ".file"}},
		{".quitx", Command{Kind: CommandText, Arg: ".quitx"}},
	}

	for _, tt := range tests {
		if got := ParseCommand(tt.line); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeServer atende uma sequência de requests na outra ponta do pipe e
// devolve Ok para cada um, coletando o que recebeu.
type fakeServer struct {
	conn     net.Conn
	requests chan *proto.Request
	files    chan []byte
}

func startFakeServer(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	t.Cleanup(func() {
		clientSide.Close()
		serverSide.Close()
	})

	fs := &fakeServer{
		conn:     serverSide,
		requests: make(chan *proto.Request, 8),
		files:    make(chan []byte, 8),
	}
	go fs.serve()

	return New(context.Background(), clientSide, 0, testLogger()), fs
}

func (f *fakeServer) serve() {
	for {
		req, err := proto.ReadRequest(f.conn)
		if err != nil {
			return
		}
		f.requests <- req

		if req.Kind == proto.KindFileStream || req.Kind == proto.KindImageStream {
			var content []byte
			for {
				frame, err := proto.ReadStreamFrame(f.conn)
				if err != nil {
					return
				}
				if frame.Kind != proto.FramePayload {
					break
				}
				content = append(content, frame.Data...)
			}
			f.files <- content
		}

		if _, err := proto.WriteResponse(f.conn, proto.OkResponse()); err != nil {
			return
		}
	}
}

func recvRequest(t *testing.T, f *fakeServer) *proto.Request {
	t.Helper()
	select {
	case req := <-f.requests:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no request received")
		return nil
	}
}

func TestExecuteText(t *testing.T) {
	c, fs := startFakeServer(t)

	quit, err := c.Execute(Command{Kind: CommandText, Arg: "hello"})
	if err != nil || quit {
		t.Fatalf("Execute = (%v, %v)", quit, err)
	}

	req := recvRequest(t, fs)
	if req.Kind != proto.KindText || req.Text != "hello" {
		t.Errorf("request = %+v", req)
	}
	if c.SentBytes() == 0 {
		t.Error("sent bytes not accounted")
	}
}

func TestExecuteQuit(t *testing.T) {
	c, _ := startFakeServer(t)

	quit, err := c.Execute(Command{Kind: CommandQuit})
	if err != nil || !quit {
		t.Fatalf("Execute = (%v, %v), want quit", quit, err)
	}
}

func TestExecuteFileUpload(t *testing.T) {
	c, fs := startFakeServer(t)

	content := bytes.Repeat([]byte("upload-data-"), 2000)
	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	quit, err := c.Execute(Command{Kind: CommandFile, Arg: path})
	if err != nil || quit {
		t.Fatalf("Execute = (%v, %v)", quit, err)
	}

	req := recvRequest(t, fs)
	if req.Kind != proto.KindFileStream || req.Name != "payload.bin" || req.Size != uint64(len(content)) {
		t.Errorf("request = %+v", req)
	}

	select {
	case got := <-fs.files:
		if !bytes.Equal(got, content) {
			t.Error("uploaded content diverges")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no file received")
	}
}

func TestExecuteMissingFileIsSoft(t *testing.T) {
	c, _ := startFakeServer(t)

	_, err := c.Execute(Command{Kind: CommandFile, Arg: "/nonexistent/file.bin"})
	var soft *SoftError
	if !errors.As(err, &soft) {
		t.Fatalf("err = %v, want SoftError", err)
	}
}

func TestExecuteImageRequiresPNG(t *testing.T) {
	c, _ := startFakeServer(t)

	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := c.Execute(Command{Kind: CommandImage, Arg: path})
	var soft *SoftError
	if !errors.As(err, &soft) {
		t.Fatalf("err = %v, want SoftError", err)
	}
}

func TestExecuteDirectoryIsSoft(t *testing.T) {
	c, _ := startFakeServer(t)

	_, err := c.Execute(Command{Kind: CommandFile, Arg: t.TempDir()})
	var soft *SoftError
	if !errors.As(err, &soft) {
		t.Fatalf("err = %v, want SoftError", err)
	}
}
