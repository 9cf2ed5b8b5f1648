// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package client

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nishisan-dev/n-courier/internal/proto"
)

// uploadChunkSize é o tamanho dos chunks de upload streamed.
const uploadChunkSize = 4096

// prepareUpload valida o path localmente e monta o request de anúncio do
// stream. Falhas de validação são soft: nada foi escrito na conexão ainda.
func (c *Client) prepareUpload(cmd Command) (*proto.Request, string, error) {
	path := cmd.Arg
	basename := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, "", &SoftError{Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, "", softErrorf("Only files are supported")
	}

	size := uint64(info.Size())

	if cmd.Kind == CommandImage {
		if !strings.HasSuffix(basename, ".png") {
			return nil, "", softErrorf("Only .png images are supported")
		}
		c.logger.Debug("image size", "size", humanBytes(float64(size)))
		return proto.ImageStreamRequest(basename, size), path, nil
	}

	c.logger.Debug("file size", "size", humanBytes(float64(size)))
	return proto.FileStreamRequest(basename, size), path, nil
}

// sendStreamedFile envia o conteúdo do arquivo em frames Payload de até
// 4096 bytes seguidos do End. Erros aqui são hard: o anúncio do stream já
// foi escrito e o server está esperando os frames.
func (c *Client) sendStreamedFile(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	buf := make([]byte, uploadChunkSize)

	var sent, fileBytes int64
	start := time.Now()

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			written, werr := proto.WriteStreamFrame(c.w, proto.PayloadFrame(buf[:n]))
			sent += int64(written)
			fileBytes += int64(n)
			if werr != nil {
				return sent, fmt.Errorf("sending file chunk: %w", werr)
			}
			c.logger.Debug("sent chunk", "total", sent, "chunk", n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return sent, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	written, err := proto.WriteStreamFrame(c.w, proto.EndFrame())
	sent += int64(written)
	if err != nil {
		return sent, fmt.Errorf("sending end of file marker: %w", err)
	}

	speed := float64(fileBytes) / time.Since(start).Seconds()
	c.logger.Info("file sent",
		"file", filepath.Base(path),
		"size", humanBytes(float64(fileBytes)),
		"speed", humanBytes(speed)+"/s",
	)

	return sent, nil
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
