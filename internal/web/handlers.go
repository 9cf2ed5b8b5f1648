// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/nishisan-dev/n-courier/internal/store"
)

// defaultPageLimit é o limite de mensagens por página quando não informado.
const defaultPageLimit = 50

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>N-Courier</title></head>
<body>
<h1>Messages</h1>
<form method="get" action="/">
  <input type="text" name="username" placeholder="username" value="{{.Username}}">
  <button type="submit">Filter</button>
</form>
<table border="1" cellpadding="4">
  <tr><th>Timestamp</th><th>User</th><th>IP</th><th>Content</th><th></th></tr>
  {{range .Messages}}
  <tr>
    <td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td>
    <td>{{.Nickname}}</td>
    <td>{{.IP}}</td>
    <td>
      {{if .Text}}{{.Text}}{{end}}
      {{if .File}}<a href="/download/{{.PublicID}}">{{.File.Filename}}</a> ({{.File.Length}} bytes, {{.File.Mime}}){{end}}
    </td>
    <td>
      <form method="post" action="/delete">
        <input type="hidden" name="id" value="{{.PublicID}}">
        <button type="submit">Delete</button>
      </form>
    </td>
  </tr>
  {{end}}
</table>
{{if .NextOffset}}<a href="/?username={{.Username}}&offset={{.NextOffset}}&limit={{.Limit}}">Next</a>{{end}}
</body>
</html>
`))

type indexData struct {
	Username   string
	Messages   []store.FullMessage
	Limit      int
	NextOffset int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}

	username := r.URL.Query().Get("username")
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultPageLimit)

	msgs, err := s.repo.Messages(r.Context(), username, offset, limit)
	if err != nil {
		s.logger.Error("listing messages", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data := indexData{Username: username, Messages: msgs, Limit: limit}
	if len(msgs) == limit {
		data.NextOffset = offset + limit
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("rendering index", "error", err)
	}
}

// handleDelete remove metadados por id ou por username. Os bodies em disco
// ficam para o janitor.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	switch {
	case r.PostForm.Get("id") != "":
		var ids []uuid.UUID
		for _, raw := range r.PostForm["id"] {
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid id %q", raw), http.StatusBadRequest)
				return
			}
			ids = append(ids, id)
		}
		if err := s.repo.DeleteByIDs(r.Context(), ids); err != nil {
			s.logger.Error("deleting messages by ids", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	case r.PostForm.Get("username") != "":
		if err := s.repo.DeleteByUsername(r.Context(), r.PostForm.Get("username")); err != nil {
			s.logger.Error("deleting messages by username", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	default:
		http.Error(w, "id or username is required", http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}

	msg, err := s.repo.MessageByPublicID(r.Context(), id)
	if err != nil {
		s.logger.Error("loading message", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if msg == nil {
		http.Error(w, "message doesn't exist", http.StatusNotFound)
		return
	}
	if msg.File == nil {
		http.Error(w, "no file attached to this message", http.StatusNotFound)
		return
	}

	f, err := os.Open(filepath.Join(s.root, msg.File.Filepath))
	if err != nil {
		s.logger.Error("opening file for download", "path", msg.File.Filepath, "error", err)
		http.Error(w, "file not found or not accessible", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	contentType := msg.File.Mime
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(msg.File.Length, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", msg.File.Filename))
	w.Header().Set("X-Hash", "sha256:"+msg.File.Hash)

	http.ServeContent(w, r, msg.File.Filename, time.Time{}, f)
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DiskFreeBytes uint64 `json:"disk_free_bytes,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	if usage, err := disk.UsageWithContext(r.Context(), s.root); err == nil {
		resp.DiskFreeBytes = usage.Free
	} else {
		s.logger.Warn("reading disk usage", "path", s.root, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encoding health response", "error", err)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if key == "limit" && v == 0 {
		return def
	}
	return v
}
