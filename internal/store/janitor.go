// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package store

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// orphanMinAge protege arquivos recém-commitados cuja notificação ainda não
// foi inserida pelo sink. Arquivos mais novos que isso nunca são removidos.
const orphanMinAge = time.Hour

// Janitor remove do disco bodies de arquivos cujas linhas message_file foram
// deletadas pela view administrativa. A view remove só os metadados; a
// limpeza do filesystem acontece aqui, no schedule configurado.
type Janitor struct {
	repo   Repository
	root   string
	logger *slog.Logger
}

// NewJanitor cria um Janitor sobre o root de armazenamento do server.
func NewJanitor(repo Repository, root string, logger *slog.Logger) *Janitor {
	return &Janitor{repo: repo, root: root, logger: logger}
}

// Run agenda varreduras com a cron expression dada e bloqueia até o context
// ser cancelado.
func (j *Janitor) Run(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := j.Sweep(ctx); err != nil {
			j.logger.Error("janitor sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

// Sweep remove os arquivos órfãos de files/ e images/.
func (j *Janitor) Sweep(ctx context.Context) error {
	referenced, err := j.repo.ReferencedFilepaths(ctx)
	if err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		keep[filepath.Clean(p)] = struct{}{}
	}

	removed := 0
	for _, subdir := range []string{"files", "images"} {
		dir := filepath.Join(j.root, subdir)
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}

			rel, err := filepath.Rel(j.root, path)
			if err != nil {
				return err
			}
			if _, ok := keep[filepath.Clean(rel)]; ok {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			if time.Since(info.ModTime()) < orphanMinAge {
				return nil
			}

			if err := os.Remove(path); err != nil {
				j.logger.Error("removing orphan file", "path", path, "error", err)
				return nil
			}
			removed++
			j.logger.Info("removed orphan file", "path", rel)
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	if removed > 0 {
		j.logger.Info("janitor sweep complete", "removed", removed)
	}
	return nil
}
