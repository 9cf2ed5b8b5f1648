// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"fmt"
	"os"
	"path/filepath"
)

// Subdiretórios do root de armazenamento.
const (
	filesSubdir  = "files"
	imagesSubdir = "images"
)

// Storage resolve caminhos de destino dentro do root do server.
// Os subdiretórios files/ e images/ são criados sob demanda, no primeiro
// request que precisar deles.
type Storage struct {
	root string
}

// NewStorage cria um Storage sobre o diretório root.
func NewStorage(root string) *Storage {
	return &Storage{root: root}
}

// Root retorna o diretório raiz do armazenamento.
func (s *Storage) Root() string {
	return s.root
}

// FilePath valida o filename e retorna o caminho de destino em files/,
// criando o diretório se necessário.
func (s *Storage) FilePath(filename string) (string, error) {
	return s.resolve(filesSubdir, filename)
}

// ImagePath valida o filename e retorna o caminho de destino em images/,
// criando o diretório se necessário.
func (s *Storage) ImagePath(filename string) (string, error) {
	return s.resolve(imagesSubdir, filename)
}

func (s *Storage) resolve(subdir, filename string) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s directory: %w", subdir, err)
	}

	path := filepath.Join(dir, filename)
	if err := validatePathInBaseDir(dir, path); err != nil {
		return "", err
	}

	return path, nil
}
