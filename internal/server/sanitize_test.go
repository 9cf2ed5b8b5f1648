// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "notes.txt", false},
		{"valid with dashes", "my-file_v2.tar.gz", false},
		{"valid png", "screenshot.png", false},
		{"empty", "", true},
		{"slash", "dir/file.txt", true},
		{"backslash", `dir\file.txt`, true},
		{"null byte", "file\x00.txt", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"dotdot prefix", "..secret", true},
		{"hidden file", ".bashrc", true},
		{"traversal path", "../../etc/passwd", true},
		{"too long", strings.Repeat("a", maxFilenameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathInBaseDir(t *testing.T) {
	base := t.TempDir()

	if err := validatePathInBaseDir(base, filepath.Join(base, "files", "a.txt")); err != nil {
		t.Errorf("path inside base rejected: %v", err)
	}
	if err := validatePathInBaseDir(base, filepath.Join(base, "..", "escape.txt")); err == nil {
		t.Error("path escaping base accepted")
	}
}

func TestStoragePathsRejectTraversal(t *testing.T) {
	st := NewStorage(t.TempDir())

	if _, err := st.FilePath("../evil.txt"); err == nil {
		t.Error("FilePath accepted traversal name")
	}
	if _, err := st.ImagePath("..\\evil.png"); err == nil {
		t.Error("ImagePath accepted traversal name")
	}

	path, err := st.FilePath("ok.txt")
	if err != nil {
		t.Fatalf("FilePath: %v", err)
	}
	if filepath.Base(path) != "ok.txt" {
		t.Errorf("unexpected path %q", path)
	}
}
