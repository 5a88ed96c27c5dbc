// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package receiver

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolvePath junta filename (vindo do wire, não confiável) ao root do
// receiver e valida que o caminho resolvido permanece dentro de root.
// Previne path traversal via "..", caminhos absolutos e afins.
func resolvePath(root, filename string) (string, error) {
	if strings.ContainsRune(filename, 0) {
		return "", fmt.Errorf("filename contains null byte")
	}

	resolved := filepath.Join(root, filepath.FromSlash(filename))

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolving target path: %w", err)
	}

	// filepath.Rel retorna erro se os caminhos não compartilham prefixo.
	rel, err := filepath.Rel(absRoot, absResolved)
	if err != nil {
		return "", fmt.Errorf("path escapes root: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes root %q", filename, root)
	}
	if rel == "." {
		return "", fmt.Errorf("path %q resolves to root itself", filename)
	}

	return absResolved, nil
}
