// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sender

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Scanner caminha pelo root de origem e enumera os arquivos regulares a
// transferir, aplicando os globs de exclusão e deduplicando hard links
// pelo id de arquivo.
type Scanner struct {
	root     string
	excludes []string
	logger   *slog.Logger
}

// FileEntry representa um arquivo elegível encontrado pelo scanner.
type FileEntry struct {
	// Path é o caminho absoluto no sistema de origem.
	Path string
	// RelPath é o caminho relativo ao root, como vai no wire.
	RelPath string
	// Info contém os metadados do arquivo.
	Info fs.FileInfo
	// ID é o identificador de transferência (inode na origem).
	ID uint64
}

// NewScanner cria um Scanner para o root e excludes fornecidos.
func NewScanner(root string, excludes []string, logger *slog.Logger) *Scanner {
	return &Scanner{root: root, excludes: excludes, logger: logger}
}

// Scan enumera os arquivos em ordem lexical de caminho. Entradas
// inacessíveis são puladas com warning; diretórios excluídos são podados
// inteiros.
func (s *Scanner) Scan(ctx context.Context) ([]FileEntry, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, err
	}

	var entries []FileEntry
	seen := make(map[uint64]bool)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Warn("could not read entry, skipping", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			s.logger.Warn("entry outside root, skipping", "path", path, "error", err)
			return nil
		}

		if s.isExcluded(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Warn("could not stat, skipping", "path", path, "error", err)
			return nil
		}

		id := fileID(rel, info)
		if seen[id] {
			// Hard link de um arquivo já coletado.
			s.logger.Debug("skipping already visited file", "path", path, "id", id)
			return nil
		}
		seen[id] = true

		entries = append(entries, FileEntry{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Info:    info,
			ID:      id,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// isExcluded verifica se o caminho relativo bate com algum glob de
// exclusão. Suporta:
//   - "*.log"           → match pelo basename
//   - "tmp/**"          → exclui o diretório e todo o conteúdo
//   - "*/cache/"        → trailing slash: match de diretório pelo nome
func (s *Scanner) isExcluded(relPath string, isDir bool) bool {
	base := filepath.Base(relPath)
	parts := strings.Split(relPath, string(os.PathSeparator))

	for _, pattern := range s.excludes {
		if strings.HasSuffix(pattern, "/") {
			if isDir {
				dirPattern := strings.TrimPrefix(strings.TrimSuffix(pattern, "/"), "*/")
				for _, part := range parts {
					if matched, _ := filepath.Match(dirPattern, part); matched {
						return true
					}
				}
			}
			continue
		}

		if strings.HasSuffix(pattern, "/**") {
			prefix := strings.TrimSuffix(pattern, "/**")
			for _, part := range parts {
				if matched, _ := filepath.Match(prefix, part); matched {
					return true
				}
			}
			continue
		}

		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}
