// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

//go:build unix

package sender

import (
	"io/fs"
	"syscall"
)

// fileID retorna o inode do arquivo como id de transferência. O inode é
// estável pela duração do envio e já deduplica hard links no walk.
func fileID(relPath string, info fs.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ino
	}
	return hashID(relPath)
}
