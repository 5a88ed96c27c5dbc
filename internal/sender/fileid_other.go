// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

//go:build !unix

package sender

import "io/fs"

// fileID deriva o id do caminho relativo: fora do mundo Unix não há inode
// portável para usar.
func fileID(relPath string, _ fs.FileInfo) uint64 {
	return hashID(relPath)
}
