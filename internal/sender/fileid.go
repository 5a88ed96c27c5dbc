// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sender

import "hash/fnv"

// hashID deriva um id estável de 64 bits do caminho relativo, para
// plataformas sem inode e para entradas cujo Sys() não expõe um.
func hashID(relPath string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(relPath))
	return h.Sum64()
}
