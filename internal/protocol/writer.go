// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"fmt"
)

// EncodeMessage serializa uma mensagem para o formato de wire: tag (1B)
// seguida do corpo big-endian da variante.
func EncodeMessage(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case Hello:
		return []byte{TagHello}, nil

	case KeepAlive:
		buf := make([]byte, 0, 1+8)
		buf = append(buf, TagKeepAlive)
		buf = binary.BigEndian.AppendUint64(buf, msg.ID)
		return buf, nil

	case CountFilesToUpload:
		buf := make([]byte, 0, 1+8)
		buf = append(buf, TagCountFilesToUpload)
		buf = binary.BigEndian.AppendUint64(buf, msg.Count)
		return buf, nil

	case File:
		name := []byte(msg.Filename)
		if len(name) > 0xffff {
			return nil, &IntegerConversionError{
				Field: "filename length",
				Value: uint64(len(name)),
				Max:   0xffff,
			}
		}
		buf := make([]byte, 0, 1+2+len(name)+8+8+8)
		buf = append(buf, TagFile)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(name)))
		buf = append(buf, name...)
		buf = binary.BigEndian.AppendUint64(buf, msg.Created)
		buf = binary.BigEndian.AppendUint64(buf, msg.Size)
		buf = binary.BigEndian.AppendUint64(buf, msg.ID)
		return buf, nil

	case FileChunk:
		// Apenas len(Content) bytes vão para o wire; o caller faz o slice
		// do buffer de leitura antes de montar a mensagem.
		if len(msg.Content) > 0xffff {
			return nil, &IntegerConversionError{
				Field: "content size",
				Value: uint64(len(msg.Content)),
				Max:   0xffff,
			}
		}
		buf := make([]byte, 0, fileChunkOverhead+len(msg.Content))
		buf = append(buf, TagFileChunk)
		buf = binary.BigEndian.AppendUint64(buf, msg.ID)
		buf = binary.BigEndian.AppendUint64(buf, msg.Offset)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(msg.Content)))
		buf = append(buf, msg.Content...)
		return buf, nil

	case Done:
		return []byte{TagDone}, nil

	default:
		return nil, fmt.Errorf("protocol: cannot encode message %T", m)
	}
}
