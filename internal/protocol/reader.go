// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// DecodeMessage interpreta o payload de um envelope como uma mensagem.
// O payload deve conter exatamente uma mensagem; bytes excedentes são um
// erro de parse (cada envelope carrega uma mensagem inteira, nada mais).
func DecodeMessage(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("reading message tag: %w", ErrTruncatedMessage)
	}
	tag := data[0]
	body := data[1:]

	switch tag {
	case TagHello:
		if len(body) != 0 {
			return nil, fmt.Errorf("hello carries %d extra bytes: %w", len(body), ErrTruncatedMessage)
		}
		return Hello{}, nil

	case TagKeepAlive:
		if len(body) != 8 {
			return nil, fmt.Errorf("reading keep alive id: %w", ErrTruncatedMessage)
		}
		return KeepAlive{ID: binary.BigEndian.Uint64(body)}, nil

	case TagCountFilesToUpload:
		if len(body) != 8 {
			return nil, fmt.Errorf("reading file count: %w", ErrTruncatedMessage)
		}
		return CountFilesToUpload{Count: binary.BigEndian.Uint64(body)}, nil

	case TagFile:
		if len(body) < 2 {
			return nil, fmt.Errorf("reading filename length: %w", ErrTruncatedMessage)
		}
		nameLen := int(binary.BigEndian.Uint16(body))
		body = body[2:]
		if len(body) != nameLen+8+8+8 {
			return nil, fmt.Errorf("reading file body: %w", ErrTruncatedMessage)
		}
		name := body[:nameLen]
		if !utf8.Valid(name) {
			return nil, ErrInvalidUTF8
		}
		body = body[nameLen:]
		created := binary.BigEndian.Uint64(body)
		if created > math.MaxInt64 {
			return nil, ErrInvalidTimestamp
		}
		return File{
			Filename: string(name),
			Created:  created,
			Size:     binary.BigEndian.Uint64(body[8:]),
			ID:       binary.BigEndian.Uint64(body[16:]),
		}, nil

	case TagFileChunk:
		if len(body) < 8+8+2 {
			return nil, fmt.Errorf("reading file chunk header: %w", ErrTruncatedMessage)
		}
		id := binary.BigEndian.Uint64(body)
		offset := binary.BigEndian.Uint64(body[8:])
		contentSize := int(binary.BigEndian.Uint16(body[16:]))
		body = body[18:]
		if len(body) != contentSize {
			return nil, fmt.Errorf("file chunk announces %d content bytes, has %d: %w",
				contentSize, len(body), ErrTruncatedMessage)
		}
		content := make([]byte, contentSize)
		copy(content, body)
		return FileChunk{ID: id, Offset: offset, Content: content}, nil

	case TagDone:
		if len(body) != 0 {
			return nil, fmt.Errorf("done carries %d extra bytes: %w", len(body), ErrTruncatedMessage)
		}
		return Done{}, nil

	default:
		return nil, fmt.Errorf("tag 0x%02x: %w", tag, ErrUnknownTag)
	}
}
