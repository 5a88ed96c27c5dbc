// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"encoding/binary"
)

// Formato de um envelope no wire:
//
//	offset 0: magic "1WAY" (4B)
//	offset 4: size uint16 big-endian = len(payload)
//	offset 6: payload (size bytes)
//
// Todo datagrama do protocolo é exatamente um envelope.

// AppendEnvelope anexa a dst um envelope embrulhando payload e retorna o
// slice resultante. Falha com IntegerConversionError se o payload não cabe
// no campo size de 16 bits.
func AppendEnvelope(dst, payload []byte) ([]byte, error) {
	if len(payload) > 0xffff {
		return nil, &IntegerConversionError{
			Field: "envelope size",
			Value: uint64(len(payload)),
			Max:   0xffff,
		}
	}
	dst = append(dst, MagicEnvelope[:]...)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(payload)))
	dst = append(dst, payload...)
	return dst, nil
}

// EncodeEnvelope embrulha payload em um envelope recém-alocado.
func EncodeEnvelope(payload []byte) ([]byte, error) {
	return AppendEnvelope(make([]byte, 0, EnvelopeHeaderSize+len(payload)), payload)
}

// ParseEnvelope tenta extrair um envelope do início de buf. Retorna o
// payload (um sub-slice de buf, sem cópia) e quantos bytes o envelope
// inteiro consumiu.
//
// Erros:
//   - ErrNoData quando buf está vazio;
//   - ErrIncomplete quando há menos bytes que o header ou que o payload
//     anunciado (benigno: aguardar mais dados);
//   - ErrInvalidMagic quando o prefixo não é "1WAY".
func ParseEnvelope(buf []byte) (payload []byte, consumed int, err error) {
	if len(buf) == 0 {
		return nil, 0, ErrNoData
	}
	if len(buf) < EnvelopeHeaderSize {
		// Só reclama do magic quando os bytes já presentes o contradizem.
		if !bytes.HasPrefix(MagicEnvelope[:], buf[:min(len(buf), 4)]) {
			return nil, 0, ErrInvalidMagic
		}
		return nil, 0, ErrIncomplete
	}
	if !bytes.Equal(buf[:4], MagicEnvelope[:]) {
		return nil, 0, ErrInvalidMagic
	}
	size := int(binary.BigEndian.Uint16(buf[4:6]))
	if len(buf) < EnvelopeHeaderSize+size {
		return nil, 0, ErrIncomplete
	}
	return buf[EnvelopeHeaderSize : EnvelopeHeaderSize+size], EnvelopeHeaderSize + size, nil
}
