// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package receiver

import (
	"bytes"

	"github.com/mephesto1337/oneway/internal/protocol"
)

// Reassembler reconstitui o stream lógico de um peer a partir dos
// datagramas recebidos: acumula bytes, extrai envelopes completos e
// suprime as cópias redundantes que o sender emite por remission_count.
//
// A janela de supressão tem exatamente 1 mensagem de profundidade: ela
// colapsa as R cópias idênticas consecutivas de uma mensagem em uma só.
// Não detecta reordenações nem rastreia mais de um chunk anterior — num
// link local os datagramas do mesmo peer chegam em ordem, então a janela
// de 1 basta.
type Reassembler struct {
	// buffer acumula bytes recebidos; offset é o cursor de leitura.
	buffer []byte
	offset int

	// mtu dimensiona as realocações de compactação.
	mtu int

	// previous guarda o último chunk aceito, para a supressão.
	previous []byte
}

// NewReassembler cria um Reassembler para um peer.
func NewReassembler(mtu int) *Reassembler {
	return &Reassembler{
		buffer: make([]byte, 0, 2*mtu),
		mtu:    mtu,
	}
}

// PushData acrescenta os bytes de um datagrama ao buffer.
func (r *Reassembler) PushData(p []byte) {
	r.buffer = append(r.buffer, p...)
}

// Next extrai o próximo payload lógico distinto.
//
// Retorna protocol.ErrNoData quando o buffer está vazio e
// protocol.ErrIncomplete quando um envelope parcial aguarda mais bytes;
// ambos são benignos. Qualquer outro erro (magic inválido) é fatal para a
// sessão. O slice retornado é uma cópia própria do caller.
func (r *Reassembler) Next() ([]byte, error) {
	for {
		payload, consumed, err := protocol.ParseEnvelope(r.buffer[r.offset:])
		if err != nil {
			return nil, err
		}

		if bytes.Equal(payload, r.previous) {
			// Cópia redundante: consome do buffer e segue em frente.
			r.consume(consumed)
			continue
		}

		chunk := make([]byte, len(payload))
		copy(chunk, payload)
		r.previous = append(r.previous[:0], payload...)
		r.consume(consumed)
		return chunk, nil
	}
}

// consume avança o cursor e compacta o buffer quando o cursor passa da
// metade da capacidade, copiando a cauda não lida para um buffer novo.
func (r *Reassembler) consume(n int) {
	r.offset += n
	if 2*r.offset <= cap(r.buffer) {
		return
	}

	tail := r.buffer[r.offset:]
	capacity := 2 * r.mtu
	if len(tail) > capacity {
		capacity = 2 * len(tail)
	}
	fresh := make([]byte, len(tail), capacity)
	copy(fresh, tail)
	r.buffer = fresh
	r.offset = 0
}
