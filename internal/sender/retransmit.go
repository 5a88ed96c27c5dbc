// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sender

import (
	"fmt"

	"github.com/mephesto1337/oneway/internal/protocol"
	"github.com/mephesto1337/oneway/internal/transport"
)

// Retransmit embrulha uma mensagem serializada em um envelope e a emite
// remission_count vezes seguidas. Num link unidirecional uma cópia perdida
// é irrecuperável, então a única alavanca contra perda é a duplicação; o
// receiver colapsa as cópias de volta em uma.
type Retransmit struct {
	datagram []byte
	count    int
}

// NewRetransmit monta o datagrama de payload. Falha com PayloadTooLarge
// quando a mensagem não cabe em um envelope dentro do mtu.
func NewRetransmit(payload []byte, remissionCount, mtu int) (*Retransmit, error) {
	total := len(payload) + protocol.EnvelopeHeaderSize
	if total > mtu {
		return nil, &protocol.PayloadTooLargeError{Size: total, MTU: mtu}
	}
	datagram, err := protocol.EncodeEnvelope(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return &Retransmit{datagram: datagram, count: remissionCount}, nil
}

// Send emite as cópias back-to-back pelo transporte.
func (r *Retransmit) Send(s transport.PacketSender) error {
	for i := 0; i < r.count; i++ {
		if err := s.Send(r.datagram); err != nil {
			return fmt.Errorf("sending copy %d/%d: %w", i+1, r.count, err)
		}
	}
	return nil
}
