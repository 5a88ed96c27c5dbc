// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sender

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/mephesto1337/oneway/internal/transport"
)

// maxBurstSize é o burst máximo do token bucket (256KB).
const maxBurstSize = 256 * 1024

// minBurstSize garante que um datagrama inteiro sempre cabe num burst
// (o maior mtu aceito é menor que 128KB).
const minBurstSize = 128 * 1024

// ThrottledSender é um PacketSender com rate limiting por token bucket.
// Limita a emissão a bytesPerSec bytes/segundo, medidos sobre o datagrama
// inteiro (envelope incluso).
type ThrottledSender struct {
	s       transport.PacketSender
	limiter *rate.Limiter
	ctx     context.Context
}

// NewThrottledSender embrulha s com a taxa máxima em bytes/segundo.
// Se bytesPerSec <= 0, retorna s sem throttle (bypass).
func NewThrottledSender(ctx context.Context, s transport.PacketSender, bytesPerSec int64) transport.PacketSender {
	if bytesPerSec <= 0 {
		return s
	}

	burst := int(bytesPerSec)
	if burst > maxBurstSize {
		burst = maxBurstSize
	}
	if burst < minBurstSize {
		burst = minBurstSize
	}

	return &ThrottledSender{
		s:       s,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		ctx:     ctx,
	}
}

// Send espera tokens suficientes para o datagrama e então o emite.
func (ts *ThrottledSender) Send(p []byte) error {
	if err := ts.limiter.WaitN(ts.ctx, len(p)); err != nil {
		return err
	}
	return ts.s.Send(p)
}

// Close fecha o transporte embrulhado.
func (ts *ThrottledSender) Close() error {
	return ts.s.Close()
}
