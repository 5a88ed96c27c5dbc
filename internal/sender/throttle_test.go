// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sender

import (
	"bytes"
	"context"
	"testing"

	"github.com/mephesto1337/oneway/internal/transport"
)

func TestThrottledSender_BypassWhenDisabled(t *testing.T) {
	rec := &transport.RecordingSender{}

	if got := NewThrottledSender(context.Background(), rec, 0); got != transport.PacketSender(rec) {
		t.Error("expected bypass for zero rate")
	}
	if got := NewThrottledSender(context.Background(), rec, -1); got != transport.PacketSender(rec) {
		t.Error("expected bypass for negative rate")
	}
}

func TestThrottledSender_DeliversInOrder(t *testing.T) {
	rec := &transport.RecordingSender{}
	ts := NewThrottledSender(context.Background(), rec, 10*1024*1024)

	var want [][]byte
	for i := 0; i < 20; i++ {
		p := bytes.Repeat([]byte{byte(i)}, 100)
		want = append(want, p)
		if err := ts.Send(p); err != nil {
			t.Fatalf("Send #%d: %v", i, err)
		}
	}

	if len(rec.Datagrams) != len(want) {
		t.Fatalf("expected %d datagrams, got %d", len(want), len(rec.Datagrams))
	}
	for i := range want {
		if !bytes.Equal(rec.Datagrams[i], want[i]) {
			t.Errorf("datagram %d mismatch", i)
		}
	}
}

func TestThrottledSender_CancelledContext(t *testing.T) {
	rec := &transport.RecordingSender{}
	ctx, cancel := context.WithCancel(context.Background())
	// Context já cancelado: WaitN falha antes de consumir tokens, mesmo com
	// o bucket cheio (burst mínimo de minBurstSize).
	ts := NewThrottledSender(ctx, rec, 1)
	cancel()

	if err := ts.Send(bytes.Repeat([]byte{0xFF}, minBurstSize)); err == nil {
		t.Error("expected error from cancelled context")
	}
}
