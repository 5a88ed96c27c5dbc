// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestPipe_DeliversWithPeerAddress(t *testing.T) {
	pipe := NewPipe(16)
	defer pipe.Close()

	a := pipe.Sender("peer-a")
	b := pipe.Sender("peer-b")

	if err := a.Send([]byte("from a")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := b.Send([]byte("from b")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 64)
	n, addr, err := pipe.RecvFrom(buf)
	if err != nil {
		t.Fatalf("RecvFrom: %v", err)
	}
	if string(buf[:n]) != "from a" || addr.String() != "peer-a" {
		t.Errorf("unexpected first datagram: %q from %s", buf[:n], addr)
	}

	n, addr, err = pipe.RecvFrom(buf)
	if err != nil {
		t.Fatalf("RecvFrom: %v", err)
	}
	if string(buf[:n]) != "from b" || addr.String() != "peer-b" {
		t.Errorf("unexpected second datagram: %q from %s", buf[:n], addr)
	}
}

func TestPipe_Timeout(t *testing.T) {
	pipe := NewPipe(16)
	defer pipe.Close()
	pipe.SetRecvTimeout(20 * time.Millisecond)

	if _, _, err := pipe.RecvFrom(make([]byte, 16)); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestPipe_DropFunction(t *testing.T) {
	pipe := NewPipe(16)
	defer pipe.Close()
	pipe.SetRecvTimeout(20 * time.Millisecond)

	s := pipe.Sender("peer")
	s.Drop = func(i int, _ []byte) bool { return i == 1 }

	for i := 0; i < 3; i++ {
		if err := s.Send([]byte{byte(i)}); err != nil {
			t.Fatalf("Send #%d: %v", i, err)
		}
	}

	var got []byte
	buf := make([]byte, 16)
	for {
		n, _, err := pipe.RecvFrom(buf)
		if err != nil {
			break
		}
		got = append(got, buf[:n]...)
	}

	if !bytes.Equal(got, []byte{0, 2}) {
		t.Errorf("expected datagrams 0 and 2, got % x", got)
	}
}

func TestPipe_OwnsInjectedBytes(t *testing.T) {
	pipe := NewPipe(16)
	defer pipe.Close()

	s := pipe.Sender("peer")
	data := []byte("mutable")
	if err := s.Send(data); err != nil {
		t.Fatalf("Send: %v", err)
	}
	copy(data, "XXXXXXX")

	buf := make([]byte, 16)
	n, _, err := pipe.RecvFrom(buf)
	if err != nil {
		t.Fatalf("RecvFrom: %v", err)
	}
	if string(buf[:n]) != "mutable" {
		t.Errorf("pipe aliased the caller buffer: %q", buf[:n])
	}
}

func TestPipe_ClosedRecv(t *testing.T) {
	pipe := NewPipe(16)
	pipe.Close()

	if _, _, err := pipe.RecvFrom(make([]byte, 16)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
