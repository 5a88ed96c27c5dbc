// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package receiver

import (
	"bytes"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mephesto1337/oneway/internal/config"
	"github.com/mephesto1337/oneway/internal/protocol"
	"github.com/mephesto1337/oneway/internal/transport"
)

func newTestHandler(t *testing.T, root string) (*Handler, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		MTU:             1024,
		RemissionCount:  3,
		RecvTimeout:     time.Second,
		Root:            root,
		Address:         "127.0.0.1:0",
		ChannelSize:     8,
		SessionTTL:      time.Minute,
		DiskWarnPercent: 100,
	}

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := NewServer(cfg, logger)
	sess, created := srv.sessions.GetOrCreate(transport.PipeAddr{Label: "peer-1"}, cfg.ChannelSize)
	if !created {
		t.Fatal("expected fresh session")
	}
	return NewHandler(srv, sess), &logBuf
}

func TestHandler_TinyFile(t *testing.T) {
	root := t.TempDir()
	h, _ := newTestHandler(t, root)

	h.dispatch(protocol.File{Filename: "a.txt", Created: 1_700_000_000, Size: 5, ID: 7})
	h.dispatch(protocol.FileChunk{ID: 7, Offset: 0, Content: []byte("hello")})
	h.dispatch(protocol.FileChunk{ID: 7, Offset: 5})

	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected %q, got %q", "hello", data)
	}
	if len(h.openFiles) != 0 {
		t.Errorf("expected no open files after eof, got %d", len(h.openFiles))
	}
}

func TestHandler_NestedDirectoriesCreated(t *testing.T) {
	root := t.TempDir()
	h, _ := newTestHandler(t, root)

	h.dispatch(protocol.File{Filename: "deep/nested/c.bin", Created: 1, Size: 2, ID: 1})
	h.dispatch(protocol.FileChunk{ID: 1, Offset: 0, Content: []byte("ok")})
	h.dispatch(protocol.FileChunk{ID: 1, Offset: 2})

	data, err := os.ReadFile(filepath.Join(root, "deep", "nested", "c.bin"))
	if err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("expected %q, got %q", "ok", data)
	}
}

func TestHandler_HolePolicy(t *testing.T) {
	// Chunks em 0 e 2K com K bytes cada, sob um arquivo pré-alocado de 3K:
	// primeira região escrita, [K,2K) zerada, [2K,3K) escrita.
	const k = 16
	root := t.TempDir()
	h, logBuf := newTestHandler(t, root)

	first := bytes.Repeat([]byte{'A'}, k)
	last := bytes.Repeat([]byte{'B'}, k)

	h.dispatch(protocol.File{Filename: "holey.bin", Created: 1, Size: 3 * k, ID: 9})
	h.dispatch(protocol.FileChunk{ID: 9, Offset: 0, Content: first})
	h.dispatch(protocol.FileChunk{ID: 9, Offset: 2 * k, Content: last})
	h.dispatch(protocol.FileChunk{ID: 9, Offset: 3 * k})

	data, err := os.ReadFile(filepath.Join(root, "holey.bin"))
	if err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if len(data) != 3*k {
		t.Fatalf("expected %d bytes, got %d", 3*k, len(data))
	}
	if !bytes.Equal(data[:k], first) {
		t.Error("first region mismatch")
	}
	if !bytes.Equal(data[k:2*k], make([]byte, k)) {
		t.Error("hole region is not zeroed")
	}
	if !bytes.Equal(data[2*k:], last) {
		t.Error("last region mismatch")
	}
	if !strings.Contains(logBuf.String(), "ahead") {
		t.Error("expected a seek-ahead warning in the logs")
	}
}

func TestHandler_UnknownIdDropped(t *testing.T) {
	root := t.TempDir()
	h, logBuf := newTestHandler(t, root)

	if done := h.dispatch(protocol.FileChunk{ID: 99, Offset: 0, Content: []byte("zzz")}); done {
		t.Error("unknown id must not terminate the session")
	}
	if !strings.Contains(logBuf.String(), "unknown file id") {
		t.Error("expected an unknown-id warning")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("reading root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("no file should exist, found %d entries", len(entries))
	}
}

func TestHandler_PathEscapeRefused(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "root")
	if err := os.Mkdir(root, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	h, logBuf := newTestHandler(t, root)

	h.dispatch(protocol.File{Filename: "../evil.txt", Created: 1, Size: 4, ID: 3})
	h.dispatch(protocol.FileChunk{ID: 3, Offset: 0, Content: []byte("pwnd")})

	if _, err := os.Stat(filepath.Join(base, "evil.txt")); !os.IsNotExist(err) {
		t.Error("file escaped the root")
	}
	if len(h.openFiles) != 0 {
		t.Error("escaping file must not be tracked")
	}
	if !strings.Contains(logBuf.String(), "not under root") {
		t.Error("expected a path-escape warning")
	}
}

func TestHandler_KeepAliveWarnings(t *testing.T) {
	countWarnings := func(buf *bytes.Buffer) int {
		return strings.Count(buf.String(), "bad keep alive id")
	}

	t.Run("gap triggers one warning", func(t *testing.T) {
		h, logBuf := newTestHandler(t, t.TempDir())
		h.dispatch(protocol.KeepAlive{ID: 100})
		h.dispatch(protocol.KeepAlive{ID: 102})
		if got := countWarnings(logBuf); got != 1 {
			t.Errorf("expected 1 warning, got %d", got)
		}
	})

	t.Run("sequential ids are silent", func(t *testing.T) {
		h, logBuf := newTestHandler(t, t.TempDir())
		h.dispatch(protocol.KeepAlive{ID: 100})
		h.dispatch(protocol.KeepAlive{ID: 101})
		if got := countWarnings(logBuf); got != 0 {
			t.Errorf("expected no warning, got %d", got)
		}
	})

	t.Run("wraparound is silent", func(t *testing.T) {
		h, logBuf := newTestHandler(t, t.TempDir())
		h.dispatch(protocol.KeepAlive{ID: math.MaxUint64})
		h.dispatch(protocol.KeepAlive{ID: 0})
		if got := countWarnings(logBuf); got != 0 {
			t.Errorf("expected no warning across wraparound, got %d", got)
		}
	})

	t.Run("recovers after mismatch", func(t *testing.T) {
		h, logBuf := newTestHandler(t, t.TempDir())
		h.dispatch(protocol.KeepAlive{ID: 1})
		h.dispatch(protocol.KeepAlive{ID: 5})
		h.dispatch(protocol.KeepAlive{ID: 6})
		if got := countWarnings(logBuf); got != 1 {
			t.Errorf("expected 1 warning (id always updates), got %d", got)
		}
	})
}

func TestHandler_DoneEndsSession(t *testing.T) {
	h, _ := newTestHandler(t, t.TempDir())
	if done := h.dispatch(protocol.Done{}); !done {
		t.Error("done must signal session completion")
	}
}

func TestHandler_CleanupClosesOpenFiles(t *testing.T) {
	root := t.TempDir()
	h, logBuf := newTestHandler(t, root)

	h.dispatch(protocol.File{Filename: "left-open.bin", Created: 1, Size: 10, ID: 4})
	if len(h.openFiles) != 1 {
		t.Fatalf("expected 1 open file, got %d", len(h.openFiles))
	}

	h.cleanup()

	if h.openFiles != nil {
		t.Error("cleanup must release the open file map")
	}
	if !strings.Contains(logBuf.String(), "left open") {
		t.Error("expected a warning about files left open")
	}
}

func TestHandler_MalformedMessageIsFatal(t *testing.T) {
	h, _ := newTestHandler(t, t.TempDir())

	env, err := protocol.EncodeEnvelope([]byte{0x77})
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	h.reassembler.PushData(env)

	if done := h.drain(); !done {
		t.Error("malformed message must terminate the session")
	}
}
