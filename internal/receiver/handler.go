// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package receiver

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/mephesto1337/oneway/internal/config"
	"github.com/mephesto1337/oneway/internal/protocol"
)

// openFile é um arquivo em recepção: o handle e o offset esperado do
// próximo chunk (a soma dos content_size já escritos, salvo seek por gap).
type openFile struct {
	file     *os.File
	expected uint64
}

// Handler processa a sessão de um único peer. É dono exclusivo do
// reassembler, do mapa de arquivos abertos e do rastreio de keep-alive;
// nada disso é compartilhado com o dispatcher ou com outros handlers.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
	srv    *Server
	sess   *Session

	reassembler *Reassembler
	openFiles   map[uint64]*openFile

	keepAlive    uint64
	hasKeepAlive bool
}

// NewHandler cria o handler de uma sessão recém-criada.
func NewHandler(srv *Server, sess *Session) *Handler {
	return &Handler{
		cfg:         srv.cfg,
		logger:      srv.logger.With("peer", sess.Addr.String()),
		srv:         srv,
		sess:        sess,
		reassembler: NewReassembler(srv.cfg.MTU),
		openFiles:   make(map[uint64]*openFile),
	}
}

// Run consome a fila da sessão até Done, erro fatal ou encerramento por
// TTL. Garante a liberação de todos os arquivos abertos em qualquer
// caminho de saída.
func (h *Handler) Run() {
	defer h.cleanup()

	h.logger.Info("session started")

	for {
		select {
		case buf := <-h.sess.Queue:
			h.reassembler.PushData(buf)
			if done := h.drain(); done {
				return
			}
		case <-h.sess.Quit():
			h.logger.Info("session evicted")
			return
		}
	}
}

// cleanup libera recursos e anuncia o endereço no kill channel para o
// dispatcher remover o mapeamento.
func (h *Handler) cleanup() {
	for id, of := range h.openFiles {
		h.logger.Warn("closing file left open by peer", "id", id, "path", of.file.Name())
		of.file.Close()
	}
	h.openFiles = nil

	h.srv.ActiveSessions.Add(-1)
	select {
	case h.srv.killCh <- h.sess.Addr.String():
	default:
		// Fila de kill cheia: a eviction por TTL recolhe o mapeamento.
	}
	h.logger.Info("session ended")
}

// drain extrai e despacha mensagens enquanto houver chunks completos.
// Retorna true quando a sessão deve encerrar (Done ou erro fatal).
func (h *Handler) drain() bool {
	for {
		chunk, err := h.reassembler.Next()
		if err != nil {
			if errors.Is(err, protocol.ErrNoData) || errors.Is(err, protocol.ErrIncomplete) {
				return false
			}
			h.logger.Error("framing error, terminating session", "error", err)
			return true
		}

		msg, err := protocol.DecodeMessage(chunk)
		if err != nil {
			h.logger.Error("malformed message, terminating session", "error", err)
			return true
		}

		if done := h.dispatch(msg); done {
			return true
		}
	}
}

func (h *Handler) dispatch(msg protocol.Message) bool {
	switch m := msg.(type) {
	case protocol.Hello:
		h.logger.Info("received hello")

	case protocol.KeepAlive:
		h.handleKeepAlive(m)

	case protocol.CountFilesToUpload:
		h.logger.Info("peer will upload files", "count", m.Count)

	case protocol.File:
		h.handleFile(m)

	case protocol.FileChunk:
		return h.handleFileChunk(m)

	case protocol.Done:
		h.logger.Info("received done")
		return true
	}
	return false
}

func (h *Handler) handleKeepAlive(m protocol.KeepAlive) {
	if !h.hasKeepAlive {
		h.keepAlive = m.ID
		h.hasKeepAlive = true
		return
	}
	expected := h.keepAlive + 1 // wraparound de 64 bits
	if m.ID != expected {
		h.logger.Warn("bad keep alive id", "expected", expected, "got", m.ID)
	}
	h.keepAlive = m.ID
}

// handleFile cria o arquivo anunciado, pré-alocado ao tamanho final, antes
// que o primeiro chunk chegue. Falhas de criação não derrubam a sessão: os
// chunks do id ficam órfãos e são logados como unknown id.
func (h *Handler) handleFile(m protocol.File) {
	real, err := resolvePath(h.cfg.Root, m.Filename)
	if err != nil {
		h.logger.Warn("file not under root, ignoring", "filename", m.Filename, "error", err)
		return
	}
	if m.Size > math.MaxInt64 {
		h.logger.Error("file size does not fit", "filename", m.Filename, "size", m.Size)
		return
	}

	if err := os.MkdirAll(filepath.Dir(real), 0755); err != nil {
		h.logger.Error("could not create parent directories", "path", real, "error", err)
		return
	}
	f, err := os.Create(real)
	if err != nil {
		h.logger.Error("could not create file", "path", real, "error", err)
		return
	}
	if err := f.Truncate(int64(m.Size)); err != nil {
		h.logger.Error("could not preallocate file", "path", real, "size", m.Size, "error", err)
		f.Close()
		return
	}

	if old, exists := h.openFiles[m.ID]; exists {
		h.logger.Warn("file id reused, closing previous handle", "id", m.ID)
		old.file.Close()
	}
	h.openFiles[m.ID] = &openFile{file: f}

	h.logger.Info("created file", "path", real, "size", m.Size, "id", m.ID, "created", m.Created)
}

// handleFileChunk aplica um chunk no arquivo do id, fazendo seek quando o
// offset recebido diverge do esperado (gaps viram buracos zerados, já que
// o arquivo foi pré-alocado). Retorna true em erro de I/O: fatal para a
// sessão, nunca para o dispatcher.
func (h *Handler) handleFileChunk(m protocol.FileChunk) bool {
	of, known := h.openFiles[m.ID]

	if len(m.Content) == 0 {
		if !known {
			h.logger.Warn("eof for unknown file id", "id", m.ID)
			return false
		}
		if err := of.file.Close(); err != nil {
			h.logger.Error("closing file", "id", m.ID, "error", err)
		}
		delete(h.openFiles, m.ID)
		h.logger.Info("file complete", "id", m.ID, "bytes", of.expected)
		return false
	}

	if !known {
		h.logger.Warn("chunk for unknown file id, dropping", "id", m.ID, "offset", m.Offset)
		return false
	}

	if m.Offset != of.expected {
		direction := "behind"
		if m.Offset > of.expected {
			direction = "ahead"
		}
		h.logger.Warn("chunk offset mismatch, seeking",
			"id", m.ID, "expected", of.expected, "got", m.Offset, "direction", direction)
		if m.Offset > math.MaxInt64 {
			h.logger.Error("chunk offset does not fit", "id", m.ID, "offset", m.Offset)
			return true
		}
		if _, err := of.file.Seek(int64(m.Offset), io.SeekStart); err != nil {
			h.logger.Error("seeking", "id", m.ID, "offset", m.Offset, "error", err)
			return true
		}
	}

	n, err := of.file.Write(m.Content)
	h.srv.DiskWrite.Add(int64(n))
	if err != nil {
		h.logger.Error("writing chunk", "id", m.ID, "offset", m.Offset, "error", err)
		return true
	}
	of.expected = m.Offset + uint64(len(m.Content))

	h.logger.Debug("wrote chunk", "id", m.ID, "offset", m.Offset, "bytes", len(m.Content))
	return false
}
