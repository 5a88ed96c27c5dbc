// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package sender implementa o lado emissor do oneway: enumeração de
// arquivos, sessão de envio e o modo daemon agendado.
package sender

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mephesto1337/oneway/internal/config"
	"github.com/mephesto1337/oneway/internal/protocol"
	"github.com/mephesto1337/oneway/internal/transport"
)

// Client é a sessão de envio de um transfer. Emite cada mensagem via
// Retransmit e nunca espera nada de volta: o canal é unidirecional.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger
	sender transport.PacketSender

	// keepAlive é o contador com wraparound; parte de um valor aleatório
	// de um RNG de verdade.
	keepAlive uint64
}

// NewClient cria a sessão sobre um transporte já conectado.
func NewClient(cfg *config.Config, logger *slog.Logger, s transport.PacketSender) *Client {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// crypto/rand não falha em sistemas sãos; registrar é o suficiente.
		logger.Error("could not seed keep alive counter", "error", err)
	}
	return &Client{
		cfg:       cfg,
		logger:    logger,
		sender:    s,
		keepAlive: binary.BigEndian.Uint64(seed[:]),
	}
}

// sendMessage serializa, embrulha e emite uma mensagem com repetição.
func (c *Client) sendMessage(m protocol.Message) error {
	raw, err := protocol.EncodeMessage(m)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	rt, err := NewRetransmit(raw, c.cfg.RemissionCount, c.cfg.MTU)
	if err != nil {
		return err
	}
	return rt.Send(c.sender)
}

// SendHello abre a sessão.
func (c *Client) SendHello() error {
	if err := c.sendMessage(protocol.Hello{}); err != nil {
		return err
	}
	c.logger.Info("sent hello")
	return nil
}

// SendKeepAlive emite o contador atual e o incrementa com wraparound.
func (c *Client) SendKeepAlive() error {
	id := c.keepAlive
	c.keepAlive++
	if err := c.sendMessage(protocol.KeepAlive{ID: id}); err != nil {
		return err
	}
	c.logger.Debug("sent keep alive", "id", id)
	return nil
}

// SendDone encerra a sessão.
func (c *Client) SendDone() error {
	if err := c.sendMessage(protocol.Done{}); err != nil {
		return err
	}
	c.logger.Info("sent done")
	return nil
}

// SendFiles transfere os arquivos enumerados: primeiro todos os anúncios
// de criação, depois os conteúdos, arquivo a arquivo. O receiver cria
// cada arquivo pré-alocado assim que recebe o anúncio, então os chunks
// nunca chegam antes do handle existir.
func (c *Client) SendFiles(ctx context.Context, entries []FileEntry) error {
	if err := c.sendMessage(protocol.CountFilesToUpload{Count: uint64(len(entries))}); err != nil {
		return err
	}
	c.logger.Info("announced file count", "count", len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.sendFileCreation(entry); err != nil {
			return fmt.Errorf("announcing %s: %w", entry.RelPath, err)
		}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.sendFileContent(entry); err != nil {
			return fmt.Errorf("sending %s: %w", entry.RelPath, err)
		}
		if err := c.SendKeepAlive(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) sendFileCreation(entry FileEntry) error {
	created := entry.Info.ModTime().Unix()
	if created < 0 {
		created = 0
	}

	err := c.sendMessage(protocol.File{
		Filename: entry.RelPath,
		Created:  uint64(created),
		Size:     uint64(entry.Info.Size()),
		ID:       entry.ID,
	})
	if err != nil {
		return err
	}
	c.logger.Debug("announced file", "filename", entry.RelPath, "size", entry.Info.Size(), "id", entry.ID)
	return nil
}

// sendFileContent emite o conteúdo em chunks dimensionados para caber,
// com o prefixo da mensagem e o envelope, em um único datagrama. Um read
// de 0 bytes (EOF) vira o chunk sentinela que manda o receiver fechar o
// arquivo.
func (c *Client) sendFileContent(entry FileEntry) error {
	f, err := os.Open(entry.Path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	maxContent := protocol.MaxContentSize(c.cfg.MTU)
	buf := make([]byte, maxContent)
	var offset uint64

	for {
		n, err := f.Read(buf)
		if n > 0 {
			chunk := protocol.FileChunk{
				ID:      entry.ID,
				Offset:  offset,
				Content: buf[:n],
			}
			if serr := c.sendMessage(chunk); serr != nil {
				return serr
			}
			offset += uint64(n)
		}
		if err == io.EOF {
			eof := protocol.FileChunk{ID: entry.ID, Offset: offset}
			if serr := c.sendMessage(eof); serr != nil {
				return serr
			}
			c.logger.Info("file sent", "filename", entry.RelPath, "bytes", offset)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
	}
}

// Run executa um transfer completo: conecta, enumera e envia.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, excludes []string) error {
	udp, err := transport.DialUDP(cfg.Address)
	if err != nil {
		return fmt.Errorf("connecting sender: %w", err)
	}
	defer udp.Close()

	logger.Info("sender connected", "address", cfg.Address, "root", cfg.Root)

	var s transport.PacketSender = udp
	if cfg.RateLimit > 0 {
		logger.Info("rate limit enabled", "bytes_per_sec", cfg.RateLimit)
		s = NewThrottledSender(ctx, s, cfg.RateLimit)
	}

	entries, err := NewScanner(cfg.Root, excludes, logger).Scan(ctx)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", cfg.Root, err)
	}
	logger.Info("scan complete", "files", len(entries))

	return RunWithSender(ctx, cfg, logger, s, entries)
}

// RunWithSender executa a sessão sobre um transporte já pronto (os testes
// injetam o duplex em memória por aqui).
func RunWithSender(ctx context.Context, cfg *config.Config, logger *slog.Logger, s transport.PacketSender, entries []FileEntry) error {
	client := NewClient(cfg, logger, s)

	if err := client.SendHello(); err != nil {
		return err
	}
	if err := client.SendFiles(ctx, entries); err != nil {
		return err
	}
	return client.SendDone()
}
