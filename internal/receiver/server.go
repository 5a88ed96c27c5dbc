// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package receiver implementa o lado receptor do oneway: o dispatcher que
// demultiplexa datagramas por peer e os handlers que reconstroem os
// arquivos sob o root configurado.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mephesto1337/oneway/internal/config"
	"github.com/mephesto1337/oneway/internal/transport"
)

// killChannelSize limita o backlog de notificações de término de handler.
const killChannelSize = 128

// Server é o dispatcher: a única task que lê o socket. Não faz parse nem
// I/O de arquivo; apenas roteia bytes para a fila do handler do peer.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *SessionManager
	killCh   chan string

	// Métricas observáveis pelo stats reporter.
	TrafficIn      atomic.Int64 // bytes recebidos da rede desde o último reset
	DiskWrite      atomic.Int64 // bytes escritos em disco desde o último reset
	ActiveSessions atomic.Int32 // handlers vivos no momento
	Dropped        atomic.Int64 // datagramas descartados por fila cheia
}

// NewServer cria o dispatcher com seu session manager.
func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		sessions: NewSessionManager(cfg.SessionTTL),
		killCh:   make(chan string, killChannelSize),
	}
}

// Run liga o socket UDP em cfg.Address e serve até o context cancelar.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	recv, err := transport.ListenUDP(cfg.Address)
	if err != nil {
		return fmt.Errorf("binding receiver: %w", err)
	}
	defer recv.Close()

	logger.Info("receiver listening", "address", recv.LocalAddr().String(), "root", cfg.Root)

	srv := NewServer(cfg, logger)

	monitor := NewDiskMonitor(logger, cfg.Root, cfg.DiskWarnPercent)
	monitor.Start()
	defer monitor.Stop()

	go srv.StartStatsReporter(ctx)

	return srv.Serve(ctx, recv)
}

// Serve roda o loop de dispatch sobre um PacketReceiver já ligado (os
// testes injetam o duplex em memória por aqui).
func (s *Server) Serve(ctx context.Context, recv transport.PacketReceiver) error {
	recv.SetRecvTimeout(s.cfg.RecvTimeout)
	scratch := make([]byte, s.cfg.MTU)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("receiver shutting down")
			return nil
		default:
		}

		s.drainKills()

		n, addr, err := recv.RecvFrom(scratch)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}
			if errors.Is(err, transport.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.logger.Error("receiving datagram", "error", err)
			continue
		}

		// O scratch é reutilizado a cada recv: a posse dos bytes passa ao
		// handler numa cópia do tamanho exato.
		data := make([]byte, n)
		copy(data, scratch[:n])

		sess, created := s.sessions.GetOrCreate(addr, s.cfg.ChannelSize)
		if created {
			s.logger.Info("new session", "peer", addr.String())
			s.ActiveSessions.Add(1)
			go NewHandler(s, sess).Run()
		}

		// Enfileiramento não bloqueante: um handler travado não pode parar
		// os outros peers; o protocolo tolera perda por construção.
		select {
		case sess.Queue <- data:
			s.TrafficIn.Add(int64(n))
		default:
			s.Dropped.Add(1)
			s.logger.Warn("handler queue full, dropping datagram", "peer", addr.String(), "bytes", n)
		}
	}
}

// drainKills remove, sem bloquear, os mapeamentos de handlers que
// terminaram.
func (s *Server) drainKills() {
	for {
		select {
		case peer := <-s.killCh:
			s.sessions.Remove(peer)
		default:
			return
		}
	}
}

// statsInterval é o período do relatório de métricas.
const statsInterval = 15 * time.Second

// StartStatsReporter loga métricas do receiver a cada 15 segundos:
// sessões vivas, traffic in e disk write do intervalo.
func (s *Server) StartStatsReporter(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			secs := statsInterval.Seconds()

			// Swap-and-reset: lê o acumulado do intervalo e zera.
			trafficIn := s.TrafficIn.Swap(0)
			diskWrite := s.DiskWrite.Swap(0)

			s.logger.Info("receiver stats",
				"sessions", s.sessions.Count(),
				"active_handlers", s.ActiveSessions.Load(),
				"traffic_in_KBps", fmt.Sprintf("%.1f", float64(trafficIn)/secs/1024),
				"disk_write_KBps", fmt.Sprintf("%.1f", float64(diskWrite)/secs/1024),
				"dropped_total", s.Dropped.Load(),
			)
		}
	}
}
