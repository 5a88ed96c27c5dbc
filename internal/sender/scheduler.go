// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sender

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mephesto1337/oneway/internal/config"
)

// Job representa um job de transferência agendado, com guard de execução:
// um disparo que encontra o job ainda rodando é pulado.
type Job struct {
	Entry config.JobEntry

	mu      sync.Mutex
	running bool
}

// tryStart marca o job como rodando; retorna false se já estava.
func (j *Job) tryStart() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return false
	}
	j.running = true
	return true
}

func (j *Job) finish() {
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// Scheduler gerencia N cron jobs independentes, um por entry do arquivo
// de jobs do daemon.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	jobs   []*Job
}

// NewScheduler cria um Scheduler com um cron job por entry.
func NewScheduler(ctx context.Context, jobsCfg *config.JobsConfig, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{logger: logger}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	for _, entry := range jobsCfg.Jobs {
		job := &Job{Entry: entry}
		s.jobs = append(s.jobs, job)

		schedule := entry.EffectiveSchedule(jobsCfg.Daemon)
		if _, err := c.AddFunc(schedule, func() { s.runJob(ctx, job) }); err != nil {
			return nil, err
		}
		logger.Info("scheduled job", "job", entry.Name, "schedule", schedule)
	}

	s.cron = c
	return s, nil
}

// Start dispara o cron e bloqueia até o context cancelar; então espera os
// jobs em andamento terminarem.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("daemon started", "jobs", len(s.jobs))

	<-ctx.Done()
	s.logger.Info("daemon stopping")
	<-s.cron.Stop().Done()
}

// runJob executa um transfer completo para o job, pulando o disparo se o
// anterior ainda está em andamento.
func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	logger := s.logger.With("job", job.Entry.Name)

	if !job.tryStart() {
		logger.Warn("previous run still in progress, skipping")
		return
	}
	defer job.finish()

	cfg, err := config.Load(job.Entry.Config)
	if err != nil {
		logger.Error("loading transfer config", "config", job.Entry.Config, "error", err)
		return
	}
	for _, w := range cfg.Warnings {
		logger.Warn("config warning", "detail", w)
	}

	start := time.Now()
	if err := Run(ctx, cfg, logger, job.Entry.Exclude); err != nil {
		logger.Error("transfer failed", "error", err, "duration", time.Since(start).Truncate(time.Millisecond).String())
		return
	}
	logger.Info("transfer complete", "duration", time.Since(start).Truncate(time.Millisecond).String())
}
