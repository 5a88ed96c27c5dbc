// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// JobsConfig representa o arquivo YAML do modo daemon do sender: um
// schedule default e uma lista de jobs de transferência agendados.
type JobsConfig struct {
	Daemon DaemonInfo `yaml:"daemon"`
	Jobs   []JobEntry `yaml:"jobs"`
}

// DaemonInfo contém a cron expression default dos jobs.
type DaemonInfo struct {
	Schedule string `yaml:"schedule"`
}

// JobEntry representa um job de transferência agendado.
type JobEntry struct {
	// Name identifica o job nos logs.
	Name string `yaml:"name"`

	// Config é o caminho do arquivo de transfer (formato INI) do job.
	Config string `yaml:"config"`

	// Schedule sobrescreve o schedule default do daemon para este job.
	Schedule string `yaml:"schedule"`

	// Exclude são globs de exclusão aplicados ao walk deste job.
	Exclude []string `yaml:"exclude"`
}

// EffectiveSchedule retorna o schedule do job, caindo no default do daemon.
func (j JobEntry) EffectiveSchedule(d DaemonInfo) string {
	if j.Schedule != "" {
		return j.Schedule
	}
	return d.Schedule
}

// LoadJobs lê e valida o arquivo YAML de jobs do daemon.
func LoadJobs(path string) (*JobsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs config: %w", err)
	}

	var cfg JobsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing jobs config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating jobs config: %w", err)
	}
	return &cfg, nil
}

func (c *JobsConfig) validate() error {
	if len(c.Jobs) == 0 {
		return fmt.Errorf("at least one job is required")
	}
	seen := make(map[string]bool, len(c.Jobs))
	for i, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("jobs[%d]: name is required", i)
		}
		if seen[job.Name] {
			return fmt.Errorf("jobs[%d]: duplicate name %q", i, job.Name)
		}
		seen[job.Name] = true
		if job.Config == "" {
			return fmt.Errorf("job %q: config is required", job.Name)
		}
		if job.EffectiveSchedule(c.Daemon) == "" {
			return fmt.Errorf("job %q: no schedule and no daemon.schedule default", job.Name)
		}
	}
	return nil
}
