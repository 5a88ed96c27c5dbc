// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mephesto1337/oneway/internal/config"
	"github.com/mephesto1337/oneway/internal/logging"
	"github.com/mephesto1337/oneway/internal/sender"
)

func main() {
	daemon := flag.Bool("daemon", false, "run as a daemon executing scheduled jobs")
	jobsPath := flag.String("jobs", "", "path to the daemon jobs file (YAML, with -daemon)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s CONFIG_FILE\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -daemon -jobs JOBS_FILE\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Context com cancelamento via signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	if *daemon {
		if *jobsPath == "" {
			fmt.Fprintln(os.Stderr, "Error: -jobs is required with -daemon")
			os.Exit(2)
		}
		runDaemon(ctx, cancel, sigCh, *jobsPath)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	defer closer.Close()

	for _, w := range cfg.Warnings {
		logger.Warn("config warning", "detail", w)
	}

	go func() {
		sig := <-sigCh
		logger.Info("received signal, aborting transfer", "signal", sig.String())
		cancel()
	}()

	if err := sender.Run(ctx, cfg, logger, nil); err != nil {
		logger.Error("transfer failed", "error", err)
		os.Exit(1)
	}
	logger.Info("transfer complete")
}

func runDaemon(ctx context.Context, cancel context.CancelFunc, sigCh chan os.Signal, jobsPath string) {
	jobsCfg, err := config.LoadJobs(jobsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading jobs config: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.NewLogger("", "", "")
	defer closer.Close()

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	sched, err := sender.NewScheduler(ctx, jobsCfg, logger)
	if err != nil {
		logger.Error("building scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start(ctx)
}
