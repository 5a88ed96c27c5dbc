// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package receiver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
)

// diskCheckInterval is how often the monitor samples the root filesystem.
const diskCheckInterval = 1 * time.Minute

// DiskMonitor periodically checks the filesystem holding the receiver root
// and warns when usage crosses the configured threshold. Running out of disk
// mid-transfer makes chunk writes fail, which ends the sessions that hit it.
type DiskMonitor struct {
	logger      *slog.Logger
	root        string
	warnPercent float64

	close chan struct{}
	wg    sync.WaitGroup
}

// NewDiskMonitor creates a monitor for the given root path.
func NewDiskMonitor(logger *slog.Logger, root string, warnPercent float64) *DiskMonitor {
	return &DiskMonitor{
		logger:      logger.With("component", "disk_monitor"),
		root:        root,
		warnPercent: warnPercent,
		close:       make(chan struct{}),
	}
}

// Start begins periodic collection.
func (dm *DiskMonitor) Start() {
	dm.wg.Add(1)
	go dm.run()
}

// Stop stops the monitor and waits for the goroutine to exit.
func (dm *DiskMonitor) Stop() {
	close(dm.close)
	dm.wg.Wait()
}

func (dm *DiskMonitor) run() {
	defer dm.wg.Done()

	ticker := time.NewTicker(diskCheckInterval)
	defer ticker.Stop()

	// Initial collection
	dm.collect()

	for {
		select {
		case <-dm.close:
			return
		case <-ticker.C:
			dm.collect()
		}
	}
}

func (dm *DiskMonitor) collect() {
	usage, err := disk.Usage(dm.root)
	if err != nil {
		dm.logger.Debug("could not stat root filesystem", "root", dm.root, "error", err)
		return
	}

	if usage.UsedPercent >= dm.warnPercent {
		dm.logger.Warn("root filesystem is filling up",
			"root", dm.root,
			"used_percent", usage.UsedPercent,
			"free_bytes", usage.Free,
		)
		return
	}
	dm.logger.Debug("root filesystem usage",
		"root", dm.root,
		"used_percent", usage.UsedPercent,
		"free_bytes", usage.Free,
	)
}
