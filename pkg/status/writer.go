// Package status writes daemon-health files an operator can inspect while
// the access module is loaded into a host.
package status

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/wavegate/wavegate/pkg/logging"
)

// Provider exposes the runtime numbers the status files report.
type Provider interface {
	ClientCount() int
	DecisionCount() uint64
	StartTime() time.Time
}

// Writer manages status files for health monitoring.
type Writer struct {
	dir            string
	updateInterval time.Duration
	pid            int
	version        string
	provider       Provider

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a status Writer rooted at dir.
func New(dir string, updateInterval time.Duration, version string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create status directory: %w", err)
	}

	return &Writer{
		dir:            dir,
		updateInterval: updateInterval,
		pid:            os.Getpid(),
		version:        version,
		stopCh:         make(chan struct{}),
	}, nil
}

// SetProvider sets the source of runtime numbers.
func (w *Writer) SetProvider(provider Provider) {
	w.provider = provider
}

// WriteStartFile writes the last_start file with startup information.
func (w *Writer) WriteStartFile() error {
	now := time.Now()
	content := fmt.Sprintf(`timestamp_unix: %d
timestamp_human: %s
pid: %d
version: %s
`,
		now.Unix(),
		now.Format("Mon Jan 02 15:04:05 2006"),
		w.pid,
		w.version,
	)

	path := filepath.Join(w.dir, "last_start")
	if err := w.atomicWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write last_start: %w", err)
	}

	logging.App.Info("Wrote status file", "file", "last_start")
	return nil
}

// WriteStopFile writes the last_stop file with shutdown information.
func (w *Writer) WriteStopFile(reason string, uptime time.Duration) error {
	now := time.Now()
	content := fmt.Sprintf(`timestamp_unix: %d
timestamp_human: %s
reason: %s
uptime_seconds: %d
`,
		now.Unix(),
		now.Format("Mon Jan 02 15:04:05 2006"),
		reason,
		int64(uptime.Seconds()),
	)

	path := filepath.Join(w.dir, "last_stop")
	if err := w.atomicWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write last_stop: %w", err)
	}

	logging.App.Info("Wrote status file", "file", "last_stop", "reason", reason)
	return nil
}

// StartHeartbeat starts a goroutine that periodically updates the running
// file.
func (w *Writer) StartHeartbeat() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.updateInterval)
		defer ticker.Stop()

		// Write immediately on start
		if err := w.writeRunningFile(); err != nil {
			logging.App.Error("Failed to write running file", "error", err)
		}

		for {
			select {
			case <-ticker.C:
				if err := w.writeRunningFile(); err != nil {
					logging.App.Error("Failed to write running file", "error", err)
				}
			case <-w.stopCh:
				return
			}
		}
	}()

	logging.App.Info("Started status heartbeat", "interval", w.updateInterval)
}

// Stop stops the heartbeat goroutine.
func (w *Writer) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	logging.App.Info("Stopped status heartbeat")
}

// writeRunningFile writes the current runtime status to the running file.
func (w *Writer) writeRunningFile() error {
	now := time.Now()

	var startTime time.Time
	var clients int
	var decisions uint64

	if w.provider != nil {
		startTime = w.provider.StartTime()
		clients = w.provider.ClientCount()
		decisions = w.provider.DecisionCount()
	}

	uptime := int64(0)
	if !startTime.IsZero() {
		uptime = int64(now.Sub(startTime).Seconds())
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	content := fmt.Sprintf(`timestamp_unix: %d
uptime_seconds: %d
tracked_clients: %d
decisions_total: %d
memory_alloc_mb: %d
goroutines: %d
`,
		now.Unix(),
		uptime,
		clients,
		decisions,
		memStats.Alloc/1024/1024,
		runtime.NumGoroutine(),
	)

	path := filepath.Join(w.dir, "running")
	if err := w.atomicWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write running: %w", err)
	}

	logging.App.Debug("Updated running file", "tracked_clients", clients, "decisions", decisions)
	return nil
}

// atomicWrite writes content to a file atomically by writing to a temp file
// and then renaming it, so readers never see partial writes.
func (w *Writer) atomicWrite(path string, content []byte) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, content, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}
