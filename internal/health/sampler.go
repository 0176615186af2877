package health

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
)

// DiskDegradedPercent is the log-directory disk usage at which the service
// reports itself degraded: file sinks are about to start failing.
const DiskDegradedPercent = 95.0

type SystemStats struct {
	CPUPercent     float64   `json:"cpu_percent"`
	MemoryPercent  float64   `json:"memory_percent"`
	LogDiskPercent float64   `json:"log_disk_percent"`
	Goroutines     int       `json:"goroutines"`
	SampledAt      time.Time `json:"sampled_at"`
}

func (s SystemStats) Degraded() bool {
	return s.LogDiskPercent >= DiskDegradedPercent
}

// Probe measures the host. dir is the directory whose disk usage matters.
type Probe func(ctx context.Context, dir string) (SystemStats, error)

// HostProbe measures the host with gopsutil.
func HostProbe(ctx context.Context, dir string) (SystemStats, error) {
	cpuPercentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return SystemStats{}, err
	}

	memStats, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemStats{}, err
	}

	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return SystemStats{}, err
	}

	stats := SystemStats{
		MemoryPercent:  memStats.UsedPercent,
		LogDiskPercent: usage.UsedPercent,
		Goroutines:     runtime.NumGoroutine(),
		SampledAt:      time.Now(),
	}
	if len(cpuPercentages) > 0 {
		stats.CPUPercent = cpuPercentages[0]
	}

	return stats, nil
}

type Sampler struct {
	probe    Probe
	dir      string
	interval time.Duration
	logger   *slog.Logger
	latest   atomic.Pointer[SystemStats]
	degraded atomic.Bool
}

func NewSampler(probe Probe, dir string, interval time.Duration, logger *slog.Logger) *Sampler {
	if probe == nil {
		probe = HostProbe
	}

	return &Sampler{
		probe:    probe,
		dir:      dir,
		interval: interval,
		logger:   logger,
	}
}

// Latest returns the most recent successful sample.
func (s *Sampler) Latest() (SystemStats, bool) {
	stats := s.latest.Load()
	if stats == nil {
		return SystemStats{}, false
	}
	return *stats, true
}

// Run samples immediately and then once per interval until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sample(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("System sampler stopped")
			return

		case <-ticker.C:
			s.Sample(ctx)
		}
	}
}

// Sample takes one measurement and stores it.
func (s *Sampler) Sample(ctx context.Context) {
	stats, err := s.probe(ctx, s.dir)
	if err != nil {
		s.logger.Warn("System sampling failed", slog.Any("err", err))
		return
	}

	s.latest.Store(&stats)

	degraded := stats.Degraded()
	if s.degraded.Swap(degraded) != degraded {
		if degraded {
			s.logger.Warn("Log disk nearly full",
				slog.String("dir", s.dir),
				slog.Float64("used_percent", stats.LogDiskPercent))
		} else {
			s.logger.Info("Log disk usage back to normal",
				slog.String("dir", s.dir),
				slog.Float64("used_percent", stats.LogDiskPercent))
		}
	}
}
