package observability

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/config"
)

// RuntimeMonitor periodically samples host and process resource usage and
// logs it. The Prophet subprocess is memory-hungry; these samples are the
// first thing to check when forecasts start timing out.
type RuntimeMonitor struct {
	interval time.Duration
	logger   *logrus.Logger
}

func NewRuntimeMonitor(cfg config.MonitoringConfig, logger *logrus.Logger) *RuntimeMonitor {
	return &RuntimeMonitor{
		interval: time.Duration(cfg.IntervalSeconds) * time.Second,
		logger:   logger,
	}
}

// Run samples on the configured interval until the context is cancelled.
func (m *RuntimeMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *RuntimeMonitor) sample(ctx context.Context) {
	fields := logrus.Fields{}

	if cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false); err == nil && len(cpuPercent) > 0 {
		fields["cpu_percent"] = cpuPercent[0]
	}
	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fields["mem_used_percent"] = memInfo.UsedPercent
		fields["mem_available_mb"] = memInfo.Available / 1024 / 1024
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	fields["goroutines"] = runtime.NumGoroutine()
	fields["heap_alloc_mb"] = ms.HeapAlloc / 1024 / 1024

	m.logger.WithFields(fields).Debug("Runtime resource sample")
}
