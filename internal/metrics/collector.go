package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Snapshot holds one sample of process and system metrics
type Snapshot struct {
	CPUPercent        float64 // System-wide CPU usage (0-100%)
	ProcessCPUPercent float64 // This process, per-core basis (can exceed 100%)
	MemoryUsedGB      float64
	MemoryPercent     float64
	HeapAllocGB       float64 // Go heap in use (index maps live here)
	DiskReadMBps      float64
	DiskWriteMBps     float64
	Timestamp         time.Time
}

// Collector periodically samples system metrics and logs them.
// Disk rates matter here because the store arena is a memory-mapped
// file and growth spikes show up as write bursts.
type Collector struct {
	interval      time.Duration
	logger        *zap.Logger
	proc          *process.Process
	lastDiskStats map[string]disk.IOCountersStat
	lastDiskTime  time.Time
	mu            sync.RWMutex
	last          *Snapshot
}

// NewCollector creates a new metrics collector
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}

	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Start begins periodic collection. Returns when the context is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// First sample establishes the disk I/O baseline
	c.collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// Last returns the most recent snapshot, or nil before the first sample
func (c *Collector) Last() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Collector) collect() {
	snap := &Snapshot{
		Timestamp: time.Now(),
	}

	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		snap.CPUPercent = cpuPercent[0]
	}

	if c.proc != nil {
		if procCPU, err := c.proc.Percent(0); err == nil {
			snap.ProcessCPUPercent = procCPU
		}
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vmem.UsedPercent
		snap.MemoryUsedGB = float64(vmem.Used) / (1 << 30)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snap.HeapAllocGB = float64(ms.HeapAlloc) / (1 << 30)

	snap.DiskReadMBps, snap.DiskWriteMBps = c.diskRates()

	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()

	c.logger.Info("System metrics",
		zap.Float64("sys_cpu", snap.CPUPercent),
		zap.Float64("proc_cpu", snap.ProcessCPUPercent),
		zap.Float64("mem_pct", snap.MemoryPercent),
		zap.String("mem_used", fmt.Sprintf("%.1f GB", snap.MemoryUsedGB)),
		zap.String("go_heap", fmt.Sprintf("%.1f GB", snap.HeapAllocGB)),
		zap.String("disk_r", fmt.Sprintf("%.1f MB/s", snap.DiskReadMBps)),
		zap.String("disk_w", fmt.Sprintf("%.1f MB/s", snap.DiskWriteMBps)),
	)
}

// diskRates returns aggregate read/write throughput since the last sample
func (c *Collector) diskRates() (readMBps, writeMBps float64) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, 0
	}

	now := time.Now()

	if c.lastDiskStats == nil {
		c.lastDiskStats = counters
		c.lastDiskTime = now
		return 0, 0
	}

	elapsed := now.Sub(c.lastDiskTime).Seconds()
	if elapsed < 0.1 {
		return 0, 0
	}

	var readDelta, writeDelta uint64
	for name, counter := range counters {
		if last, ok := c.lastDiskStats[name]; ok {
			// Guard against counter wrap
			if counter.ReadBytes >= last.ReadBytes {
				readDelta += counter.ReadBytes - last.ReadBytes
			}
			if counter.WriteBytes >= last.WriteBytes {
				writeDelta += counter.WriteBytes - last.WriteBytes
			}
		}
	}

	c.lastDiskStats = counters
	c.lastDiskTime = now

	readMBps = float64(readDelta) / elapsed / (1 << 20)
	writeMBps = float64(writeDelta) / elapsed / (1 << 20)
	return readMBps, writeMBps
}
