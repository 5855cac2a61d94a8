package pipeline

import (
	"fmt"
	"time"
)

// ProgressTracker tracks tile completion for a render run
type ProgressTracker struct {
	total     int64
	startTime time.Time
}

// NewProgressTracker creates a tracker over a known tile count
func NewProgressTracker(total int64) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Progress holds current progress information
type Progress struct {
	Done       int64
	Total      int64
	Percentage float64
	Elapsed    time.Duration
	ETA        time.Duration
	Throughput float64 // tiles per second
}

// Calculate returns current progress metrics given the completed count
func (p *ProgressTracker) Calculate(done int64) Progress {
	elapsed := time.Since(p.startTime)

	var percentage float64
	var eta time.Duration
	if p.total > 0 {
		percentage = float64(done) / float64(p.total) * 100
		if done > 0 && done < p.total {
			perTile := elapsed / time.Duration(done)
			eta = perTile * time.Duration(p.total-done)
		}
	}

	var throughput float64
	if elapsed.Seconds() > 0 {
		throughput = float64(done) / elapsed.Seconds()
	}

	return Progress{
		Done:       done,
		Total:      p.total,
		Percentage: percentage,
		Elapsed:    elapsed.Round(time.Second),
		ETA:        eta.Round(time.Second),
		Throughput: throughput,
	}
}

// FormatETA formats the ETA duration in a human-readable format
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "calculating..."
	}

	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatThroughput formats throughput as human-readable items per second
func FormatThroughput(itemsPerSec float64) string {
	if itemsPerSec >= 1_000_000 {
		return fmt.Sprintf("%.1fM/s", itemsPerSec/1_000_000)
	}
	if itemsPerSec >= 1_000 {
		return fmt.Sprintf("%.1fK/s", itemsPerSec/1_000)
	}
	return fmt.Sprintf("%.0f/s", itemsPerSec)
}
