package gunzipmetrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
)

// Metrics defines the interface for collecting and reporting extraction statistics.
type Metrics interface {
	AddArchivesFound(n int64)
	AddArchivesExtracted(n int64)
	AddArchivesSkipped(n int64)
	AddArchivesFailed(n int64)
	AddArchivesDeleted(n int64)
	AddBytesRead(n int64)
	AddBytesWritten(n int64)
	LogSummary(msg string)
	StartProgress(msg string, interval time.Duration)
	StopProgress()
}

// ExtractionMetrics holds the atomic counters for an extraction run.
// The progress ticker reads them from its own goroutine.
type ExtractionMetrics struct {
	ArchivesFound     atomic.Int64
	ArchivesExtracted atomic.Int64
	ArchivesSkipped   atomic.Int64
	ArchivesFailed    atomic.Int64
	ArchivesDeleted   atomic.Int64
	BytesRead         atomic.Int64
	BytesWritten      atomic.Int64

	stopChan chan struct{}
}

func (m *ExtractionMetrics) AddArchivesFound(n int64)     { m.ArchivesFound.Add(n) }
func (m *ExtractionMetrics) AddArchivesExtracted(n int64) { m.ArchivesExtracted.Add(n) }
func (m *ExtractionMetrics) AddArchivesSkipped(n int64)   { m.ArchivesSkipped.Add(n) }
func (m *ExtractionMetrics) AddArchivesFailed(n int64)    { m.ArchivesFailed.Add(n) }
func (m *ExtractionMetrics) AddArchivesDeleted(n int64)   { m.ArchivesDeleted.Add(n) }
func (m *ExtractionMetrics) AddBytesRead(n int64)         { m.BytesRead.Add(n) }
func (m *ExtractionMetrics) AddBytesWritten(n int64)      { m.BytesWritten.Add(n) }

// StartProgress logs the summary every interval until StopProgress is called.
func (m *ExtractionMetrics) StartProgress(msg string, interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.stopChan = make(chan struct{})
	ticker := time.NewTicker(interval)
	go func(stop <-chan struct{}) {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.LogSummary(msg)
			case <-stop:
				return
			}
		}
	}(m.stopChan)
}

func (m *ExtractionMetrics) StopProgress() {
	if m.stopChan != nil {
		close(m.stopChan)
		m.stopChan = nil
	}
}

// LogSummary logs the current counters together with the expansion ratio
// (decompressed bytes per compressed byte).
func (m *ExtractionMetrics) LogSummary(msg string) {
	read := m.BytesRead.Load()
	written := m.BytesWritten.Load()

	var ratio float64
	if read > 0 {
		ratio = float64(written) / float64(read)
	}

	plog.Info(msg,
		"archives_found", m.ArchivesFound.Load(),
		"archives_extracted", m.ArchivesExtracted.Load(),
		"archives_skipped", m.ArchivesSkipped.Load(),
		"archives_failed", m.ArchivesFailed.Load(),
		"archives_deleted", m.ArchivesDeleted.Load(),
		"bytes_read", fmt.Sprintf("%d", read),
		"bytes_written", fmt.Sprintf("%d", written),
		"expansion", fmt.Sprintf("%.2fx", ratio),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no operations.
// It can be used to disable metrics collection without changing the calling code.
type NoopMetrics struct{}

func (m *NoopMetrics) AddArchivesFound(n int64)                         {}
func (m *NoopMetrics) AddArchivesExtracted(n int64)                     {}
func (m *NoopMetrics) AddArchivesSkipped(n int64)                       {}
func (m *NoopMetrics) AddArchivesFailed(n int64)                        {}
func (m *NoopMetrics) AddArchivesDeleted(n int64)                       {}
func (m *NoopMetrics) AddBytesRead(n int64)                             {}
func (m *NoopMetrics) AddBytesWritten(n int64)                          {}
func (m *NoopMetrics) LogSummary(msg string)                            {}
func (m *NoopMetrics) StartProgress(msg string, interval time.Duration) {}
func (m *NoopMetrics) StopProgress()                                    {}

// Statically assert that our types implement the interface.
var _ Metrics = (*ExtractionMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
