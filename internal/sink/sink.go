// Package sink defines the row sink and summary boundary: the only part
// of the system that touches a display.
package sink

import (
	"fmt"
	"io"
	"sync"
)

// Row is one formatted, surviving record ready for display.
type Row struct {
	Timestamp    int64
	Host         string
	Name         string
	Size         string
	TransferTime float64
	JobID        uint64
	Archive      byte
}

// Sink is the boundary the Scanner, Rotation Coordinator and Tail
// Follower push results through; nothing else touches a display.
type Sink interface {
	// PushBatch appends rows to the visible result list.
	PushBatch(rows []Row)
	// PublishSummary refreshes the running-totals label.
	PublishSummary(s Summary)
	// PublishStatus posts a one-line status message (list-limit notice,
	// waiting indicator, rediscovery notice, and so on).
	PublishStatus(msg string)
	// CheckInterrupt reports whether the user has requested a stop.
	CheckInterrupt() bool
}

// spinner is the four-frame rotating "searching" indicator.
var spinner = [...]byte{'-', '\\', '|', '/'}

// ConsoleSink is a Sink that writes rows to an io.Writer and tracks an
// interrupt flag set from outside (e.g. a signal handler in cmd/afdquery).
type ConsoleSink struct {
	w io.Writer

	mu        sync.Mutex
	spinIndex int
	interrupt bool
}

// NewConsoleSink returns a ConsoleSink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// PushBatch implements Sink.
func (c *ConsoleSink) PushBatch(rows []Row) {
	for _, r := range rows {
		fmt.Fprintf(c.w, "%08x %-8s %-40s %12s %8.3f %x %c\n",
			r.Timestamp, r.Host, r.Name, r.Size, r.TransferTime, r.JobID, r.Archive)
	}
}

// PublishSummary implements Sink. It follows the running totals with the
// optional Extended line whenever the Summary has a stats.Collector bound
// and has observed at least one record.
func (c *ConsoleSink) PublishSummary(s Summary) {
	fmt.Fprintf(c.w, "# records=%d bytes=%s transfer_time=%.3f first=%08x last=%08x unprintable=%d\n",
		s.TotalRecords, s.TotalBytes.String(), s.TotalTransferTime, s.FirstTimestamp, s.LatestTimestamp, s.UnprintableChars)
	if ext := s.Extended(); ext.N > 0 {
		fmt.Fprintf(c.w, "# mean_transfer_time=%.3f stddev_transfer_time=%.3f mean_size=%.1f stddev_size=%.1f n=%d\n",
			ext.MeanTransferTime, ext.StdDevTransferTime, ext.MeanSize, ext.StdDevSize, ext.N)
	}
}

// PublishStatus implements Sink.
func (c *ConsoleSink) PublishStatus(msg string) {
	fmt.Fprintf(c.w, "# %s\n", msg)
}

// CheckInterrupt implements Sink.
func (c *ConsoleSink) CheckInterrupt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interrupt
}

// Stop requests that the next CheckInterrupt report true.
func (c *ConsoleSink) Stop() {
	c.mu.Lock()
	c.interrupt = true
	c.mu.Unlock()
}

// NextSpinnerFrame advances and returns the searching indicator, cycling
// through {-, \, |, /}.
func (c *ConsoleSink) NextSpinnerFrame() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := spinner[c.spinIndex%len(spinner)]
	c.spinIndex++
	return f
}
