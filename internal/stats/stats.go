// Package stats computes distributional statistics over a query's
// surviving records (mean and standard deviation of per-record transfer
// time and byte size), reported alongside the running summary totals.
package stats

import "gonum.org/v1/gonum/stat"

// Extended holds the distributional statistics gathered across a query's
// surviving records.
type Extended struct {
	MeanTransferTime   float64
	StdDevTransferTime float64
	MeanSize           float64
	StdDevSize         float64
	N                  int
}

// Collector accumulates the raw samples a query's Scanner observes, then
// reduces them to an Extended summary on demand. It is scoped to one
// query, like sink.Summary.
type Collector struct {
	transferTimes []float64
	sizes         []float64
}

// Observe records one surviving record's transfer time and size.
func (c *Collector) Observe(transferTime, size float64) {
	c.transferTimes = append(c.transferTimes, transferTime)
	c.sizes = append(c.sizes, size)
}

// Reduce computes the Extended summary over everything observed so far.
// It returns the zero value when no records have been observed.
func (c *Collector) Reduce() Extended {
	n := len(c.transferTimes)
	if n == 0 {
		return Extended{}
	}
	meanTT, stdTT := stat.MeanStdDev(c.transferTimes, nil)
	meanSz, stdSz := stat.MeanStdDev(c.sizes, nil)
	return Extended{
		MeanTransferTime:   meanTT,
		StdDevTransferTime: stdTT,
		MeanSize:           meanSz,
		StdDevSize:         stdSz,
		N:                  n,
	}
}

// Reset clears the collector for reuse across queries (mirroring
// lineindex.Index.Reset and sink.Summary's no-cross-query-persistence
// rule).
func (c *Collector) Reset() {
	c.transferTimes = c.transferTimes[:0]
	c.sizes = c.sizes[:0]
}
