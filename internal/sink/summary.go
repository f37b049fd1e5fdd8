package sink

import (
	"math"
	"strconv"

	"github.com/holger24/afd-logquery/internal/logrec"
	"github.com/holger24/afd-logquery/internal/stats"
)

// Summary holds a query's running totals, updated strictly by the
// Scanner and rendered by the Sink at every batch
// boundary. It has no cross-query persistence; a fresh Summary is
// constructed at query start.
type Summary struct {
	FirstTimestamp    int64
	LatestTimestamp   int64
	TotalRecords      int64
	TotalBytes        ByteTotal
	TotalTransferTime float64
	UnprintableChars  int64

	seenAny   bool
	collector *stats.Collector
}

// BindStats attaches the stats.Collector accumulating alongside this
// Summary's running totals, so Extended can reduce it on request without
// every Sink caller threading a Collector through by hand.
func (s *Summary) BindStats(c *stats.Collector) { s.collector = c }

// Extended reduces the bound stats.Collector into the optional second
// summary line: mean/stddev of transfer time and size alongside the
// running totals above. It returns the zero Extended if no Collector is
// bound.
func (s Summary) Extended() stats.Extended {
	if s.collector == nil {
		return stats.Extended{}
	}
	return s.collector.Reduce()
}

// ByteTotal accumulates logrec.Size values, becoming infinite as soon as
// any contributing record's size is. The sentinel survives summation.
type ByteTotal struct {
	value uint64
	inf   bool
}

// Add folds s into the running total.
func (b *ByteTotal) Add(s logrec.Size) {
	if b.inf || s.Infinite() {
		b.inf = true
		return
	}
	b.value += s.Value()
}

// Infinite reports whether the total has saturated to the sentinel.
func (b ByteTotal) Infinite() bool { return b.inf }

// Value returns the finite total, or 0 if infinite.
func (b ByteTotal) Value() uint64 { return b.value }

// Float64 renders the total as a float64.
func (b ByteTotal) Float64() float64 {
	if b.inf {
		return math.Inf(1)
	}
	return float64(b.value)
}

// String renders the total for display.
func (b ByteTotal) String() string {
	if b.inf {
		return "INF"
	}
	return strconv.FormatUint(b.value, 10)
}

// Observe folds one surviving record into the summary.
func (s *Summary) Observe(ts int64, size logrec.Size, transferTime float64, unprintable int) {
	if !s.seenAny {
		s.FirstTimestamp = ts
		s.LatestTimestamp = ts
		s.seenAny = true
	} else {
		if ts < s.FirstTimestamp {
			s.FirstTimestamp = ts
		}
		if ts > s.LatestTimestamp {
			s.LatestTimestamp = ts
		}
	}
	s.TotalRecords++
	s.TotalBytes.Add(size)
	s.TotalTransferTime += transferTime
	s.UnprintableChars += int64(unprintable)
}
