// Package timeindex binary-searches a memory-mapped log generation for the
// byte offset bracketing a time bound.
package timeindex

import (
	"strconv"

	"github.com/holger24/afd-logquery/internal/logrec"
)

// Bound selects which edge of the window SearchTime is locating.
type Bound int

const (
	// Lower returns the offset of the first record with timestamp >= t.
	Lower Bound = iota
	// Upper returns one past the offset of the last record with timestamp <= t.
	Upper
)

// SearchTime returns the byte offset within buf bracketing t, given the
// generation's known first and last record timestamps (firstTS <= lastTS).
// t == -1 means an open bound and returns len(buf). t > lastTS returns
// len(buf); t < firstTS returns 0. Comment lines (leading '#') are treated
// as timestamp == t: they neither bracket the target nor satisfy it, so the
// search steps past them without terminating on them.
func SearchTime(buf []byte, t, firstTS, lastTS int64, dateWidth, hostWidth int, bound Bound) int {
	if t == -1 {
		return len(buf)
	}
	if t > lastTS {
		return len(buf)
	}
	if t < firstTS {
		return 0
	}

	lo, hi := 0, len(buf)
	for lo < hi {
		first := recordStart(buf, lo+(hi-lo)/2)
		mid := first
		ts, ok := timestampAt(buf, mid, dateWidth)
		for !ok && mid < hi {
			// Comment or unparsable line: skip it without letting it
			// decide the comparison.
			mid = nextRecordStart(buf, mid)
			ts, ok = timestampAt(buf, mid, dateWidth)
		}
		if !ok || mid >= hi {
			// Nothing but such lines between first and hi: keep halving
			// below them.
			hi = first
			continue
		}
		switch {
		case ts < t:
			lo = nextRecordStart(buf, mid)
		case ts > t:
			hi = mid
		default:
			lo, hi = mid, mid
		}
	}

	return boundaryAt(buf, lo, t, dateWidth, bound)
}

// recordStart snaps an arbitrary byte offset to the start of the record it
// falls within, by scanning backward to the previous newline (or the start
// of buf).
func recordStart(buf []byte, off int) int {
	if off > len(buf) {
		off = len(buf)
	}
	i := off
	for i > 0 && buf[i-1] != '\n' {
		i--
	}
	return i
}

// nextRecordStart returns the offset of the record following the one that
// starts at off.
func nextRecordStart(buf []byte, off int) int {
	return logrec.SkipToNewline(buf, off)
}

// timestampAt parses the hex timestamp field at the start of the record
// beginning at off. Comment lines (leading '#') and out-of-range offsets
// return ok == false.
func timestampAt(buf []byte, off, dateWidth int) (int64, bool) {
	if off >= len(buf) {
		return 0, false
	}
	if buf[off] == '#' {
		return 0, false
	}
	end := off + dateWidth
	if end > len(buf) {
		return 0, false
	}
	v, err := strconv.ParseUint(string(buf[off:end]), 16, 64)
	if err != nil {
		return 0, false
	}
	return int64(v), true
}

// boundaryAt resolves the exact record-boundary offset once the binary
// search has converged near a record with timestamp == t (or a gap
// straddling t), by linear-scanning the small neighbourhood to honour the
// exact Lower/Upper contract.
func boundaryAt(buf []byte, off int, t int64, dateWidth int, bound Bound) int {
	cur := recordStart(buf, off)
	switch bound {
	case Lower:
		for p := cur; p > 0; {
			p = recordStart(buf, p-1)
			ts, ok := timestampAt(buf, p, dateWidth)
			if !ok {
				continue // comment line: step past it
			}
			if ts < t {
				break
			}
			cur = p
		}
		return cur
	default: // Upper
		for cur < len(buf) {
			ts, ok := timestampAt(buf, cur, dateWidth)
			if ok && ts > t {
				break
			}
			cur = nextRecordStart(buf, cur)
		}
		return cur
	}
}
