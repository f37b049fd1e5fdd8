// Package criteria holds the query criteria a delivery-log scan filters
// records against.
package criteria

import "github.com/holger24/afd-logquery/internal/logrec"

// TimeWindow is a query's time bound; either side may be open, spelled -1.
type TimeWindow struct {
	Start int64
	End   int64
}

// Open reports whether the end of the window is open (tail-follow mode).
func (w TimeWindow) Open() bool { return w.End == -1 }

// Comparator is one of the four numeric comparison operators available on
// size and transfer-time filters.
type Comparator int

const (
	CmpNone Comparator = iota
	CmpEQ
	CmpLT
	CmpGT
	CmpNE
)

// NumericFilter pairs a comparator with the value to compare against.
type NumericFilter struct {
	Op    Comparator
	Value float64
}

// Active reports whether the filter should be evaluated at all.
func (f NumericFilter) Active() bool { return f.Op != CmpNone }

// Matches reports whether x satisfies the filter.
func (f NumericFilter) Matches(x float64) bool {
	switch f.Op {
	case CmpEQ:
		return x == f.Value
	case CmpLT:
		return x < f.Value
	case CmpGT:
		return x > f.Value
	case CmpNE:
		return x != f.Value
	default:
		return true
	}
}

// MatchesSize applies the filter to a logrec.Size. The infinity sentinel
// compares greater than any finite search value and equal to itself.
func (f NumericFilter) MatchesSize(s logrec.Size) bool {
	if !f.Active() {
		return true
	}
	c := s.Cmp(f.Value)
	switch f.Op {
	case CmpEQ:
		return c == 0
	case CmpLT:
		return c < 0
	case CmpGT:
		return c > 0
	case CmpNE:
		return c != 0
	default:
		return true
	}
}

// Pattern is one glob pattern, optionally negated with a leading '!'.
type Pattern struct {
	Glob    string
	Negated bool
}

// ParsePattern splits the leading '!' off a raw pattern string.
func ParsePattern(raw string) Pattern {
	if len(raw) > 0 && raw[0] == '!' {
		return Pattern{Glob: raw[1:], Negated: true}
	}
	return Pattern{Glob: raw}
}

// NameDisplay selects which of local/remote name is rendered and matched.
type NameDisplay int

const (
	DisplayLocal NameDisplay = iota
	DisplayRemote
)

// Criteria is the full set of active query criteria for one scan.
type Criteria struct {
	TimeWindow TimeWindow

	NamePatterns []Pattern
	HostPatterns []Pattern
	DirGlobs     []Pattern
	UserGlobs    []Pattern

	DirIDs []uint32
	JobIDs []uint64

	SizeFilter         NumericFilter
	TransferTimeFilter NumericFilter

	ProtocolMask logrec.Mask
	View         logrec.View
	NameDisplay  NameDisplay

	// ListLimit is a hard cap on surviving records; 0 means unbounded.
	// Semantics are exclusive: at most ListLimit rows are emitted.
	ListLimit int
}

// HaveNames reports whether any name-glob criterion is active.
func (c Criteria) HaveNames() bool { return len(c.NamePatterns) > 0 }

// HaveHosts reports whether any host-glob criterion is active.
func (c Criteria) HaveHosts() bool { return len(c.HostPatterns) > 0 }

// HaveSize reports whether the size filter is active.
func (c Criteria) HaveSize() bool { return c.SizeFilter.Active() }

// HaveDirsOrUsersOrJobs reports whether the query needs Job-ID resolution
// (dir globs, dir IDs, job IDs or user globs).
func (c Criteria) HaveDirsOrUsersOrJobs() bool {
	return len(c.DirGlobs) > 0 || len(c.DirIDs) > 0 || len(c.JobIDs) > 0 || len(c.UserGlobs) > 0
}
