// Package query implements the query driver: the state
// machine that walks the generations a Criteria's time window selects,
// runs the Scanner over each, and, for an open-ended window, switches
// into following the currently-open generation once history is
// exhausted.
package query

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/holger24/afd-logquery/internal/archive"
	"github.com/holger24/afd-logquery/internal/criteria"
	"github.com/holger24/afd-logquery/internal/filter"
	"github.com/holger24/afd-logquery/internal/jobinfo"
	"github.com/holger24/afd-logquery/internal/lineindex"
	"github.com/holger24/afd-logquery/internal/logrec"
	"github.com/holger24/afd-logquery/internal/rotation"
	"github.com/holger24/afd-logquery/internal/scanner"
	"github.com/holger24/afd-logquery/internal/sink"
	"github.com/holger24/afd-logquery/internal/stats"
	"github.com/holger24/afd-logquery/internal/tail"
	"github.com/holger24/afd-logquery/internal/timeindex"
)

// errRediscoveryDone is a sentinel returned from Follow's tail.Run
// callback to unwind the polling loop cleanly once a rediscovery pass
// (triggered by a detected rotation) has already reached a terminal
// phase, so Follow doesn't keep polling a Follower bound to a
// generation its own rediscovery has superseded.
var errRediscoveryDone = errors.New("query: rediscovery reached a terminal phase")

// Phase is one state of the query driver's state machine:
// IDLE -> SEARCHING -> {DONE, INTERRUPTED, FOLLOWING}, and
// FOLLOWING -> {DONE, INTERRUPTED, SEARCHING} on rediscovery.
type Phase int

const (
	Idle Phase = iota
	Searching
	Following
	Done
	Interrupted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Searching:
		return "SEARCHING"
	case Following:
		return "FOLLOWING"
	case Done:
		return "DONE"
	case Interrupted:
		return "INTERRUPTED"
	default:
		return "UNKNOWN"
	}
}

// State holds everything that, in the original AFD tool, lived in
// process globals: the current phase, the generations a query has
// resolved, and the per-query collaborators the Scanner needs. One State
// is constructed per query; Run resets its index, summary and statistics
// on entry, so nothing survives between queries.
type State struct {
	Dir         string
	Base        string
	SwitchGrace int64

	Grammar   *logrec.Grammar
	Archive   *archive.Interpreter
	Resolver  jobinfo.Resolver
	Matcher   filter.Matcher
	Sink      sink.Sink
	Criteria  criteria.Criteria

	Phase   Phase
	Index   *lineindex.Index
	Summary sink.Summary
	Stats   *stats.Collector
}

// NewState constructs a query-scoped State. matcher may be nil to use
// filter.DefaultMatcher.
func NewState(dir, base string, switchGrace int64, grammar *logrec.Grammar, arch *archive.Interpreter, resolver jobinfo.Resolver, matcher filter.Matcher, snk sink.Sink, c criteria.Criteria) *State {
	if matcher == nil {
		matcher = filter.DefaultMatcher
	}
	st := &State{
		Dir:         dir,
		Base:        base,
		SwitchGrace: switchGrace,
		Grammar:     grammar,
		Archive:     arch,
		Resolver:    resolver,
		Matcher:     matcher,
		Sink:        snk,
		Criteria:    c,
		Phase:       Idle,
		Index:       lineindex.New(scanner.LinesBuffered),
		Stats:       &stats.Collector{},
	}
	st.Summary.BindStats(st.Stats)
	return st
}

// Run drives the SEARCHING phase over every generation the time window
// selects. It returns Following if the window's end is open and no
// interrupt or list-limit has already ended the query; Follow then carries
// out that phase.
func (s *State) Run(ctx context.Context) (Phase, error) {
	s.Phase = Searching
	s.Index.Reset()
	s.Stats.Reset()
	s.Summary = sink.Summary{}
	s.Summary.BindStats(s.Stats)

	gens, err := rotation.Generations(s.Dir, s.Base)
	if err != nil {
		return s.fail(err)
	}
	// Narrow by stat alone before mapping any content: a generation whose
	// mtime says it cannot intersect the window is never opened at all.
	statBounds, err := rotation.StatBounds(gens)
	if err != nil {
		return s.fail(err)
	}
	gens = rotation.SelectByStat(gens, statBounds,
		s.Criteria.TimeWindow.Start, s.Criteria.TimeWindow.End, s.SwitchGrace)

	// Generations lists index 0 (newest) first; the Scanner should walk
	// oldest-to-newest, so reverse.
	for i, j := 0, len(gens)-1; i < j; i, j = i+1, j-1 {
		gens[i], gens[j] = gens[j], gens[i]
	}

	predicate := filter.Plan(s.Matcher, s.Criteria)
	jobCache := jobinfo.NewCache(s.Resolver)
	defer jobCache.Free()

	for _, g := range gens {
		m, err := rotation.Open(g)
		if err != nil {
			return s.fail(err)
		}
		buf := m.Bytes()

		first, ok := firstTimestamp(buf, s.Grammar.DateWidth)
		if !ok {
			m.Close()
			continue
		}
		last, _ := lastTimestamp(buf, s.Grammar.DateWidth)

		// A generation whose own [first, last] timestamp bounds, extended by the
		// switch-file grace period, doesn't intersect the query window
		// at all is dropped before the Scanner is ever invoked on it.
		selected := rotation.SelectRange(
			[]rotation.Generation{g},
			[]rotation.Bounds{{First: first, Last: last}},
			s.Criteria.TimeWindow.Start, s.Criteria.TimeWindow.End, s.SwitchGrace,
		)
		if len(selected) == 0 {
			m.Close()
			continue
		}

		// An open start (-1) scans from the top of the generation.
		start := 0
		if s.Criteria.TimeWindow.Start != -1 {
			start = timeindex.SearchTime(buf, s.Criteria.TimeWindow.Start, first, last, s.Grammar.DateWidth, s.Grammar.HostWidth, timeindex.Lower)
		}
		end := timeindex.SearchTime(buf, s.Criteria.TimeWindow.End, first, last, s.Grammar.DateWidth, s.Grammar.HostWidth, timeindex.Upper)

		if start >= end {
			m.Close()
			continue
		}

		sc := &scanner.Scanner{
			Grammar:    s.Grammar,
			Archive:    s.Archive,
			Predicate:  predicate,
			Criteria:   s.Criteria,
			JobInfo:    jobCache,
			Stats:      s.Stats,
			Sink:       s.Sink,
			Generation: g.Index,
		}
		outcome, err := sc.Run(ctx, buf, start, end, s.Index, &s.Summary)
		m.Close()
		if err != nil {
			return s.fail(err)
		}
		switch outcome {
		case scanner.Interrupted:
			s.Phase = Interrupted
			s.Sink.PublishSummary(s.Summary)
			return s.Phase, nil
		case scanner.LimitReached:
			s.Phase = Done
			s.Sink.PublishSummary(s.Summary)
			return s.Phase, nil
		}
	}

	s.Sink.PublishSummary(s.Summary)

	if !s.Criteria.TimeWindow.Open() {
		s.Phase = Done
		return s.Phase, nil
	}

	s.Phase = Following
	return s.Phase, nil
}

// Follow enters tail-follow mode for the generation Run left open-ended:
// it polls the currently-open generation, re-running the Scanner over
// every newly appended delta, until ctx is cancelled or the Sink requests
// a stop. A detected rotation is handled by draining whatever the old
// inode still held through the Scanner first, then discarding the
// in-memory index and restarting the whole query via Run (rediscovery).
func (s *State) Follow(ctx context.Context) (Phase, error) {
	path := filepath.Join(s.Dir, s.Base)
	f, err := tail.Open(path)
	if err != nil {
		return s.fail(err)
	}
	defer f.Close()

	predicate := filter.Plan(s.Matcher, s.Criteria)
	jobCache := jobinfo.NewCache(s.Resolver)
	defer jobCache.Free()

	scanDelta := func(buf []byte) error {
		if len(buf) == 0 {
			return nil
		}
		sc := &scanner.Scanner{
			Grammar:    s.Grammar,
			Archive:    s.Archive,
			Predicate:  predicate,
			Criteria:   s.Criteria,
			JobInfo:    jobCache,
			Stats:      s.Stats,
			Sink:       s.Sink,
			Generation: 0,
		}
		_, err := sc.Run(ctx, buf, 0, len(buf), s.Index, &s.Summary)
		if err != nil {
			return err
		}
		s.Sink.PublishSummary(s.Summary)
		return nil
	}

	// When nothing new arrives the waiting indicator rotates, if the Sink
	// has one to rotate.
	var onIdle func()
	if sp, ok := s.Sink.(interface{ NextSpinnerFrame() byte }); ok {
		onIdle = func() {
			s.Sink.PublishStatus(fmt.Sprintf("searching %c", sp.NextSpinnerFrame()))
		}
	}

	s.Phase = Following
	runErr := tail.Run(ctx, f, s.Sink.CheckInterrupt, func(u tail.Update) error {
		// Drain whatever the old inode still held before ever looking at
		// the new one, preserving append-only order across the rotation.
		if err := scanDelta(u.Drained); err != nil {
			return err
		}
		if u.Rotated {
			s.Sink.PublishStatus("generation rotated, rediscovering")
			phase, err := s.Run(ctx)
			if err != nil {
				return err
			}
			if phase != Following {
				return errRediscoveryDone
			}
			return nil
		}
		return scanDelta(u.NewBytes)
	}, onIdle)
	if runErr != nil && !errors.Is(runErr, errRediscoveryDone) {
		return s.fail(runErr)
	}
	if s.Phase == Following {
		if s.Sink.CheckInterrupt() {
			s.Phase = Interrupted
		} else {
			s.Phase = Done
		}
	}
	return s.Phase, nil
}

func (s *State) fail(err error) (Phase, error) {
	s.Phase = Interrupted
	return s.Phase, fmt.Errorf("query: %w", err)
}

func firstTimestamp(buf []byte, dateWidth int) (int64, bool) {
	off := 0
	for off < len(buf) {
		if buf[off] != '#' {
			break
		}
		off = logrec.SkipToNewline(buf, off)
	}
	if off >= len(buf) || off+dateWidth > len(buf) {
		return 0, false
	}
	v, err := parseHexField(buf[off : off+dateWidth])
	if err != nil {
		return 0, false
	}
	return v, true
}

func lastTimestamp(buf []byte, dateWidth int) (int64, bool) {
	// Scan backward from the end to the last non-comment record.
	end := len(buf)
	for end > 0 {
		start := end - 1
		for start > 0 && buf[start-1] != '\n' {
			start--
		}
		if start < end && (end-start) > 0 && buf[start] != '#' && start+dateWidth <= len(buf) {
			v, err := parseHexField(buf[start : start+dateWidth])
			if err == nil {
				return v, true
			}
		}
		if start == 0 {
			break
		}
		end = start
	}
	return 0, false
}

func parseHexField(b []byte) (int64, error) {
	var v int64
	for _, c := range b {
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			return 0, fmt.Errorf("query: bad hex digit %q", c)
		}
		v = v<<4 | d
	}
	return v, nil
}
