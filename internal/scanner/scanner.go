// Package scanner walks one generation's decoded records, applies every
// active criterion, and pushes surviving rows through a sink.Sink in
// bounded batches.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/holger24/afd-logquery/internal/archive"
	"github.com/holger24/afd-logquery/internal/criteria"
	"github.com/holger24/afd-logquery/internal/filter"
	"github.com/holger24/afd-logquery/internal/jobinfo"
	"github.com/holger24/afd-logquery/internal/lineindex"
	"github.com/holger24/afd-logquery/internal/logrec"
	"github.com/holger24/afd-logquery/internal/sink"
	"github.com/holger24/afd-logquery/internal/stats"
)

// LinesBuffered is the row-batch size pushed to the Sink at a time. It
// bounds worst-case display jitter: within a batch the Scanner never
// yields.
const LinesBuffered = 256

// checkEveryRecords is how often, in candidate records examined, the
// Scanner re-checks ctx.Err() and the sink's interrupt flag, independent
// of CheckTimeInterval.
const checkEveryRecords = 200

// CheckTimeInterval is the wall-clock fallback interval for the same
// interrupt check, for runs where 200 records take unusually long (a slow
// Job-ID Resolver, for instance).
const CheckTimeInterval = 2 * time.Second

// commentPrefix marks a "#!#<payload>" log-type header line; anything
// else beginning with '#' is an ordinary comment and is simply skipped.
const commentPrefix = "#!#"

// Scanner walks a single generation's byte buffer and applies Criteria to
// each decoded record.
type Scanner struct {
	Grammar    *logrec.Grammar
	Archive    *archive.Interpreter
	Predicate  filter.Predicate
	Criteria   criteria.Criteria
	JobInfo    *jobinfo.Cache
	Stats      *stats.Collector
	Sink       sink.Sink
	Generation int
}

// Outcome reports how a Run call ended.
type Outcome int

const (
	// Done means the generation (or its requested range) was scanned to
	// completion.
	Done Outcome = iota
	// Interrupted means the Sink signalled a stop request.
	Interrupted
	// LimitReached means criteria.Criteria.ListLimit rows were emitted.
	LimitReached
)

// Run scans buf[start:end), decoding each record, skipping comment lines,
// and pushing surviving rows to the Sink. Each surviving row is appended
// to idx and folded into summary. It reports how the scan ended. The list
// limit counts every row in idx, so it spans all generations of a query.
func (s *Scanner) Run(ctx context.Context, buf []byte, start, end int, idx *lineindex.Index, summary *sink.Summary) (Outcome, error) {
	var (
		batch      []sink.Row
		examined   int
		lastCheck  = time.Now()
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.Sink.PushBatch(batch)
		batch = batch[:0]
	}

	off := start
	for off < end {
		lineStart := off
		next := logrec.SkipToNewline(buf, off)
		line := buf[lineStart:trimNewline(buf, next, lineStart)]
		off = next

		if len(line) == 0 {
			continue
		}
		if line[0] == '#' {
			if len(line) >= len(commentPrefix) && string(line[:len(commentPrefix)]) == commentPrefix {
				s.Grammar.Types.Note(s.Generation, line[len(commentPrefix):])
			}
			continue
		}

		examined++
		if examined%checkEveryRecords == 0 || time.Since(lastCheck) >= CheckTimeInterval {
			lastCheck = time.Now()
			if err := ctx.Err(); err != nil {
				flush()
				return Interrupted, nil
			}
			if s.Sink.CheckInterrupt() {
				flush()
				return Interrupted, nil
			}
		}

		rec, err := s.Grammar.Decode(line)
		if err != nil {
			// Malformed record: skip it and continue, rather than abort
			// the whole generation.
			continue
		}

		if rule, ok := logrec.RuleFor(rec.Outcome); ok && rule.Drop(s.Criteria.View) {
			continue
		}
		if !s.Criteria.ProtocolMask.Has(rec.Protocol) {
			continue
		}
		if !s.Criteria.TransferTimeFilter.Matches(rec.TransferTime) {
			continue
		}

		ok, row, err := s.evaluate(rec)
		if err != nil {
			return Done, fmt.Errorf("scanner: generation %d: %w", s.Generation, err)
		}
		if !ok {
			continue
		}

		idx.Append(int64(lineStart), int64(rec.FieldOffset), rec.HaveArchive)
		summary.Observe(rec.Timestamp, rec.Size, rec.TransferTime, rec.Unprintable)
		if s.Stats != nil {
			s.Stats.Observe(rec.TransferTime, rec.Size.Float64())
		}

		batch = append(batch, row)
		if len(batch) >= LinesBuffered {
			flush()
			s.Sink.PublishSummary(*summary)
		}

		if s.Criteria.ListLimit > 0 && idx.Len() >= s.Criteria.ListLimit {
			flush()
			s.Sink.PublishStatus(fmt.Sprintf("List limit (%d) reached!", s.Criteria.ListLimit))
			return LimitReached, nil
		}
	}

	flush()
	return Done, nil
}

// evaluate applies the dir/user/job-id filters (via the Job-ID Resolver),
// builds the name/host/size Candidate, runs the chosen Predicate, and
// derives the archive status and display row for one candidate record.
func (s *Scanner) evaluate(rec logrec.Record) (bool, sink.Row, error) {
	if s.Criteria.HaveDirsOrUsersOrJobs() {
		ok, err := s.matchesJobCriteria(rec.JobID)
		if err != nil {
			return false, sink.Row{}, err
		}
		if !ok {
			return false, sink.Row{}, nil
		}
	}

	name := rec.LocalName
	if s.Criteria.NameDisplay == criteria.DisplayRemote {
		name = rec.RemoteName
	}
	cand := filter.Candidate{Name: name, Host: rec.Host, Size: rec.Size}
	ok, err := s.Predicate.Accept(cand)
	if err != nil {
		return false, sink.Row{}, err
	}
	if !ok {
		return false, sink.Row{}, nil
	}

	stat, err := s.Archive.Status(rec)
	if err != nil {
		// A malformed archive-path field degrades the same way a
		// malformed record does: drop this one record and keep scanning
		// the rest of the generation.
		return false, sink.Row{}, nil
	}
	if s.Criteria.View&logrec.ViewArchivedOnly != 0 && stat != archive.StatusPresent {
		return false, sink.Row{}, nil
	}

	return true, sink.Row{
		Timestamp:    rec.Timestamp,
		Host:         rec.Host,
		Name:         name,
		Size:         sizeString(rec.Size),
		TransferTime: rec.TransferTime,
		JobID:        rec.JobID,
		Archive:      byte(stat),
	}, nil
}

// matchesJobCriteria resolves jobID against the active dir/user/job-id
// filters. A job ID list match short-circuits resolution entirely; dir
// and user globs require a Resolver round trip.
func (s *Scanner) matchesJobCriteria(jobID uint64) (bool, error) {
	if len(s.Criteria.JobIDs) > 0 {
		found := false
		for _, id := range s.Criteria.JobIDs {
			if id == jobID {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	if len(s.Criteria.DirIDs) > 0 || len(s.Criteria.DirGlobs) > 0 {
		dir, dirID, err := s.JobInfo.ResolveDir(jobID)
		if err != nil {
			if err == jobinfo.ErrUnknownJob {
				return false, nil
			}
			return false, err
		}
		if len(s.Criteria.DirIDs) > 0 && !containsUint32(s.Criteria.DirIDs, dirID) {
			return false, nil
		}
		if len(s.Criteria.DirGlobs) > 0 {
			r, err := filter.MatchList(filter.DefaultMatcher, s.Criteria.DirGlobs, dir)
			if err != nil {
				return false, err
			}
			if r != filter.Match {
				return false, nil
			}
		}
	}

	if len(s.Criteria.UserGlobs) > 0 {
		user, _, err := s.JobInfo.ResolveUser(jobID)
		if err != nil {
			if err == jobinfo.ErrUnknownJob {
				return false, nil
			}
			return false, err
		}
		r, err := filter.MatchList(filter.DefaultMatcher, s.Criteria.UserGlobs, user)
		if err != nil {
			return false, err
		}
		if r != filter.Match {
			return false, nil
		}
	}

	return true, nil
}

func containsUint32(xs []uint32, v uint32) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// sizeString renders a logrec.Size for display, using "INF" for the
// infinity sentinel.
func sizeString(s logrec.Size) string {
	if s.Infinite() {
		return "INF"
	}
	return fmt.Sprintf("%d", s.Value())
}

// trimNewline returns end with its trailing '\n' (and the '\r' before it,
// if any) stripped, so Decode never sees the line terminator.
func trimNewline(buf []byte, end, start int) int {
	if end > start && end <= len(buf) && buf[end-1] == '\n' {
		end--
		if end > start && buf[end-1] == '\r' {
			end--
		}
	}
	return end
}
