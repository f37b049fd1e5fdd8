package query

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holger24/afd-logquery/internal/archive"
	"github.com/holger24/afd-logquery/internal/criteria"
	"github.com/holger24/afd-logquery/internal/jobinfo"
	"github.com/holger24/afd-logquery/internal/logrec"
	"github.com/holger24/afd-logquery/internal/sink"
	"github.com/holger24/afd-logquery/internal/tail"
)

type recordingSink struct {
	rows []sink.Row
}

func (r *recordingSink) PushBatch(rows []sink.Row)   { r.rows = append(r.rows, rows...) }
func (r *recordingSink) PublishSummary(sink.Summary) {}
func (r *recordingSink) PublishStatus(string)        {}
func (r *recordingSink) CheckInterrupt() bool        { return false }

type noResolver struct{}

func (noResolver) Lookup(jobID uint64, mode jobinfo.Mode) (jobinfo.Info, error) {
	return jobinfo.Info{}, jobinfo.ErrUnknownJob
}

func writeGeneration(t *testing.T, dir, name string, recs []logrec.Record, g *logrec.Grammar) {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range recs {
		line, err := g.Encode(r)
		if err != nil {
			t.Fatal(err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStateRunClosedWindowReachesDone(t *testing.T) {
	dir := t.TempDir()
	g := logrec.NewGrammar()
	recs := []logrec.Record{
		{Timestamp: 1, Host: "h", Framing: logrec.FramingLegacy, Protocol: logrec.FTP, LocalName: "a.dat", Size: sizeOf(t, "1"), JobID: 1},
		{Timestamp: 2, Host: "h", Framing: logrec.FramingLegacy, Protocol: logrec.FTP, LocalName: "b.dat", Size: sizeOf(t, "1"), JobID: 1},
	}
	writeGeneration(t, dir, "delivery.log", recs, g)

	snk := &recordingSink{}
	c := criteria.Criteria{
		ProtocolMask: logrec.AllProtocols,
		TimeWindow:   criteria.TimeWindow{Start: 1, End: 2},
	}
	st := NewState(dir, "delivery.log", 0, g, archive.NewInterpreter(func() int64 { return 0 }), noResolver{}, nil, snk, c)

	phase, err := st.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if phase != Done {
		t.Errorf("phase = %v, want Done", phase)
	}
	if len(snk.rows) != 2 {
		t.Fatalf("emitted %d rows, want 2: %+v", len(snk.rows), snk.rows)
	}
}

func TestStateRunOpenWindowSwitchesToFollowing(t *testing.T) {
	dir := t.TempDir()
	g := logrec.NewGrammar()
	recs := []logrec.Record{
		{Timestamp: 1, Host: "h", Framing: logrec.FramingLegacy, Protocol: logrec.FTP, LocalName: "a.dat", Size: sizeOf(t, "1"), JobID: 1},
	}
	writeGeneration(t, dir, "delivery.log", recs, g)

	snk := &recordingSink{}
	c := criteria.Criteria{
		ProtocolMask: logrec.AllProtocols,
		TimeWindow:   criteria.TimeWindow{Start: 1, End: -1},
	}
	st := NewState(dir, "delivery.log", 0, g, archive.NewInterpreter(func() int64 { return 0 }), noResolver{}, nil, snk, c)

	phase, err := st.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if phase != Following {
		t.Errorf("phase = %v, want Following", phase)
	}
}

// TestFollowDrainsOldInodeBeforeRediscovering checks that a rotation
// whose old inode still holds unread bytes has those bytes scanned and
// emitted before the engine rebinds to the new inode and restarts the
// historical search.
func TestFollowDrainsOldInodeBeforeRediscovering(t *testing.T) {
	orig := tail.PollInterval
	tail.PollInterval = 20 * time.Millisecond
	defer func() { tail.PollInterval = orig }()

	dir := t.TempDir()
	g := logrec.NewGrammar()
	path := filepath.Join(dir, "delivery.log")

	first := []logrec.Record{
		{Timestamp: 1, Host: "h", Framing: logrec.FramingLegacy, Protocol: logrec.FTP, LocalName: "a.dat", Size: sizeOf(t, "1"), JobID: 1},
	}
	writeGeneration(t, dir, "delivery.log", first, g)

	snk := &recordingSink{}
	c := criteria.Criteria{
		ProtocolMask: logrec.AllProtocols,
		TimeWindow:   criteria.TimeWindow{Start: 1, End: -1},
	}
	st := NewState(dir, "delivery.log", 0, g, archive.NewInterpreter(func() int64 { return 0 }), noResolver{}, nil, snk, c)

	phase, err := st.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if phase != Following {
		t.Fatalf("phase = %v, want Following", phase)
	}
	if len(snk.rows) != 1 {
		t.Fatalf("after Run, emitted %d rows, want 1", len(snk.rows))
	}

	// Append an unread record to the still-open (soon-to-be-old) inode,
	// then rotate the name aside and start a fresh generation 0, the way
	// the Rotation Coordinator's newest file is replaced underneath a
	// live follower.
	line, err := g.Encode(logrec.Record{Timestamp: 2, Host: "h", Framing: logrec.FramingLegacy, Protocol: logrec.FTP, LocalName: "b.dat", Size: sizeOf(t, "1"), JobID: 1})
	if err != nil {
		t.Fatal(err)
	}
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fh.Write(append(line, '\n')); err != nil {
		t.Fatal(err)
	}
	fh.Close()

	if err := os.Rename(path, filepath.Join(dir, "delivery.log.0")); err != nil {
		t.Fatal(err)
	}
	third := []logrec.Record{
		{Timestamp: 3, Host: "h", Framing: logrec.FramingLegacy, Protocol: logrec.FTP, LocalName: "c.dat", Size: sizeOf(t, "1"), JobID: 1},
	}
	writeGeneration(t, dir, "delivery.log", third, g)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := st.Follow(ctx); err != nil {
		t.Fatal(err)
	}

	if len(snk.rows) < 3 {
		t.Fatalf("after Follow, emitted %d rows, want at least 3: %+v", len(snk.rows), snk.rows)
	}
	names := make([]string, len(snk.rows))
	for i, r := range snk.rows {
		names[i] = r.Name
	}
	foundB, foundC := -1, -1
	for i, n := range names {
		if n == "b.dat" {
			foundB = i
		}
		if n == "c.dat" {
			foundC = i
		}
	}
	if foundB < 0 {
		t.Fatalf("drained old-inode record b.dat never emitted: %v", names)
	}
	if foundC < 0 {
		t.Fatalf("rediscovered record c.dat never emitted: %v", names)
	}
	if foundB > foundC {
		t.Errorf("old-inode record b.dat (index %d) emitted after new-generation record c.dat (index %d), want before", foundB, foundC)
	}
}

func sizeOf(t *testing.T, hex string) logrec.Size {
	t.Helper()
	s, err := logrec.ParseSize([]byte(hex))
	if err != nil {
		t.Fatal(err)
	}
	return s
}
