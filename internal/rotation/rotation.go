// Package rotation enumerates a log directory's numbered generations,
// mmaps each in turn, and selects the contiguous run of generations a
// query's time window actually touches.
package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// Generation is one numbered log file in a rotation directory: base
// (index 0, the currently-open file), base.0 (index 1), base.1 (index
// 2), and so on, with higher indices being older (AFD's own rotation
// convention).
type Generation struct {
	Index int
	Path  string
}

// Generations lists every generation of base found in dir, newest first
// (index 0 is the currently-open file, "base" with no suffix).
func Generations(dir, base string) ([]Generation, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("rotation: read %s: %w", dir, err)
	}

	var gens []Generation
	prefix := base + "."
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case name == base:
			gens = append(gens, Generation{Index: 0, Path: filepath.Join(dir, name)})
		case strings.HasPrefix(name, prefix):
			n, err := strconv.Atoi(name[len(prefix):])
			if err != nil {
				continue // not a generation suffix, e.g. a ".gz" sibling
			}
			// The bare current file alone claims index 0; dotted suffix
			// n is the (n+1)th generation back.
			gens = append(gens, Generation{Index: n + 1, Path: filepath.Join(dir, name)})
		}
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i].Index < gens[j].Index })
	return gens, nil
}

// Mapping is one mmap'd generation, ready for the Time Index and Scanner
// to read from.
type Mapping struct {
	Generation Generation
	mmap       mmap.MMap
}

// Bytes returns the mapped generation's contents.
func (m *Mapping) Bytes() []byte { return m.mmap }

// Close unmaps the generation.
func (m *Mapping) Close() error {
	if m.mmap == nil {
		return nil
	}
	err := m.mmap.Unmap()
	m.mmap = nil
	return err
}

// Open mmaps g's file read-only.
func Open(g Generation) (*Mapping, error) {
	f, err := os.Open(g.Path)
	if err != nil {
		return nil, fmt.Errorf("rotation: open %s: %w", g.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("rotation: stat %s: %w", g.Path, err)
	}
	if info.Size() == 0 {
		return &Mapping{Generation: g}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("rotation: mmap %s: %w", g.Path, err)
	}
	return &Mapping{Generation: g, mmap: m}, nil
}

// Bounds is a generation's first and last record timestamps: read from its
// mapped content by the query driver, or estimated from its modification
// time by StatBounds.
type Bounds struct {
	First, Last int64
}

// StatBounds derives a coarse Bounds estimate for each of gens from its
// file's modification time alone: the cheap stat-only signal used to
// narrow the generation range before ever mmapping a single byte of
// content. A generation whose file has gone missing since Generations was
// called gets the zero Bounds, as if its modification time were 0.
func StatBounds(gens []Generation) ([]Bounds, error) {
	bounds := make([]Bounds, len(gens))
	for i, g := range gens {
		info, err := os.Stat(g.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("rotation: stat %s: %w", g.Path, err)
		}
		mt := info.ModTime().Unix()
		bounds[i] = Bounds{First: mt, Last: mt}
	}
	return bounds, nil
}

// SelectByStat narrows gens (ascending Index, newest first) to the run of
// generations whose modification times can intersect [start, end], before
// any content is mapped. A generation's mtime is an upper bound on its
// record timestamps, so generations newer than the one with the lowest
// mtime still >= end hold only records written after the window closed,
// and generations whose mtime plus switchGrace falls before start hold
// only records older than the window. When no generation's mtime reaches
// end the newest is kept; when none reaches start the oldest is.
func SelectByStat(gens []Generation, bounds []Bounds, start, end, switchGrace int64) []Generation {
	if len(gens) != len(bounds) {
		panic("rotation: gens and bounds length mismatch")
	}
	if len(gens) == 0 {
		return nil
	}

	newest := 0
	if end != -1 {
		newest = -1
		for i := range gens {
			if bounds[i].Last >= end {
				newest = i
			}
		}
		if newest == -1 {
			newest = 0
		}
	}

	oldest := len(gens) - 1
	if start != -1 {
		oldest = -1
		for i := range gens {
			if bounds[i].Last+switchGrace >= start {
				oldest = i
			}
		}
		if oldest == -1 {
			oldest = len(gens) - 1
		}
	}

	if newest > oldest {
		return nil
	}
	return gens[newest : oldest+1]
}

// SelectRange narrows gens (in whatever order the caller holds them) to
// the generations whose [Bounds.First, Bounds.Last] intersects [start, end]. switchGrace
// extends every generation's Last by that many seconds, matching AFD's
// own allowance for a generation's trailing records having been written
// slightly after the next generation's rotation boundary.
//
// bounds must be indexed the same way as gens. Generations outside the
// window are dropped; the remaining generations keep their original
// relative order.
func SelectRange(gens []Generation, bounds []Bounds, start, end int64, switchGrace int64) []Generation {
	if len(gens) != len(bounds) {
		panic("rotation: gens and bounds length mismatch")
	}

	var out []Generation
	for i, g := range gens {
		b := bounds[i]
		lo, hi := b.First, b.Last+switchGrace
		if end != -1 && lo > end {
			continue
		}
		if start != -1 && hi < start {
			continue
		}
		out = append(out, g)
	}
	return out
}
