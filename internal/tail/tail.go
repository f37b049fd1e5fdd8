// Package tail follows the currently-open log generation: once a query
// reaches the open end of a time window, it polls the currently-open
// generation for new bytes and detects the file being rotated out from
// under it by comparing inode numbers, draining whatever the old inode
// still holds before rebinding to the new one.
package tail

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"
)

// PollInterval is how often the follower wakes up to look for new bytes
// or a rotation: a single goroutine driven by a time.Ticker, not a
// background reader racing the Scanner. A var, not a const, so tests can
// shorten it instead of waiting out the production cadence.
var PollInterval = 1 * time.Second

// Update describes one poll's findings.
type Update struct {
	// NewBytes is the newly-appended region of the generation, if any.
	NewBytes []byte
	// Rotated reports whether the file at Path was replaced (a new inode)
	// since the last poll. When true, Drained holds whatever remained to
	// be read from the old inode before Follower rebound.
	Rotated bool
	Drained []byte
}

// Follower tails one path, reopening it across rotations.
type Follower struct {
	Path string

	f     *os.File
	ino   uint64
	size  int64
}

// Open binds the Follower to Path's current inode, starting from
// whatever size it currently has (the caller has typically already
// scanned up to that size).
func Open(path string) (*Follower, error) {
	t := &Follower{Path: path}
	if err := t.bind(); err != nil {
		return nil, err
	}
	return t, nil
}

// Close releases the Follower's open file handle.
func (t *Follower) Close() error {
	if t.f == nil {
		return nil
	}
	return t.f.Close()
}

func (t *Follower) bind() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return fmt.Errorf("tail: open %s: %w", t.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("tail: stat %s: %w", t.Path, err)
	}
	t.f = f
	t.ino = inodeOf(info)
	t.size = info.Size()
	return nil
}

// Poll checks for new bytes appended to the current generation, or for
// the file having been rotated to a new inode. On rotation, it first
// drains the remainder of the old inode's content, then rebinds to the
// path's current inode at offset 0 and reports NewBytes from there.
func (t *Follower) Poll() (Update, error) {
	info, err := os.Stat(t.Path)
	if err != nil {
		return Update{}, fmt.Errorf("tail: stat %s: %w", t.Path, err)
	}

	if inodeOf(info) != t.ino {
		drained, err := t.readFrom(t.f, t.size)
		if err != nil {
			return Update{}, err
		}
		t.f.Close()
		if err := t.bind(); err != nil {
			return Update{}, err
		}
		fresh, err := t.readFrom(t.f, 0)
		if err != nil {
			return Update{}, err
		}
		t.size = int64(len(fresh))
		return Update{Rotated: true, Drained: drained, NewBytes: fresh}, nil
	}

	if info.Size() <= t.size {
		return Update{}, nil
	}
	fresh, err := t.readFrom(t.f, t.size)
	if err != nil {
		return Update{}, err
	}
	t.size += int64(len(fresh))
	return Update{NewBytes: fresh}, nil
}

func (t *Follower) readFrom(f *os.File, off int64) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("tail: stat: %w", err)
	}
	n := info.Size() - off
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("tail: read %s: %w", t.Path, err)
	}
	return buf, nil
}

func inodeOf(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ino
	}
	return 0
}

// Run drives Poll on a PollInterval ticker until ctx is cancelled or
// checkStop reports true, delivering each non-empty Update to onUpdate.
// A poll that finds nothing calls onIdle (if non-nil) instead, so the
// caller can publish a waiting indicator. Run does not start a separate
// reader goroutine racing the caller, it is the caller's own loop.
func Run(ctx context.Context, t *Follower, checkStop func() bool, onUpdate func(Update) error, onIdle func()) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if checkStop != nil && checkStop() {
				return nil
			}
			u, err := t.Poll()
			if err != nil {
				return err
			}
			if len(u.Drained) == 0 && len(u.NewBytes) == 0 {
				if onIdle != nil {
					onIdle()
				}
				continue
			}
			if err := onUpdate(u); err != nil {
				return err
			}
		}
	}
}
