// Package archive interprets a delivery record's archive-path field and
// derives its archive status.
package archive

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/holger24/afd-logquery/internal/logrec"
)

// Status is the one-character render of whether an archived copy of a
// file still exists, is about to expire, was purged, or does not apply.
type Status byte

const (
	StatusPresent   Status = 'Y'
	StatusExpiring  Status = '?'
	StatusDeleted   Status = 'D'
	StatusReceived  Status = '*'
	StatusDelivered Status = 'N'
)

// ArchiveSubDirLevel is the path-segment depth (0-indexed, counting '/'
// separators) at which the expiry-time prefix lives, as in
// "arch/5f0a0000_1".
const ArchiveSubDirLevel = 1

// ArchiveStepTime is the grace period, in seconds, after an archive's
// expiry time during which it is assumed to still be physically present
// even though it is logically expired.
const ArchiveStepTime = 345600 // 4 days, matching AFD's default.

// Clock reports the current time in seconds, injected so tests can fix
// "now" instead of racing wall-clock time.
type Clock func() int64

// Interpreter computes archive status for decoded records.
type Interpreter struct {
	Now Clock
}

// NewInterpreter returns an Interpreter using now as its clock. A nil now
// is replaced by a clock that always reports 0.
func NewInterpreter(now Clock) *Interpreter {
	if now == nil {
		now = func() int64 { return 0 }
	}
	return &Interpreter{Now: now}
}

// Status returns the archive status for rec.
func (in *Interpreter) Status(rec logrec.Record) (Status, error) {
	if !rec.HaveArchive {
		return statusWithoutArchive(rec), nil
	}
	expiry, err := expiryTime(rec.ArchivePath)
	if err != nil {
		return 0, err
	}
	now := in.Now()
	switch {
	case now > expiry+ArchiveStepTime:
		return StatusDeleted, nil
	case now > expiry-5:
		return StatusExpiring, nil
	default:
		return StatusPresent, nil
	}
}

// statusWithoutArchive derives status when no archive path is present:
// the outcome's character code for confirmations, '*' for received
// records, 'N' for delivered records.
func statusWithoutArchive(rec logrec.Record) Status {
	switch rec.Outcome {
	case logrec.ConfOfDispatch:
		return 'd'
	case logrec.ConfOfReceipt:
		return 'r'
	case logrec.ConfOfRetrieve:
		return 'R'
	case logrec.ConfTimeup:
		return 't'
	case logrec.NormalReceived:
		return StatusReceived
	default:
		return StatusDelivered
	}
}

// expiryTime parses the hex expiry-time prefix of the path segment at
// ArchiveSubDirLevel, counting every '/' byte as a separator. Escaped
// separators are not recognised: a '/' preceded by an escape character
// still counts.
func expiryTime(path []byte) (int64, error) {
	depth := 0
	start := 0
	for depth < ArchiveSubDirLevel {
		i := bytes.IndexByte(path[start:], '/')
		if i < 0 {
			return 0, fmt.Errorf("archive: path too shallow for sub-dir level %d: %q", ArchiveSubDirLevel, path)
		}
		start += i + 1
		depth++
	}
	seg := path[start:]
	u := bytes.IndexByte(seg, '_')
	if u < 0 {
		return 0, fmt.Errorf("archive: missing expiry-time prefix in segment %q", seg)
	}
	v, err := strconv.ParseUint(string(seg[:u]), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("archive: bad expiry time: %w", err)
	}
	return int64(v), nil
}
