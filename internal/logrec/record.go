package logrec

import (
	"bytes"
	"errors"
	"fmt"
)

// Outcome is the delivery outcome encoded in the new (type_offset==5)
// framing's outcome digit.
type Outcome int

const (
	NormalDelivered Outcome = iota
	NormalReceived
	ConfOfDispatch
	ConfOfReceipt
	ConfOfRetrieve
	ConfTimeup
	numOutcomes
)

// View is a bitfield over the record view flags from the query criteria.
type View uint8

const (
	ViewArchivedOnly View = 1 << iota
	ViewReceivedOnly
	ViewOutputOnly
	ViewConfirmation
)

// OutcomeRule describes one outcome digit: its meaning and the view flag
// that causes records carrying it to be dropped.
type OutcomeRule struct {
	Outcome Outcome
	// Drop reports whether a record with this outcome should be dropped
	// given the active view flags.
	Drop func(v View) bool
}

// outcomeTable is the outcome-digit decode table. It exists once; the
// Scanner applies its drop rules through RuleFor.
var outcomeTable = [numOutcomes]OutcomeRule{
	NormalDelivered: {NormalDelivered, func(v View) bool { return v&ViewReceivedOnly != 0 }},
	NormalReceived:  {NormalReceived, func(v View) bool { return v&(ViewOutputOnly|ViewArchivedOnly) != 0 }},
	ConfOfDispatch:  {ConfOfDispatch, func(v View) bool { return v&ViewConfirmation == 0 }},
	ConfOfReceipt:   {ConfOfReceipt, func(v View) bool { return v&ViewConfirmation == 0 }},
	ConfOfRetrieve:  {ConfOfRetrieve, func(v View) bool { return v&ViewConfirmation == 0 }},
	ConfTimeup:      {ConfTimeup, func(v View) bool { return v&ViewConfirmation == 0 }},
}

// RuleFor returns the outcome rule for o.
func RuleFor(o Outcome) (OutcomeRule, bool) {
	if o < 0 || o >= numOutcomes {
		return OutcomeRule{}, false
	}
	return outcomeTable[o], true
}

// Framing identifies which of the three historical type-frame layouts a
// record uses.
type Framing int

const (
	// FramingLegacy is the pre-framing layout: a single type digit, no
	// outcome, no retries.
	FramingLegacy Framing = 1
	// FramingMidEra adds retries but has no explicit outcome digit; its
	// implicit outcome is NormalDelivered.
	FramingMidEra Framing = 3
	// FramingNew carries an explicit outcome digit and retries.
	FramingNew Framing = 5
)

// Frame byte widths, measured from the start of the type-frame field. See
// Decode for the exact layout each framing uses.
const (
	legacyFrameWidth = 2
	midEraFrameWidth = 5
	newFrameWidth    = 6
)

var (
	// ErrShortLine is returned when a line ends before a fixed-width
	// field has been fully read.
	ErrShortLine = errors.New("logrec: short line")
	// ErrBadFraming is returned when the type-frame probe bytes do not
	// match any known framing.
	ErrBadFraming = errors.New("logrec: unrecognised framing")
	// ErrBadField is returned when a variable-width field fails to
	// parse (non-hex digits, missing separator, and so on).
	ErrBadField = errors.New("logrec: malformed field")
)

// Record is one decoded delivery-log line.
type Record struct {
	Timestamp    int64
	Host         string
	Framing      Framing
	Outcome      Outcome
	Protocol     Protocol
	LocalName    string
	RemoteName   string
	HaveRemote   bool
	Size         Size
	TransferTime float64
	Retries      uint32
	HaveRetries  bool
	JobID        uint64
	ArchivePath  []byte
	HaveArchive  bool

	// FieldOffset is the byte offset, relative to the start of the line,
	// at which the job-id field begins. Used by detail views (Data
	// Model: "field_offset[k]").
	FieldOffset int
	// Unprintable counts file-name bytes (<0x20) that were substituted
	// with '?' while decoding LocalName/RemoteName.
	Unprintable int
}

// Grammar holds the fixed-width parameters of one log generation's header,
// read once per generation.
type Grammar struct {
	Sep       byte
	DateWidth int
	HostWidth int
	Types     *TypeRegistry
}

// NewGrammar returns a Grammar with the canonical AFD field widths and
// separator byte.
func NewGrammar() *Grammar {
	return &Grammar{
		Sep:       0x01,
		DateWidth: 8,
		HostWidth: 8,
		Types:     NewTypeRegistry(),
	}
}

// frameStart returns the byte offset of the type-frame field: the probe
// positions at +2 and +4 are measured from here.
func (g *Grammar) frameStart() int {
	return g.DateWidth + 1 + g.HostWidth
}

// Decode parses one line (without its trailing '\n') into a Record.
// A malformed line returns ErrShortLine, ErrBadFraming or ErrBadField; the
// caller (Scanner) is responsible for skipping to the next newline and
// continuing.
func (g *Grammar) Decode(line []byte) (Record, error) {
	var rec Record

	if len(line) < g.DateWidth {
		return rec, ErrShortLine
	}
	ts, err := parseHex64(line[:g.DateWidth])
	if err != nil {
		return rec, fmt.Errorf("%w: timestamp: %v", ErrBadField, err)
	}
	rec.Timestamp = int64(ts)

	hostStart := g.DateWidth + 1
	hostEnd := hostStart + g.HostWidth
	if len(line) < hostEnd {
		return rec, ErrShortLine
	}
	rec.Host = string(bytes.TrimLeft(line[hostStart:hostEnd], " "))

	f := g.frameStart()
	if len(line) < f+2 {
		return rec, ErrShortLine
	}
	probe2 := line[f+2]

	switch {
	case probe2 != g.Sep:
		rec.Framing = FramingLegacy
		rec.Outcome = NormalDelivered
		if len(line) < f+legacyFrameWidth {
			return rec, ErrShortLine
		}
		p, err := protocolFromHexDigit(line[f+1])
		if err != nil {
			return rec, fmt.Errorf("%w: %v", ErrBadField, err)
		}
		rec.Protocol = p
		rec.FieldOffset = f + legacyFrameWidth
	default:
		if len(line) < f+4 {
			return rec, ErrShortLine
		}
		probe4 := line[f+4]
		if probe4 == g.Sep {
			rec.Framing = FramingMidEra
			rec.Outcome = NormalDelivered
			if len(line) < f+midEraFrameWidth {
				return rec, ErrShortLine
			}
			p, err := protocolFromHexDigit(line[f+3])
			if err != nil {
				return rec, fmt.Errorf("%w: %v", ErrBadField, err)
			}
			rec.Protocol = p
			rec.FieldOffset = f + midEraFrameWidth
		} else {
			rec.Framing = FramingNew
			outDigit, err := hexDigit(line[f+1])
			if err != nil {
				return rec, fmt.Errorf("%w: outcome: %v", ErrBadField, err)
			}
			if int(outDigit) >= int(numOutcomes) {
				return rec, fmt.Errorf("%w: outcome digit %d out of range", ErrBadFraming, outDigit)
			}
			rec.Outcome = Outcome(outDigit)
			if len(line) < f+newFrameWidth {
				return rec, ErrShortLine
			}
			p, err := protocolFromHexDigit(line[f+5])
			if err != nil {
				return rec, fmt.Errorf("%w: %v", ErrBadField, err)
			}
			rec.Protocol = p
			rec.FieldOffset = f + newFrameWidth
		}
	}

	cur := rec.FieldOffset
	localName, next, err := readField(line, cur, g.Sep)
	if err != nil {
		return rec, err
	}
	rec.LocalName, rec.Unprintable = sanitizeName(localName)
	cur = next

	// remote_name is present iff the byte immediately after its SEP is
	// not itself SEP.
	if cur >= len(line) {
		return rec, ErrShortLine
	}
	if line[cur] != g.Sep {
		remote, next, err := readField(line, cur, g.Sep)
		if err != nil {
			return rec, err
		}
		name, unpr := sanitizeName(remote)
		rec.RemoteName = name
		rec.Unprintable += unpr
		rec.HaveRemote = true
		cur = next
	} else {
		cur++ // consume the empty remote_name's own SEP
	}

	sizeField, next, err := readField(line, cur, g.Sep)
	if err != nil {
		return rec, err
	}
	rec.Size, err = ParseSize(sizeField)
	if err != nil {
		return rec, fmt.Errorf("%w: size: %v", ErrBadField, err)
	}
	cur = next

	durField, next, err := readField(line, cur, g.Sep)
	if err != nil {
		return rec, err
	}
	rec.TransferTime, err = parseFloat(durField)
	if err != nil {
		return rec, fmt.Errorf("%w: transfer time: %v", ErrBadField, err)
	}
	cur = next

	if rec.Framing > FramingLegacy {
		retField, next, err := readField(line, cur, g.Sep)
		if err != nil {
			return rec, err
		}
		r, err := parseHex64(retField)
		if err != nil {
			return rec, fmt.Errorf("%w: retries: %v", ErrBadField, err)
		}
		rec.Retries = uint32(r)
		rec.HaveRetries = true
		cur = next
	}

	rec.FieldOffset = cur
	jobField, next, err := readField(line, cur, g.Sep)
	if err != nil {
		return rec, err
	}
	rec.JobID, err = parseHex64(jobField)
	if err != nil {
		return rec, fmt.Errorf("%w: job id: %v", ErrBadField, err)
	}
	cur = next

	// archive_path is optional; its absence leaves nothing but the
	// record terminator (or nothing at all, if SEP already consumed it).
	if cur < len(line) {
		rec.ArchivePath = line[cur:]
		rec.HaveArchive = len(rec.ArchivePath) > 0
	}

	return rec, nil
}

// readField returns the bytes of the field starting at start up to (not
// including) the next sep byte, and the offset just past that sep.
func readField(line []byte, start int, sep byte) (field []byte, next int, err error) {
	if start > len(line) {
		return nil, 0, ErrShortLine
	}
	i := bytes.IndexByte(line[start:], sep)
	if i < 0 {
		return nil, 0, fmt.Errorf("%w: missing separator", ErrBadField)
	}
	return line[start : start+i], start + i + 1, nil
}

// sanitizeName replaces file-name bytes below 0x20 with '?' and reports
// how many were replaced.
func sanitizeName(b []byte) (string, int) {
	var unprintable int
	for _, c := range b {
		if c < 0x20 {
			unprintable++
		}
	}
	if unprintable == 0 {
		return string(b), 0
	}
	out := make([]byte, len(b))
	for i, c := range b {
		if c < 0x20 {
			out[i] = '?'
		} else {
			out[i] = c
		}
	}
	return string(out), unprintable
}

// SkipToNewline returns the offset just past the next '\n' in buf at or
// after start, or len(buf) if there is none. Malformed records resume here.
func SkipToNewline(buf []byte, start int) int {
	i := bytes.IndexByte(buf[start:], '\n')
	if i < 0 {
		return len(buf)
	}
	return start + i + 1
}
