package logrec

import (
	"bytes"
	"fmt"
	"strconv"
)

var hexDigitForProtocol = func() map[Protocol]byte {
	m := make(map[Protocol]byte, numProtocols)
	for d, p := range protocolByHex {
		if p >= 0 {
			m[p] = "0123456789abcdef"[d]
		}
	}
	return m
}()

// Encode renders rec as a delivery-log line (without the trailing '\n'),
// using the widths and separator in g. It is the inverse of Grammar.Decode
// and exists primarily so tests can build well-formed fixtures without
// hand-assembling byte offsets.
func (g *Grammar) Encode(rec Record) ([]byte, error) {
	var buf bytes.Buffer

	ts := strconv.FormatUint(uint64(rec.Timestamp), 16)
	if len(ts) > g.DateWidth {
		return nil, fmt.Errorf("logrec: timestamp overflows date width")
	}
	fmt.Fprintf(&buf, "%0*s", g.DateWidth, ts)
	buf.WriteByte(' ')
	if len(rec.Host) > g.HostWidth {
		return nil, fmt.Errorf("logrec: host name overflows host width")
	}
	fmt.Fprintf(&buf, "%*s", g.HostWidth, rec.Host)

	td, ok := hexDigitForProtocol[rec.Protocol]
	if !ok {
		return nil, fmt.Errorf("logrec: unknown protocol %v", rec.Protocol)
	}

	switch rec.Framing {
	case FramingLegacy, 0:
		buf.WriteByte('x')
		buf.WriteByte(td)
	case FramingMidEra:
		buf.WriteByte('x')
		buf.WriteByte('x')
		buf.WriteByte(g.Sep)
		buf.WriteByte(td)
		buf.WriteByte(g.Sep)
	case FramingNew:
		buf.WriteByte('x')
		od, err := outcomeDigit(rec.Outcome)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(od)
		buf.WriteByte(g.Sep)
		buf.WriteByte('x')
		buf.WriteByte('x')
		buf.WriteByte(td)
	default:
		return nil, fmt.Errorf("logrec: unknown framing %v", rec.Framing)
	}

	buf.WriteString(rec.LocalName)
	buf.WriteByte(g.Sep)
	if rec.HaveRemote {
		buf.WriteString(rec.RemoteName)
	}
	buf.WriteByte(g.Sep)

	buf.WriteString(encodeSize(rec.Size))
	buf.WriteByte(g.Sep)

	buf.WriteString(strconv.FormatFloat(rec.TransferTime, 'f', -1, 64))
	buf.WriteByte(g.Sep)

	if rec.Framing > FramingLegacy {
		buf.WriteString(strconv.FormatUint(uint64(rec.Retries), 16))
		buf.WriteByte(g.Sep)
	}

	buf.WriteString(strconv.FormatUint(rec.JobID, 16))
	buf.WriteByte(g.Sep)

	if rec.HaveArchive {
		buf.Write(rec.ArchivePath)
	}

	return buf.Bytes(), nil
}

func outcomeDigit(o Outcome) (byte, error) {
	if o < 0 || o >= numOutcomes {
		return 0, fmt.Errorf("logrec: outcome out of range: %v", o)
	}
	return "0123456789"[o], nil
}

func encodeSize(s Size) string {
	if s.Infinite() {
		return "ffffffffffffffff" // 16 hex digits: width > 15 forces the sentinel.
	}
	return strconv.FormatUint(s.value, 16)
}
