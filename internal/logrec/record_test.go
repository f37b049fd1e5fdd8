package logrec

import "testing"

func TestDecodeEncodeRoundTrip(t *testing.T) {
	g := NewGrammar()

	tests := []struct {
		name string
		rec  Record
	}{
		{
			name: "legacy",
			rec: Record{
				Timestamp: 0x5f000000,
				Host:      "hosta",
				Framing:   FramingLegacy,
				Outcome:   NormalDelivered,
				Protocol:  FTP,
				LocalName: "file.dat",
				Size:      Size{value: 0x400},
				JobID:     0x1,
			},
		},
		{
			name: "mid-era with remote name and retries",
			rec: Record{
				Timestamp:   0x5f000001,
				Host:        "hostb",
				Framing:     FramingMidEra,
				Outcome:     NormalDelivered,
				Protocol:    SFTP,
				LocalName:   "a.dat",
				RemoteName:  "b.dat",
				HaveRemote:  true,
				Size:        Size{value: 0x1000},
				Retries:     3,
				HaveRetries: true,
				JobID:       0x2a,
			},
		},
		{
			name: "new framing with outcome and archive path",
			rec: Record{
				Timestamp:   0x5f000002,
				Host:        "hostc",
				Framing:     FramingNew,
				Outcome:     ConfOfReceipt,
				Protocol:    HTTPS,
				LocalName:   "c.dat",
				Size:        Size{inf: true},
				Retries:     1,
				HaveRetries: true,
				JobID:       0xdead,
				ArchivePath: []byte("a/b/5f000500_c.dat"),
				HaveArchive: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := g.Encode(tt.rec)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := g.Decode(line)
			if err != nil {
				t.Fatalf("Decode(%q): %v", line, err)
			}

			if got.Timestamp != tt.rec.Timestamp {
				t.Errorf("Timestamp = %#x, want %#x", got.Timestamp, tt.rec.Timestamp)
			}
			if got.Framing != tt.rec.Framing {
				t.Errorf("Framing = %v, want %v", got.Framing, tt.rec.Framing)
			}
			if got.Outcome != tt.rec.Outcome {
				t.Errorf("Outcome = %v, want %v", got.Outcome, tt.rec.Outcome)
			}
			if got.Protocol != tt.rec.Protocol {
				t.Errorf("Protocol = %v, want %v", got.Protocol, tt.rec.Protocol)
			}
			if got.LocalName != tt.rec.LocalName {
				t.Errorf("LocalName = %q, want %q", got.LocalName, tt.rec.LocalName)
			}
			if got.HaveRemote != tt.rec.HaveRemote || got.RemoteName != tt.rec.RemoteName {
				t.Errorf("RemoteName = (%q,%v), want (%q,%v)", got.RemoteName, got.HaveRemote, tt.rec.RemoteName, tt.rec.HaveRemote)
			}
			if got.Size.Infinite() != tt.rec.Size.Infinite() || got.Size.Value() != tt.rec.Size.Value() {
				t.Errorf("Size = %+v, want %+v", got.Size, tt.rec.Size)
			}
			if got.HaveRetries != tt.rec.HaveRetries || got.Retries != tt.rec.Retries {
				t.Errorf("Retries = (%d,%v), want (%d,%v)", got.Retries, got.HaveRetries, tt.rec.Retries, tt.rec.HaveRetries)
			}
			if got.JobID != tt.rec.JobID {
				t.Errorf("JobID = %#x, want %#x", got.JobID, tt.rec.JobID)
			}
			if got.HaveArchive != tt.rec.HaveArchive || string(got.ArchivePath) != string(tt.rec.ArchivePath) {
				t.Errorf("ArchivePath = (%q,%v), want (%q,%v)", got.ArchivePath, got.HaveArchive, tt.rec.ArchivePath, tt.rec.HaveArchive)
			}
		})
	}
}

func TestDecodeShortLine(t *testing.T) {
	g := NewGrammar()
	_, err := g.Decode([]byte("short"))
	if err != ErrShortLine {
		t.Fatalf("Decode(short line) error = %v, want %v", err, ErrShortLine)
	}
}

func TestDecodeUnprintableName(t *testing.T) {
	g := NewGrammar()
	rec := Record{
		Timestamp: 1,
		Host:      "h",
		Framing:   FramingLegacy,
		Protocol:  FTP,
		LocalName: "bad\x02name",
		Size:      Size{value: 1},
		JobID:     1,
	}
	line, err := g.Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := g.Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.LocalName != "bad?name" {
		t.Errorf("LocalName = %q, want %q", got.LocalName, "bad?name")
	}
	if got.Unprintable != 1 {
		t.Errorf("Unprintable = %d, want 1", got.Unprintable)
	}
}

func TestOutcomeTableDropsByView(t *testing.T) {
	rule, ok := RuleFor(NormalDelivered)
	if !ok {
		t.Fatal("RuleFor(NormalDelivered) not found")
	}
	if !rule.Drop(ViewReceivedOnly) {
		t.Error("NormalDelivered should be dropped when only ViewReceivedOnly is set")
	}
	if rule.Drop(0) {
		t.Error("NormalDelivered should not be dropped with no view flags")
	}

	rule, ok = RuleFor(ConfOfDispatch)
	if !ok {
		t.Fatal("RuleFor(ConfOfDispatch) not found")
	}
	if rule.Drop(ViewConfirmation) {
		t.Error("ConfOfDispatch should survive with ViewConfirmation set")
	}
	if !rule.Drop(0) {
		t.Error("ConfOfDispatch should be dropped with no view flags")
	}
}
