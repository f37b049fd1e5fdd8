package filter

import (
	"testing"

	"github.com/holger24/afd-logquery/internal/criteria"
	"github.com/holger24/afd-logquery/internal/logrec"
)

func TestMatchListShadowAll(t *testing.T) {
	patterns := []Pattern{
		{Glob: "*.tmp", Negated: true},
		{Glob: "*.dat"},
	}
	// "a.tmp" matches the negated pattern first: BreakOuter, regardless of
	// whether a later positive pattern would also have matched.
	r, err := MatchList(DefaultMatcher, patterns, "a.tmp")
	if err != nil {
		t.Fatal(err)
	}
	if r != BreakOuter {
		t.Errorf("MatchList(a.tmp) = %v, want BreakOuter", r)
	}

	r, err = MatchList(DefaultMatcher, patterns, "a.dat")
	if err != nil {
		t.Fatal(err)
	}
	if r != Match {
		t.Errorf("MatchList(a.dat) = %v, want Match", r)
	}

	r, err = MatchList(DefaultMatcher, patterns, "a.log")
	if err != nil {
		t.Fatal(err)
	}
	if r != NoMatch {
		t.Errorf("MatchList(a.log) = %v, want NoMatch", r)
	}
}

// TestMatchListAllNegatedDefaultsToMatch: a names criterion of [!alpha]
// must let "beta" through even though "beta" never positively matches
// anything in the list. An all-negated list has no positive pattern to
// satisfy, so reaching the end of it without a veto must default-accept.
func TestMatchListAllNegatedDefaultsToMatch(t *testing.T) {
	patterns := []Pattern{{Glob: "alpha", Negated: true}}

	r, err := MatchList(DefaultMatcher, patterns, "beta")
	if err != nil {
		t.Fatal(err)
	}
	if r != Match {
		t.Errorf("MatchList(beta) = %v, want Match", r)
	}

	r, err = MatchList(DefaultMatcher, patterns, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if r != BreakOuter {
		t.Errorf("MatchList(alpha) = %v, want BreakOuter", r)
	}
}

func TestPlanSelectsPredicateByActiveAxes(t *testing.T) {
	tests := []struct {
		name string
		c    criteria.Criteria
		cand Candidate
		want bool
	}{
		{
			name: "no criteria always matches",
			c:    criteria.Criteria{},
			cand: Candidate{Name: "x", Host: "y", Size: mustSize(1)},
			want: true,
		},
		{
			name: "size only",
			c:    criteria.Criteria{SizeFilter: criteria.NumericFilter{Op: criteria.CmpGT, Value: 10}},
			cand: Candidate{Size: mustSize(20)},
			want: true,
		},
		{
			name: "names and hosts, both must match",
			c: criteria.Criteria{
				NamePatterns: []Pattern{{Glob: "*.dat"}},
				HostPatterns: []Pattern{{Glob: "host*"}},
			},
			cand: Candidate{Name: "a.dat", Host: "hostz"},
			want: true,
		},
		{
			name: "names and hosts, host mismatch",
			c: criteria.Criteria{
				NamePatterns: []Pattern{{Glob: "*.dat"}},
				HostPatterns: []Pattern{{Glob: "host*"}},
			},
			cand: Candidate{Name: "a.dat", Host: "other"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Plan(DefaultMatcher, tt.c)
			got, err := p.Accept(tt.cand)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func mustSize(v uint64) logrec.Size {
	s, err := logrec.ParseSize([]byte(hexOf(v)))
	if err != nil {
		panic(err)
	}
	return s
}

func hexOf(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf []byte
	for v > 0 {
		buf = append([]byte{digits[v%16]}, buf...)
		v /= 16
	}
	return string(buf)
}
