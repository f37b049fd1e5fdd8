package filter

import (
	"github.com/holger24/afd-logquery/internal/criteria"
	"github.com/holger24/afd-logquery/internal/logrec"
)

// Candidate is the subset of a decoded record the name/size/host predicate
// needs. Scanner builds one per surviving record after protocol/view
// filtering and transfer-time checks have already run, so predicates never
// look at fields outside their three axes.
type Candidate struct {
	// Name is whichever of local/remote name the criteria's NameDisplay
	// selects.
	Name string
	Host string
	Size logrec.Size
}

// Predicate is one of the eight per-record filters chosen by Plan. Accept
// reports whether a candidate survives the names/size/hosts axes; it
// returns an error only when the underlying Matcher does (a malformed
// glob).
type Predicate interface {
	Accept(c Candidate) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(c Candidate) (bool, error)

// Accept implements Predicate.
func (f PredicateFunc) Accept(c Candidate) (bool, error) { return f(c) }

// noCriteria is the fast path: no name, size or host filter is active.
func noCriteria() Predicate {
	return PredicateFunc(func(Candidate) (bool, error) { return true, nil })
}

func sizeOnly(sf criteria.NumericFilter) Predicate {
	return PredicateFunc(func(c Candidate) (bool, error) {
		return sf.MatchesSize(c.Size), nil
	})
}

func hostsOnly(m Matcher, hosts []Pattern) Predicate {
	return PredicateFunc(func(c Candidate) (bool, error) {
		r, err := MatchList(m, hosts, c.Host)
		if err != nil {
			return false, err
		}
		return r == Match, nil
	})
}

func sizeAndHosts(m Matcher, sf criteria.NumericFilter, hosts []Pattern) Predicate {
	return PredicateFunc(func(c Candidate) (bool, error) {
		if !sf.MatchesSize(c.Size) {
			return false, nil
		}
		r, err := MatchList(m, hosts, c.Host)
		if err != nil {
			return false, err
		}
		return r == Match, nil
	})
}

func namesOnly(m Matcher, names []Pattern) Predicate {
	return PredicateFunc(func(c Candidate) (bool, error) {
		r, err := MatchList(m, names, c.Name)
		if err != nil {
			return false, err
		}
		return r == Match, nil
	})
}

func namesAndSize(m Matcher, names []Pattern, sf criteria.NumericFilter) Predicate {
	return PredicateFunc(func(c Candidate) (bool, error) {
		if !sf.MatchesSize(c.Size) {
			return false, nil
		}
		r, err := MatchList(m, names, c.Name)
		if err != nil {
			return false, err
		}
		return r == Match, nil
	})
}

// namesAndHosts combines the name and recipient-host axes. A negated name
// pattern match ends evaluation of that record with no match, discarding
// any later positive pattern in the name list (MatchList's BreakOuter
// already encodes this; here we simply treat BreakOuter as rejection).
func namesAndHosts(m Matcher, names, hosts []Pattern) Predicate {
	return PredicateFunc(func(c Candidate) (bool, error) {
		rn, err := MatchList(m, names, c.Name)
		if err != nil {
			return false, err
		}
		if rn != Match {
			return false, nil
		}
		rh, err := MatchList(m, hosts, c.Host)
		if err != nil {
			return false, err
		}
		return rh == Match, nil
	})
}

func namesSizeAndHosts(m Matcher, names []Pattern, sf criteria.NumericFilter, hosts []Pattern) Predicate {
	return PredicateFunc(func(c Candidate) (bool, error) {
		if !sf.MatchesSize(c.Size) {
			return false, nil
		}
		rn, err := MatchList(m, names, c.Name)
		if err != nil {
			return false, err
		}
		if rn != Match {
			return false, nil
		}
		rh, err := MatchList(m, hosts, c.Host)
		if err != nil {
			return false, err
		}
		return rh == Match, nil
	})
}
