// Package filter selects one of eight per-record name/size/host predicates
// and provides the glob-pattern matcher used by all of them.
package filter

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/holger24/afd-logquery/internal/criteria"
)

// Pattern is an alias for criteria.Pattern, kept local so filter's public
// API reads naturally.
type Pattern = criteria.Pattern

// Result is the three-way outcome of matching one pattern against one
// candidate. BreakOuter short-circuits the enclosing pattern-list loop,
// which is how a negated pattern match vetoes the whole list: negation
// shadows all later patterns in the same list.
type Result int

const (
	NoMatch Result = iota
	Match
	BreakOuter
)

// Matcher matches one candidate string against a single pattern.
type Matcher interface {
	MatchOne(pattern, candidate string) (bool, error)
}

// globMatcher is the default Matcher, backed by doublestar glob syntax.
type globMatcher struct{}

// DefaultMatcher is the glob-based Matcher used when no collaborator is
// injected.
var DefaultMatcher Matcher = globMatcher{}

func (globMatcher) MatchOne(pattern, candidate string) (bool, error) {
	return doublestar.Match(pattern, candidate)
}

// MatchList evaluates candidate against an ordered list of patterns, each
// possibly negated. A negated pattern that matches ends the list
// immediately with BreakOuter (so the caller must treat the record as not
// matching), regardless of any later positive pattern. A positive pattern
// that matches returns Match immediately. Reaching the end of the list
// without a match returns NoMatch, unless the list holds only negated
// patterns: a record that fires none of them survives, so a list with no
// positive pattern at all defaults to Match when nothing in it fired.
func MatchList(m Matcher, patterns []Pattern, candidate string) (Result, error) {
	allNegated := len(patterns) > 0
	for _, p := range patterns {
		if !p.Negated {
			allNegated = false
			break
		}
	}

	for _, p := range patterns {
		ok, err := m.MatchOne(p.Glob, candidate)
		if err != nil {
			return NoMatch, err
		}
		if !ok {
			continue
		}
		if p.Negated {
			return BreakOuter, nil
		}
		return Match, nil
	}

	if allNegated {
		return Match, nil
	}
	return NoMatch, nil
}
