package filter

import "github.com/holger24/afd-logquery/internal/criteria"

// Plan chooses exactly one of the eight predicates, keyed by which of
// {names, size, hosts} are active in c. It is a pure mapping with no
// state, called once per generation.
func Plan(m Matcher, c criteria.Criteria) Predicate {
	haveNames := c.HaveNames()
	haveSize := c.HaveSize()
	haveHosts := c.HaveHosts()

	switch {
	case !haveNames && !haveSize && !haveHosts:
		return noCriteria()
	case !haveNames && haveSize && !haveHosts:
		return sizeOnly(c.SizeFilter)
	case !haveNames && !haveSize && haveHosts:
		return hostsOnly(m, c.HostPatterns)
	case !haveNames && haveSize && haveHosts:
		return sizeAndHosts(m, c.SizeFilter, c.HostPatterns)
	case haveNames && !haveSize && !haveHosts:
		return namesOnly(m, c.NamePatterns)
	case haveNames && haveSize && !haveHosts:
		return namesAndSize(m, c.NamePatterns, c.SizeFilter)
	case haveNames && !haveSize && haveHosts:
		return namesAndHosts(m, c.NamePatterns, c.HostPatterns)
	default: // haveNames && haveSize && haveHosts
		return namesSizeAndHosts(m, c.NamePatterns, c.SizeFilter, c.HostPatterns)
	}
}
