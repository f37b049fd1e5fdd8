// Package jobinfo resolves a job ID to the directory, user and
// mail-destination strings the Scanner needs for dir/user/job-id filters.
// The external system of record is modelled as the Resolver interface;
// Cache adds per-query memoisation without forcing every backend to
// implement its own.
package jobinfo

import "fmt"

// Mode selects which half of a job's information Lookup should resolve.
type Mode int

const (
	UserOnly Mode = iota
	DirOnly
)

// Info is the full set of fields the Job-ID Resolver can report for one
// job ID. Only the fields relevant to the requested Mode are guaranteed to
// be populated by a given backend.
type Info struct {
	User            string
	MailDestination string
	Dir             string
	DirID           uint32
}

// Resolver is the external Job-Info collaborator's interface: some
// backing system (a database, a local cache file, an external helper
// program) that knows how to answer one job ID at a time.
type Resolver interface {
	Lookup(jobID uint64, mode Mode) (Info, error)
}

// ErrUnknownJob is returned by a Resolver when a job ID has no known info.
var ErrUnknownJob = fmt.Errorf("jobinfo: unknown job id")

// Cache wraps a Resolver with per-query memoisation: identical job IDs
// resolve to identical values for the lifetime of one scan. A Cache is
// single-query-scoped: construct one per query and call Free when the
// query ends.
type Cache struct {
	backend Resolver
	byUser  map[uint64]cacheEntry
	byDir   map[uint64]cacheEntry
}

type cacheEntry struct {
	info Info
	err  error
}

// NewCache returns a Cache fronting backend.
func NewCache(backend Resolver) *Cache {
	return &Cache{
		backend: backend,
		byUser:  make(map[uint64]cacheEntry),
		byDir:   make(map[uint64]cacheEntry),
	}
}

// ResolveUser returns the user and mail destination for jobID.
func (c *Cache) ResolveUser(jobID uint64) (user, mailDestination string, err error) {
	e, ok := c.byUser[jobID]
	if !ok {
		info, err := c.backend.Lookup(jobID, UserOnly)
		e = cacheEntry{info: info, err: err}
		c.byUser[jobID] = e
	}
	return e.info.User, e.info.MailDestination, e.err
}

// ResolveDir returns the directory path and directory ID for jobID.
func (c *Cache) ResolveDir(jobID uint64) (dir string, dirID uint32, err error) {
	e, ok := c.byDir[jobID]
	if !ok {
		info, err := c.backend.Lookup(jobID, DirOnly)
		e = cacheEntry{info: info, err: err}
		c.byDir[jobID] = e
	}
	return e.info.Dir, e.info.DirID, e.err
}

// Free releases the per-query cache. The Cache stays usable afterwards;
// later lookups start from an empty cache.
func (c *Cache) Free() {
	c.byUser = make(map[uint64]cacheEntry)
	c.byDir = make(map[uint64]cacheEntry)
}
