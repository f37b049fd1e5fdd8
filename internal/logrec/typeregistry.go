package logrec

import "sync"

// TypeRegistry collects log-type metadata: the Scanner hands it the
// payload of every "#!#<payload>" comment line it encounters,
// fire-and-forget. The registry simply remembers the
// most recent payload per generation index so diagnostics can report which
// log-type header a generation declared.
type TypeRegistry struct {
	mu      sync.Mutex
	byGen   map[int]string
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{byGen: make(map[int]string)}
}

// Note records payload as the log-type metadata for generation gen.
func (t *TypeRegistry) Note(gen int, payload []byte) {
	t.mu.Lock()
	t.byGen[gen] = string(payload)
	t.mu.Unlock()
}

// TypeOf returns the last-noted log-type payload for gen, if any.
func (t *TypeRegistry) TypeOf(gen int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.byGen[gen]
	return s, ok
}
