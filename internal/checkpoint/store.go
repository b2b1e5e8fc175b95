// Package checkpoint implements an in-response checkpoint registry: an
// insertion-ordered mapping from marker ID to the accumulated
// user-visible and raw prefixes captured at the moment the marker was
// seen.
package checkpoint

import "sync"

// Record is a single checkpoint: the position and the two accumulated
// prefixes at the moment the marker was observed.
type Record struct {
	ID string

	// Position is len(VisiblePrefix), kept alongside it as a derived
	// invariant for fast pruning.
	Position int

	VisiblePrefix string
	RawPrefix     string
}

// Store is an insertion-ordered ID -> Record map. A later Register call
// with the same ID overwrites the earlier record but keeps its original
// slot in insertion order, matching a Go map's natural "last write wins"
// semantics combined with an explicit order index.
//
// A small mutex-guarded map keyed by a correlation ID, generalized here
// to preserve insertion order and support range-pruning.
type Store struct {
	mu      sync.Mutex
	records map[string]Record
	order   []string // insertion order of IDs currently present
}

// New returns an empty checkpoint store.
func New() *Store {
	return &Store{records: make(map[string]Record)}
}

// Register creates or overwrites the entry for id, recording
// position = len(visiblePrefix).
func (s *Store) Register(id, visiblePrefix, rawPrefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		s.order = append(s.order, id)
	}
	s.records[id] = Record{
		ID:            id,
		Position:      len(visiblePrefix),
		VisiblePrefix: visiblePrefix,
		RawPrefix:     rawPrefix,
	}
}

// Get returns the record for id and whether it exists.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	return r, ok
}

// PruneAfter removes every entry with Position > p, so that after a
// rewind to checkpoint C the store contains exactly the checkpoints
// whose position <= C.Position.
func (s *Store) PruneAfter(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0:0]
	for _, id := range s.order {
		if s.records[id].Position > p {
			delete(s.records, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// Len returns the number of checkpoints currently registered.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
