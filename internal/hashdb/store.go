package hashdb

import (
	"bufio"
	"io"
	"slices"
	"sync"
)

// Store is the in-memory hash set: a sorted, duplicate-free slice of pairs.
// All mutation goes through Insert, which preserves the ordering invariant
// that Contains relies on for binary search. A Store is not safe for
// concurrent use on its own; see Shared.
type Store struct {
	pairs []Pair
}

func NewStore(capacityHint int) *Store {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Store{pairs: make([]Pair, 0, capacityHint)}
}

func (s *Store) Len() int { return len(s.pairs) }

// IndexOf returns the position of p in ascending order and whether it is
// present.
func (s *Store) IndexOf(p Pair) (int, bool) {
	return slices.BinarySearchFunc(s.pairs, p, Pair.Compare)
}

func (s *Store) Contains(p Pair) bool {
	_, ok := s.IndexOf(p)
	return ok
}

// Insert adds p unless it is already present and reports whether it was
// added. Insertion shifts every following element, so a large store pays
// O(n) per new hash; that is the accepted cost of keeping lookups a plain
// binary search over one slice.
func (s *Store) Insert(p Pair) bool {
	i, ok := s.IndexOf(p)
	if ok {
		return false
	}
	s.pairs = slices.Insert(s.pairs, i, p)
	return true
}

// BulkInsert applies Insert in arrival order and returns the subset that
// was actually added, still in arrival order. In-batch duplicates count
// once.
func (s *Store) BulkInsert(pairs []Pair) []Pair {
	var added []Pair
	for _, p := range pairs {
		if s.Insert(p) {
			added = append(added, p)
		}
	}
	return added
}

// setAll takes ownership of a bulk-parsed slice, restoring the sorted
// duplicate-free invariant when the input was not already in order.
// Reports whether a re-sort was needed.
func (s *Store) setAll(pairs []Pair) bool {
	resorted := false
	if !slices.IsSortedFunc(pairs, Pair.Compare) {
		slices.SortFunc(pairs, Pair.Compare)
		resorted = true
	}
	s.pairs = slices.Compact(pairs)
	return resorted
}

// WriteText writes every element in ascending order as canonical text
// lines.
func (s *Store) WriteText(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	buf := make([]byte, 0, LineLen)
	for _, p := range s.pairs {
		buf = p.AppendLine(buf[:0])
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Shared is the process-wide handle to the one Store instance, passed to
// every connection handler. A single exclusive mutex covers queries and
// updates alike: both need a stable snapshot across a whole batch, and
// batches are capped at 65535 hashes.
type Shared struct {
	mu    sync.Mutex
	store *Store
}

func NewShared(store *Store) *Shared { return &Shared{store: store} }

// Acquire blocks until the caller holds the store exclusively. Every
// Acquire must be paired with Release.
func (s *Shared) Acquire() *Store {
	s.mu.Lock()
	return s.store
}

func (s *Shared) Release() { s.mu.Unlock() }
