// Package matcher maps origin trade signals onto destination instruments.
// The index is rebuilt wholesale from the catalog and swapped in atomically,
// so a Match running during a rebuild sees either the old or the new
// snapshot, never a mix.
package matcher

import (
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/entity"
)

// snapshot is an immutable view of the catalog grouped by bucket key.
type snapshot struct {
	buckets map[string][]domain.DestinationInstrument
	size    int
	builtAt time.Time
}

// Index holds the current snapshot. It is safe for concurrent use.
type Index struct {
	current atomic.Pointer[snapshot]
	now     func() time.Time
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	idx := &Index{now: time.Now}
	idx.current.Store(&snapshot{buckets: map[string][]domain.DestinationInstrument{}})
	return idx
}

// BucketKey is the lookup key for a category and an unordered entity pair.
func BucketKey(category string, a, b string) string {
	return category + "|" + entity.PairKey(a, b)
}

// Build replaces the index contents with instruments. Instruments missing a
// category or either entity cannot be looked up and are dropped. Order
// within a bucket follows the input order. Build returns the number of
// instruments indexed.
func (i *Index) Build(instruments []domain.DestinationInstrument) int {
	next := &snapshot{
		buckets: make(map[string][]domain.DestinationInstrument),
		builtAt: i.now().UTC(),
	}
	for _, inst := range instruments {
		if inst.Category == "" || inst.Entities[0] == "" || inst.Entities[1] == "" {
			continue
		}
		k := BucketKey(inst.Category, inst.Entities[0], inst.Entities[1])
		next.buckets[k] = append(next.buckets[k], inst)
		next.size++
	}
	i.current.Store(next)
	return next.size
}

// Size is the number of instruments in the current snapshot.
func (i *Index) Size() int {
	return i.current.Load().size
}

// BuiltAt is when the current snapshot was built; zero before the first
// Build.
func (i *Index) BuiltAt() time.Time {
	return i.current.Load().builtAt
}

func (i *Index) load() *snapshot {
	return i.current.Load()
}

func (s *snapshot) bucket(category, a, b string) []domain.DestinationInstrument {
	return s.buckets[BucketKey(category, a, b)]
}
