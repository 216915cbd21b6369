package ddo

import "sync"

// Ordering mirrors the classic three-way comparator result. "Greater" means
// "more promising" per the Dominance contract in §4.C.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

// Dominance is the user-supplied (or default) dominance checker, component C.
// Only exact nodes may ever be checked against it — a relaxed node's state is
// a conservative over-approximation of several merged states and is not safe
// to declare dominated.
type Dominance interface {
	// Compare gives a total-for-sort ordering between two (state, value)
	// pairs reached at the same depth.
	Compare(stateA Any, valueA int64, stateB Any, valueB int64) Ordering

	// IsDominatedOrInsert atomically checks whether (state, depth, value) is
	// dominated by a previously inserted, strictly better-or-equal entry for
	// the same state and depth; if not dominated, it inserts this entry so
	// later, worse arrivals at the same state are dominated by it. When
	// dominated, it also returns the threshold the caller should pin onto
	// the dominated node's theta.
	IsDominatedOrInsert(state Any, depth int, value int64) (dominated bool, threshold *int64)
}

// NoDominance never dominates anything; it is the zero-cost default for
// problems that don't supply a dominance relation.
type NoDominance struct{}

func (NoDominance) Compare(_ Any, valueA int64, _ Any, valueB int64) Ordering {
	switch {
	case valueA > valueB:
		return Greater
	case valueA < valueB:
		return Less
	default:
		return Equal
	}
}

func (NoDominance) IsDominatedOrInsert(Any, int, int64) (bool, *int64) { return false, nil }

// SimpleDominance is a ready-to-use Dominance that dominates a state at a
// given depth whenever a prior exact node reached the same state at the same
// depth with a value greater than or equal to the candidate's.
type SimpleDominance struct {
	mu   sync.Mutex
	best map[cacheKey]int64
}

// NewSimpleDominance creates an empty dominance table.
func NewSimpleDominance() *SimpleDominance {
	return &SimpleDominance{best: make(map[cacheKey]int64)}
}

func (d *SimpleDominance) Compare(_ Any, valueA int64, _ Any, valueB int64) Ordering {
	switch {
	case valueA > valueB:
		return Greater
	case valueA < valueB:
		return Less
	default:
		return Equal
	}
}

func (d *SimpleDominance) IsDominatedOrInsert(state Any, depth int, value int64) (bool, *int64) {
	key := cacheKey{key: sprintState(state), depth: depth}
	d.mu.Lock()
	defer d.mu.Unlock()
	if prior, ok := d.best[key]; ok && prior >= value {
		th := prior
		return true, &th
	}
	d.best[key] = value
	return false, nil
}
