package ddo

import "container/heap"

// StateRanking gives a total order over states, used only as a tie-break
// after upper bound in the fringe ordering (component G's StateRanking
// capability, consumed by component D).
type StateRanking interface {
	Compare(a, b Any) Ordering
}

// NaturalRanking breaks ties arbitrarily but deterministically by the
// fmt-stable string rendering of the state — adequate whenever the problem
// doesn't care which of two equal-UB subproblems is explored first.
type NaturalRanking struct{}

func (NaturalRanking) Compare(a, b Any) Ordering {
	sa, sb := sprintState(a), sprintState(b)
	switch {
	case sa < sb:
		return Less
	case sa > sb:
		return Greater
	default:
		return Equal
	}
}

// Fringe is the ordered store of pending subproblems (component D):
// highest-upper-bound-first, ties broken by a StateRanking. Two
// implementations are provided, matching the "simple" and "no-dup" variants
// named in §4.D.
type Fringe interface {
	Push(sp SubProblem)
	Pop() (SubProblem, bool)
	Clear()
	Len() int
	IsEmpty() bool
}

// fringeHeap is the shared container/heap plumbing behind both Fringe
// implementations: a max-heap on UB, tie-broken by ranking.
type fringeHeap struct {
	items   []SubProblem
	ranking StateRanking
}

func (h *fringeHeap) Len() int { return len(h.items) }
func (h *fringeHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.UB != b.UB {
		return a.UB > b.UB
	}
	return h.ranking.Compare(a.State, b.State) == Greater
}
func (h *fringeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *fringeHeap) Push(x any)    { h.items = append(h.items, x.(SubProblem)) }
func (h *fringeHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// SimpleFringe accepts duplicate states: every pushed SubProblem is kept,
// even if another pending subproblem shares its state.
type SimpleFringe struct {
	h *fringeHeap
}

// NewSimpleFringe creates an empty SimpleFringe ordered by ranking for ties.
func NewSimpleFringe(ranking StateRanking) *SimpleFringe {
	if ranking == nil {
		ranking = NaturalRanking{}
	}
	h := &fringeHeap{ranking: ranking}
	heap.Init(h)
	return &SimpleFringe{h: h}
}

func (f *SimpleFringe) Push(sp SubProblem) { heap.Push(f.h, sp) }

func (f *SimpleFringe) Pop() (SubProblem, bool) {
	if f.h.Len() == 0 {
		return SubProblem{}, false
	}
	return heap.Pop(f.h).(SubProblem), true
}

func (f *SimpleFringe) Clear()       { f.h.items = nil }
func (f *SimpleFringe) Len() int     { return f.h.Len() }
func (f *SimpleFringe) IsEmpty() bool { return f.h.Len() == 0 }

// NoDupFringe suppresses duplicate states: when a state already has a
// pending entry, the new one replaces it only if its UB is higher (keeping
// the more promising copy), otherwise it is dropped outright.
type NoDupFringe struct {
	h     *fringeHeap
	index map[string]int // sprintState(state) -> position in h.items
}

// NewNoDupFringe creates an empty NoDupFringe ordered by ranking for ties.
func NewNoDupFringe(ranking StateRanking) *NoDupFringe {
	if ranking == nil {
		ranking = NaturalRanking{}
	}
	h := &fringeHeap{ranking: ranking}
	heap.Init(h)
	return &NoDupFringe{h: h, index: make(map[string]int)}
}

func (f *NoDupFringe) Push(sp SubProblem) {
	key := sprintState(sp.State)
	if pos, ok := f.index[key]; ok {
		existing := f.h.items[pos]
		if sp.UB <= existing.UB {
			return
		}
		f.h.items[pos] = sp
		heap.Fix(f.h, pos)
		f.reindex()
		return
	}
	heap.Push(f.h, sp)
	f.reindex()
}

// reindex rebuilds the state->position map. container/heap's Push/Pop/Fix
// permute h.items arbitrarily, so the map is recomputed after any mutation
// rather than maintained incrementally — simpler and cheap relative to a
// full MDD compile per pop.
func (f *NoDupFringe) reindex() {
	for k := range f.index {
		delete(f.index, k)
	}
	for i, sp := range f.h.items {
		f.index[sprintState(sp.State)] = i
	}
}

func (f *NoDupFringe) Pop() (SubProblem, bool) {
	if f.h.Len() == 0 {
		return SubProblem{}, false
	}
	sp := heap.Pop(f.h).(SubProblem)
	f.reindex()
	return sp, true
}

func (f *NoDupFringe) Clear() {
	f.h.items = nil
	f.index = make(map[string]int)
}
func (f *NoDupFringe) Len() int      { return f.h.Len() }
func (f *NoDupFringe) IsEmpty() bool { return f.h.Len() == 0 }
