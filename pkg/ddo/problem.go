package ddo

// DecisionCallback receives one feasible decision at a time from
// Problem.ForEachInDomain, avoiding an allocation for the domain set itself
// on the hot branching path.
type DecisionCallback func(d Decision)

// Problem is the user-supplied model: state type, transition relation,
// variable order, and domain enumerator (§4.G "Problem capabilities").
type Problem interface {
	// NbVariables is the fixed number of decision positions.
	NbVariables() int

	// InitialState is the problem root's state.
	InitialState() Any

	// InitialValue is the accumulated value at the problem root (usually 0).
	InitialValue() int64

	// NextVariable returns the next variable to branch on given the current
	// depth and the (possibly empty) set of states already present in the
	// layer being built, or false if every variable has been assigned.
	// Implementations that don't need the in-progress layer's states (most
	// problems with a static variable order) can ignore the iterator.
	NextVariable(depth int, currentLayerStates func(yield func(Any) bool)) (Variable, bool)

	// Transition computes the state reached by applying dec to state.
	Transition(state Any, dec Decision) Any

	// TransitionCost is the edge cost of applying dec to move from src to
	// dst.
	TransitionCost(src, dst Any, dec Decision) int64

	// ForEachInDomain calls f once per feasible value of variable given
	// state, in any order the problem finds convenient.
	ForEachInDomain(variable Variable, state Any, f DecisionCallback)
}

// ImpactedProblem is an optional Problem extension: IsImpactedBy reports
// whether assigning variable could possibly change depending on state,
// letting a pool-based compiler variant skip re-expanding unaffected
// variables. Exact-by-layer vector diagrams (this implementation, per the
// Open Question in §9) don't need it, but the interface is kept narrow and
// separate so a Problem can opt in without forcing every Problem to
// implement it.
type ImpactedProblem interface {
	Problem
	IsImpactedBy(variable Variable, state Any) bool
}

// StateIterator is the shape NextVariable's currentLayerStates argument is
// built from; exported so Problem implementations written against an older
// call shape can adapt without reaching into package internals.
type StateIterator = func(yield func(Any) bool)

// Relaxation is the user-supplied relaxation operator (§4.G "Relaxation
// capabilities"): a fast upper bound on any completion from a state, a way
// to merge several states into one conservative super-state, and a way to
// relax an edge's cost onto the merged state.
type Relaxation interface {
	// FastUpperBound must be an upper bound on the value of any completion
	// from state (the RUB, §4.E.2).
	FastUpperBound(state Any) int64

	// Merge folds the given states into one state that conservatively
	// over-approximates every one of them.
	Merge(states []Any) Any

	// Relax must be an upper bound on the true cost of the edge
	// (src, dst, decision, originalCost) once dst has been folded into
	// merged.
	Relax(src, dst, merged Any, decision Decision, originalCost int64) int64
}

// Cutoff is polled between layer expansions (§4.G). MustStop returning true
// aborts the in-progress compile with ErrCutoff.
type Cutoff interface {
	MustStop() bool
}

// CutoffNever never stops a compile.
type CutoffNever struct{}

func (CutoffNever) MustStop() bool { return false }

// WidthHeuristic computes the maximum width allowed for the diagram compiled
// from a given subproblem (§4.G).
type WidthHeuristic interface {
	MaxWidth(sp SubProblem) int
}
