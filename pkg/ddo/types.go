// Package ddo implements a branch-and-bound optimizer for discrete
// maximization problems whose state space is explored through compiled
// multi-valued decision diagrams (MDDs).
//
// A user plugs in a [Problem] (state type, transition relation, variable
// order, domain enumerator), a [Relaxation] (fast upper bound, state merge,
// edge relaxation) and a handful of small heuristic adapters; package ddo/mdd
// compiles width-bounded diagrams over that problem and package bnb drives a
// parallel branch-and-bound search over the resulting cutsets.
package ddo

import "math"

// Variable is a non-negative integer index identifying one decision position
// in the problem's fixed variable order.
type Variable int

// Decision is the pair (variable, integer value): "variable is assigned that
// value on this edge".
type Decision struct {
	Variable Variable
	Value    int
}

// MaxValue / MinValue are the saturation bounds for node and edge values.
// Cost arithmetic saturates at these instead of overflowing; see AddSat.
const (
	MaxValue = math.MaxInt64 / 2
	MinValue = -MaxValue
)

// AddSat adds a and b using saturating signed arithmetic: values already at
// MaxValue/MinValue stay there instead of overflowing.
func AddSat(a, b int64) int64 {
	if a >= MaxValue || b >= MaxValue {
		if a <= MinValue || b <= MinValue {
			// +inf + -inf is not meaningful in this domain; resolve it to
			// MinValue rather than cancelling to zero.
			return MinValue
		}
		return MaxValue
	}
	if a <= MinValue || b <= MinValue {
		return MinValue
	}
	sum := a + b
	if sum > MaxValue {
		return MaxValue
	}
	if sum < MinValue {
		return MinValue
	}
	return sum
}

// MaxSat returns the saturating-domain max of a and b (plain max suffices
// since MinValue/MaxValue are finite sentinels, never actual overflow).
func MaxSat(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// SubProblem is the fringe unit and the entry point for each new MDD
// compilation: a state, the value accumulated so far on the path from the
// problem root, the decision path itself, an upper bound on any completion,
// and the depth (number of decisions already fixed).
type SubProblem struct {
	State Any
	Value int64
	Path  []Decision
	UB    int64
	Depth int
}

// Any is the opaque, user-supplied state value type. Two states considered
// Equal must be indistinguishable in terms of future transitions. The
// compiler keeps state values as they are returned and never clones them, so
// a State must not be mutated after a Problem or Relaxation method hands it
// back.
type Any = any

// CompilationType selects how a diagram compile call treats layers that grow
// past the width budget.
type CompilationType int

const (
	// Exact compiles the complete diagram: no restriction, no relaxation.
	Exact CompilationType = iota
	// Restricted drops low-promise nodes once a layer exceeds max width,
	// producing a lower bound on the subproblem's optimum.
	Restricted
	// Relaxed merges low-promise nodes via the Relaxation operator once a
	// layer exceeds max width, producing an upper bound and a cutset.
	Relaxed
)

func (c CompilationType) String() string {
	switch c {
	case Exact:
		return "exact"
	case Restricted:
		return "restricted"
	case Relaxed:
		return "relaxed"
	default:
		return "unknown"
	}
}

// Completion is the result of a successful compile: whether the diagram is
// provably exact, and the best value found (nil if no terminal node was
// reachable — infeasibility is not an error, see ErrCutoff in package mdd
// for the one error kind this library does raise).
type Completion struct {
	IsExact   bool
	BestValue *int64
}
