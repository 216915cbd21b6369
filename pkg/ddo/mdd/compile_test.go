package mdd

import (
	"testing"

	"github.com/gitrdm/goddo/pkg/ddo"
)

// toyProblem is the spec's three-variable, unconstrained, cost-equals-value
// fixture: three variables with domain {0,1,2}, no constraint linking them,
// transition cost equal to the assigned value. Since nothing distinguishes
// one decision sequence from another at a given depth, the state is just
// the remaining variable count — every branch at a given depth collapses
// back into a single node, and the diagram degenerates to straightforward
// layer-by-layer accumulation.
type toyProblem struct{}

type toyState struct{ Remaining int }

func (toyProblem) NbVariables() int    { return 3 }
func (toyProblem) InitialState() ddo.Any { return toyState{Remaining: 3} }
func (toyProblem) InitialValue() int64 { return 0 }

func (toyProblem) NextVariable(depth int, _ ddo.StateIterator) (ddo.Variable, bool) {
	if depth >= 3 {
		return 0, false
	}
	return ddo.Variable(2 - depth), true
}

func (toyProblem) Transition(state ddo.Any, _ ddo.Decision) ddo.Any {
	s := state.(toyState)
	return toyState{Remaining: s.Remaining - 1}
}

func (toyProblem) TransitionCost(_, _ ddo.Any, dec ddo.Decision) int64 {
	return int64(dec.Value)
}

func (toyProblem) ForEachInDomain(variable ddo.Variable, _ ddo.Any, f ddo.DecisionCallback) {
	for v := 0; v <= 2; v++ {
		f(ddo.Decision{Variable: variable, Value: v})
	}
}

type toyRelaxation struct{}

func (toyRelaxation) FastUpperBound(state ddo.Any) int64 {
	return 2 * int64(state.(toyState).Remaining)
}

func (toyRelaxation) Merge(states []ddo.Any) ddo.Any {
	best := states[0].(toyState)
	for _, raw := range states[1:] {
		s := raw.(toyState)
		if s.Remaining > best.Remaining {
			best = s
		}
	}
	return best
}

func (toyRelaxation) Relax(_, _, _ ddo.Any, _ ddo.Decision, originalCost int64) int64 {
	return originalCost
}

func compileToy(t *testing.T, compType ddo.CompilationType, maxWidth int) (ddo.Completion, *Diagram) {
	t.Helper()
	d := New()
	comp, err := d.Compile(CompileInput{
		CompilationType: compType,
		Problem:         toyProblem{},
		Relaxation:      toyRelaxation{},
		MaxWidth:        maxWidth,
		BestLB:          ddo.MinValue,
		Residual: ddo.SubProblem{
			State: toyProblem{}.InitialState(),
			Value: 0,
			UB:    ddo.MaxValue,
			Depth: 0,
		},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return comp, d
}

// S1: any compilation type at any width returns the optimum 6.
func TestCompileS1ThreeVariablesOptimum(t *testing.T) {
	for _, tc := range []struct {
		name     string
		compType ddo.CompilationType
		width    int
	}{
		{"exact", ddo.Exact, 100},
		{"restricted-wide", ddo.Restricted, 100},
		{"relaxed-wide", ddo.Relaxed, 100},
	} {
		t.Run(tc.name, func(t *testing.T) {
			comp, d := compileToy(t, tc.compType, tc.width)
			if comp.BestValue == nil {
				t.Fatal("expected a best value")
			}
			if *comp.BestValue != 6 {
				t.Errorf("expected best value 6, got %d", *comp.BestValue)
			}
			if !d.IsExact() {
				t.Errorf("expected an exact diagram at this width")
			}
			if v, ok := d.BestExactValue(); !ok || v != 6 {
				t.Errorf("expected best exact value 6, got %d (ok=%v)", v, ok)
			}
		})
	}
}

// S3: a cutoff that fires on the very first poll aborts the compile.
func TestCompileS3ImmediateCutoff(t *testing.T) {
	d := New()
	_, err := d.Compile(CompileInput{
		CompilationType: ddo.Exact,
		Problem:         toyProblem{},
		Relaxation:      toyRelaxation{},
		Cutoff:          alwaysStop{},
		MaxWidth:        100,
		BestLB:          ddo.MinValue,
		Residual: ddo.SubProblem{
			State: toyProblem{}.InitialState(),
			UB:    ddo.MaxValue,
		},
	})
	if err != ErrCutoff {
		t.Fatalf("expected ErrCutoff, got %v", err)
	}
}

type alwaysStop struct{}

func (alwaysStop) MustStop() bool { return true }

// S4: an infeasible problem (every domain empty) yields best_value = nil,
// with no error.
type infeasibleProblem struct{ toyProblem }

func (infeasibleProblem) ForEachInDomain(ddo.Variable, ddo.Any, ddo.DecisionCallback) {}

func TestCompileS4Infeasible(t *testing.T) {
	d := New()
	comp, err := d.Compile(CompileInput{
		CompilationType: ddo.Exact,
		Problem:         infeasibleProblem{},
		Relaxation:      toyRelaxation{},
		MaxWidth:        100,
		BestLB:          ddo.MinValue,
		Residual: ddo.SubProblem{
			State: toyProblem{}.InitialState(),
			UB:    ddo.MaxValue,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.BestValue != nil {
		t.Errorf("expected no best value, got %v", *comp.BestValue)
	}
}

// R1: compiling the same input twice on a fresh diagram yields identical
// best_value.
func TestCompileR1Idempotent(t *testing.T) {
	comp1, _ := compileToy(t, ddo.Exact, 100)
	comp2, _ := compileToy(t, ddo.Exact, 100)
	if *comp1.BestValue != *comp2.BestValue {
		t.Errorf("expected identical best values, got %d and %d", *comp1.BestValue, *comp2.BestValue)
	}
}

// dummyProblem/dummyRelax port the original source's DummyProblem/DummyRelax
// fixture (vector_based.rs) used by relaxed_merges_the_less_interesting_nodes
// and relaxed_populates_the_cutset_and_will_not_squash_first_layer: three
// variables, domain {0,1,2} at every depth, cost equal to the assigned
// value, and a relaxation that merges everything to a constant state and
// relaxes every edge to a constant cost. Unlike toyProblem, the state
// includes the accumulated value, so distinct decision sequences reach
// distinct states and the first real layer is genuinely 3 wide.
type dummyState struct {
	Value int64
	Depth int
}

type dummyProblem struct{}

func (dummyProblem) NbVariables() int      { return 3 }
func (dummyProblem) InitialState() ddo.Any { return dummyState{} }
func (dummyProblem) InitialValue() int64   { return 0 }

func (dummyProblem) NextVariable(depth int, _ ddo.StateIterator) (ddo.Variable, bool) {
	if depth >= 3 {
		return 0, false
	}
	return ddo.Variable(depth), true
}

func (dummyProblem) Transition(state ddo.Any, dec ddo.Decision) ddo.Any {
	s := state.(dummyState)
	return dummyState{Value: s.Value + int64(dec.Value), Depth: s.Depth + 1}
}

func (dummyProblem) TransitionCost(_, _ ddo.Any, dec ddo.Decision) int64 {
	return int64(dec.Value)
}

func (dummyProblem) ForEachInDomain(variable ddo.Variable, _ ddo.Any, f ddo.DecisionCallback) {
	for v := 0; v <= 2; v++ {
		f(ddo.Decision{Variable: variable, Value: v})
	}
}

// dummyRelax merges any set of states to a fixed state and relaxes every
// edge to a fixed cost, exactly like the original source's DummyRelax.
type dummyRelax struct{}

func (dummyRelax) FastUpperBound(ddo.Any) int64 { return 50 }

func (dummyRelax) Merge(states []ddo.Any) ddo.Any {
	first := states[0].(dummyState)
	return dummyState{Value: 100, Depth: first.Depth}
}

func (dummyRelax) Relax(_, _, _ ddo.Any, _ ddo.Decision, _ int64) int64 { return 20 }

// S2: with max_width = 1 on the dummy fixture, the first real layer (depth
// 1, 3 wide) must NOT be squashed — squashing it would leave the cutset
// empty and useless (§4.E.5) — only the depth-2 layer (5 wide, from 3x3
// combinations collapsing to 5 distinct sums) is squashed into one relaxed
// node. The terminal layer is never subject to squash at all (Compile's
// outer loop stops calling advanceToNextLayer once NextVariable reports no
// more variables, so finalize drains it as-is). Tracing the fixture by hand
// gives a relaxed best value of 24, matching the original source's
// relaxed_merges_the_less_interesting_nodes.
func TestCompileS2SquashRelaxOptimum(t *testing.T) {
	d := New()
	comp, err := d.Compile(CompileInput{
		CompilationType: ddo.Relaxed,
		Problem:         dummyProblem{},
		Relaxation:      dummyRelax{},
		MaxWidth:        1,
		BestLB:          ddo.MinValue,
		Residual: ddo.SubProblem{
			State: dummyProblem{}.InitialState(),
			UB:    ddo.MaxValue,
		},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if comp.BestValue == nil {
		t.Fatal("expected a best value")
	}
	if *comp.BestValue != 24 {
		t.Errorf("expected best value 24, got %d", *comp.BestValue)
	}
	if d.IsExact() {
		t.Errorf("expected the depth-2 layer's squash to make the diagram inexact")
	}
}

// locState/locBoundsProblem/locRelax port the original source's
// LocBoundsExamplePb/LocBoundExampleRelax fixture
// (relaxed_computes_local_bounds in vector_based.rs): r branches to a(10)
// and b(7); a branches to c(2); b branches to d(3), e(6), f(5); c, d and
// the node they relax-merge into all reach g(4); e reaches h(0); f reaches
// h(1) and i(2).
type locState string

type locBoundsProblem struct{}

func (locBoundsProblem) NbVariables() int      { return 3 }
func (locBoundsProblem) InitialState() ddo.Any { return locState("r") }
func (locBoundsProblem) InitialValue() int64   { return 0 }

func (locBoundsProblem) NextVariable(_ int, currentLayerStates ddo.StateIterator) (ddo.Variable, bool) {
	var s string
	found := false
	currentLayerStates(func(v ddo.Any) bool {
		s = string(v.(locState))
		found = true
		return false
	})
	if !found {
		return 0, false
	}
	switch s {
	case "r":
		return 0, true
	case "a", "b":
		return 1, true
	case "c", "d", "M", "e", "f":
		return 2, true
	default:
		return 0, false
	}
}

func (locBoundsProblem) Transition(state ddo.Any, dec ddo.Decision) ddo.Any {
	switch string(state.(locState)) {
	case "r":
		if dec.Value == 10 {
			return locState("a")
		}
		return locState("b")
	case "a":
		return locState("c")
	case "b":
		switch dec.Value {
		case 3:
			return locState("d")
		case 6:
			return locState("e")
		default:
			return locState("f")
		}
	case "c", "d", "M":
		return locState("g")
	case "e":
		return locState("h")
	case "f":
		if dec.Value == 1 {
			return locState("h")
		}
		return locState("i")
	}
	return state
}

func (locBoundsProblem) TransitionCost(_, _ ddo.Any, dec ddo.Decision) int64 {
	return int64(dec.Value)
}

func (locBoundsProblem) ForEachInDomain(variable ddo.Variable, state ddo.Any, f ddo.DecisionCallback) {
	switch string(state.(locState)) {
	case "r":
		f(ddo.Decision{Variable: variable, Value: 10})
		f(ddo.Decision{Variable: variable, Value: 7})
	case "a":
		f(ddo.Decision{Variable: variable, Value: 2})
	case "b":
		f(ddo.Decision{Variable: variable, Value: 3})
		f(ddo.Decision{Variable: variable, Value: 6})
		f(ddo.Decision{Variable: variable, Value: 5})
	case "c", "d", "M":
		f(ddo.Decision{Variable: variable, Value: 4})
	case "e":
		f(ddo.Decision{Variable: variable, Value: 0})
	case "f":
		f(ddo.Decision{Variable: variable, Value: 1})
		f(ddo.Decision{Variable: variable, Value: 2})
	}
}

// locRelax merges any dropped set of states to the constant state "M" and
// relaxes every edge to its original cost unchanged, exactly like the
// original source's LocBoundExampleRelax.
type locRelax struct{}

func (locRelax) FastUpperBound(state ddo.Any) int64 {
	switch string(state.(locState)) {
	case "r":
		return 30
	case "a", "b":
		return 20
	case "M", "e", "f":
		return 10
	default:
		return 0
	}
}

func (locRelax) Merge([]ddo.Any) ddo.Any { return locState("M") }

func (locRelax) Relax(_, _, _ ddo.Any, _ ddo.Decision, originalCost int64) int64 {
	return originalCost
}

func compileLocBounds(t *testing.T, cutsetType CutsetType) *Diagram {
	t.Helper()
	d := New()
	comp, err := d.Compile(CompileInput{
		CompilationType: ddo.Relaxed,
		Problem:         locBoundsProblem{},
		Relaxation:      locRelax{},
		MaxWidth:        3,
		BestLB:          0,
		CutsetType:      cutsetType,
		Residual: ddo.SubProblem{
			State: locBoundsProblem{}.InitialState(),
			UB:    ddo.MaxValue,
		},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if comp.BestValue == nil || *comp.BestValue != 16 {
		t.Fatalf("expected best value 16, got %v", comp.BestValue)
	}
	return d
}

func drainCutsetByState(d *Diagram) map[string]int64 {
	got := make(map[string]int64)
	d.DrainCutset(ddo.MinValue, func(sp ddo.SubProblem) {
		got[string(sp.State.(locState))] = sp.UB
	})
	return got
}

// S6: relaxed compile at max_width 3 squashes the depth-2 layer {c,d,e,f}
// (4 wide) by keeping the two most promising (e, f) and merging {c,d} into
// M — matching the original source's relaxed_computes_local_bounds, whose
// best value is 16 (node g). DrainCutset's min(value_top+rub,
// value_top+value_bot) must pick the local-bound figure for both surviving
// cutset nodes: a's rub-based bound is 30 but its local bound is 16; b's
// rub-based bound is 27 but its local bound is 14.
func TestCompileS6LocalBoundsAndCutsetUB(t *testing.T) {
	t.Run("last-exact-layer", func(t *testing.T) {
		d := compileLocBounds(t, LastExactLayer)
		got := drainCutsetByState(d)
		want := map[string]int64{"a": 16, "b": 14}
		if len(got) != len(want) {
			t.Fatalf("expected cutset %v, got %v", want, got)
		}
		for state, ub := range want {
			if got[state] != ub {
				t.Errorf("cutset[%s] UB = %d, want %d", state, got[state], ub)
			}
		}
	})

	// h and i are terminal leaves with no outbound edges of their own, and
	// finalizeCutset's Frontier case — like the original source's
	// compute_local_bounds it mirrors — can only ever mark a node as
	// cutset when it is the *source* of an edge whose destination is
	// inexact. A leaf can never be an edge source, so it can never
	// qualify. For this fixture the only edges from an exact node to an
	// inexact one are a->M and b->M, so frontier coincides with the
	// last-exact-layer cutset {a, b} here.
	t.Run("frontier", func(t *testing.T) {
		d := compileLocBounds(t, Frontier)
		got := drainCutsetByState(d)
		want := map[string]int64{"a": 16, "b": 14}
		if len(got) != len(want) {
			t.Fatalf("expected cutset %v, got %v", want, got)
		}
		for state, ub := range want {
			if got[state] != ub {
				t.Errorf("cutset[%s] UB = %d, want %d", state, got[state], ub)
			}
		}
	})
}

// P1: after each layer advance, current_layer never holds two nodes with
// the same state.
func TestCompileP1LayerUniqueness(t *testing.T) {
	_, d := compileToy(t, ddo.Exact, 100)
	for li, layer := range d.layers {
		seen := make(map[string]bool)
		for id := layer.Start; id < layer.End; id++ {
			if d.nodes[id].Flags.IsDeleted() {
				continue
			}
			key := stateKey(d.nodes[id].State)
			if seen[key] {
				t.Errorf("layer %d has a duplicate state %s", li, key)
			}
			seen[key] = true
		}
	}
}
