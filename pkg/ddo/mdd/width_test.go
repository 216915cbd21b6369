package mdd

import (
	"testing"

	"github.com/gitrdm/goddo/pkg/ddo"
)

// sumProblem is the same three-variable domain {0,1,2} fixture as
// toyProblem, but its state tracks the running sum of decisions made so
// far — so, unlike toyProblem, distinct decision sequences produce
// distinct states within a layer, and width-bounded squash actually has
// something to squash.
type sumProblem struct{}

type sumState struct{ Sum int }

func (sumProblem) NbVariables() int      { return 3 }
func (sumProblem) InitialState() ddo.Any { return sumState{} }
func (sumProblem) InitialValue() int64   { return 0 }

func (sumProblem) NextVariable(depth int, _ ddo.StateIterator) (ddo.Variable, bool) {
	if depth >= 3 {
		return 0, false
	}
	return ddo.Variable(2 - depth), true
}

func (sumProblem) Transition(state ddo.Any, dec ddo.Decision) ddo.Any {
	s := state.(sumState)
	return sumState{Sum: s.Sum + dec.Value}
}

func (sumProblem) TransitionCost(_, _ ddo.Any, dec ddo.Decision) int64 { return int64(dec.Value) }

func (sumProblem) ForEachInDomain(variable ddo.Variable, _ ddo.Any, f ddo.DecisionCallback) {
	for v := 0; v <= 2; v++ {
		f(ddo.Decision{Variable: variable, Value: v})
	}
}

type sumRelaxation struct{ remaining func(sumState) int }

func (r sumRelaxation) FastUpperBound(state ddo.Any) int64 {
	return 2 * int64(r.remaining(state.(sumState)))
}

func (sumRelaxation) Merge(states []ddo.Any) ddo.Any {
	best := states[0].(sumState)
	for _, raw := range states[1:] {
		if s := raw.(sumState); s.Sum > best.Sum {
			best = s
		}
	}
	return best
}

func (sumRelaxation) Relax(_, _, _ ddo.Any, _ ddo.Decision, originalCost int64) int64 {
	return originalCost
}

// R2 / S2: a restricted compile is a lower bound, a relaxed compile is an
// upper bound, and a wide-enough relaxed compile recovers the exact
// optimum.
func TestCompileWidthBoundedBracketsOptimum(t *testing.T) {
	relax := sumRelaxation{remaining: func(sumState) int { return 2 }} // constant rub of 4; BestLB stays MinValue, so it never prunes

	compile := func(compType ddo.CompilationType, width int) int64 {
		d := New()
		comp, err := d.Compile(CompileInput{
			CompilationType: compType,
			Problem:         sumProblem{},
			Relaxation:      relax,
			MaxWidth:        width,
			BestLB:          ddo.MinValue,
			Residual: ddo.SubProblem{
				State: sumProblem{}.InitialState(),
				UB:    ddo.MaxValue,
			},
		})
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		if comp.BestValue == nil {
			t.Fatal("expected a best value")
		}
		return *comp.BestValue
	}

	const optimum = 6

	restricted := compile(ddo.Restricted, 1)
	if restricted > optimum {
		t.Errorf("restricted(width=1) = %d, want <= optimum %d", restricted, optimum)
	}

	relaxed := compile(ddo.Relaxed, 1)
	if relaxed < optimum {
		t.Errorf("relaxed(width=1) = %d, want >= optimum %d", relaxed, optimum)
	}

	exactViaWideRelax := compile(ddo.Relaxed, 100)
	if exactViaWideRelax != optimum {
		t.Errorf("relaxed(width=100) = %d, want exact optimum %d", exactViaWideRelax, optimum)
	}

	exactViaWideRestrict := compile(ddo.Restricted, 100)
	if exactViaWideRestrict != optimum {
		t.Errorf("restricted(width=100) = %d, want exact optimum %d", exactViaWideRestrict, optimum)
	}
}
