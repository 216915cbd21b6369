package ddo

import (
	"testing"

	"pgregory.net/rapid"
)

func TestSimpleFringePopsHighestUBFirst(t *testing.T) {
	f := NewSimpleFringe(NaturalRanking{})
	f.Push(SubProblem{State: "a", UB: 5})
	f.Push(SubProblem{State: "b", UB: 9})
	f.Push(SubProblem{State: "c", UB: 1})

	sp, ok := f.Pop()
	if !ok || sp.UB != 9 {
		t.Fatalf("expected UB 9 first, got %+v ok=%v", sp, ok)
	}
	sp, ok = f.Pop()
	if !ok || sp.UB != 5 {
		t.Fatalf("expected UB 5 second, got %+v ok=%v", sp, ok)
	}
	sp, ok = f.Pop()
	if !ok || sp.UB != 1 {
		t.Fatalf("expected UB 1 third, got %+v ok=%v", sp, ok)
	}
	if _, ok := f.Pop(); ok {
		t.Error("expected fringe to be empty")
	}
}

func TestSimpleFringeKeepsDuplicates(t *testing.T) {
	f := NewSimpleFringe(NaturalRanking{})
	f.Push(SubProblem{State: "same", UB: 3})
	f.Push(SubProblem{State: "same", UB: 3})
	if f.Len() != 2 {
		t.Errorf("expected SimpleFringe to keep both duplicate entries, got len %d", f.Len())
	}
}

func TestNoDupFringeMergesOnHigherUB(t *testing.T) {
	f := NewNoDupFringe(NaturalRanking{})
	f.Push(SubProblem{State: "x", Value: 1, UB: 3})
	f.Push(SubProblem{State: "x", Value: 2, UB: 7})

	if f.Len() != 1 {
		t.Fatalf("expected one surviving entry, got %d", f.Len())
	}
	sp, ok := f.Pop()
	if !ok || sp.UB != 7 || sp.Value != 2 {
		t.Errorf("expected the higher-UB duplicate to survive, got %+v ok=%v", sp, ok)
	}
}

func TestNoDupFringeDropsLowerUB(t *testing.T) {
	f := NewNoDupFringe(NaturalRanking{})
	f.Push(SubProblem{State: "x", Value: 2, UB: 7})
	f.Push(SubProblem{State: "x", Value: 1, UB: 3})

	if f.Len() != 1 {
		t.Fatalf("expected one surviving entry, got %d", f.Len())
	}
	sp, _ := f.Pop()
	if sp.UB != 7 {
		t.Errorf("expected the higher-UB entry to have survived, got UB %d", sp.UB)
	}
}

func TestClearEmptiesBothFringes(t *testing.T) {
	simple := NewSimpleFringe(NaturalRanking{})
	simple.Push(SubProblem{State: "a", UB: 1})
	simple.Clear()
	if !simple.IsEmpty() {
		t.Error("expected SimpleFringe to be empty after Clear")
	}

	noDup := NewNoDupFringe(NaturalRanking{})
	noDup.Push(SubProblem{State: "a", UB: 1})
	noDup.Clear()
	if !noDup.IsEmpty() {
		t.Error("expected NoDupFringe to be empty after Clear")
	}
	// A state pushed before Clear must not still be treated as a known
	// duplicate afterward.
	noDup.Push(SubProblem{State: "a", UB: 1})
	noDup.Push(SubProblem{State: "a", UB: 99})
	if noDup.Len() != 1 {
		t.Errorf("expected the post-Clear duplicate merge to still work, got len %d", noDup.Len())
	}
}

// TestSimpleFringeAlwaysPopsMax checks the fringe's core invariant — every
// Pop returns a subproblem whose UB is >= every subproblem still pending —
// across randomly generated push sequences.
func TestSimpleFringeAlwaysPopsMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ubs := rapid.SliceOfN(rapid.Int64Range(-100, 100), 1, 40).Draw(rt, "ubs")
		f := NewSimpleFringe(NaturalRanking{})
		for i, ub := range ubs {
			f.Push(SubProblem{State: i, UB: ub})
		}

		var popped []int64
		for {
			sp, ok := f.Pop()
			if !ok {
				break
			}
			popped = append(popped, sp.UB)
		}

		if len(popped) != len(ubs) {
			rt.Fatalf("expected %d pops, got %d", len(ubs), len(popped))
		}
		for i := 1; i < len(popped); i++ {
			if popped[i] > popped[i-1] {
				rt.Fatalf("pop order not non-increasing at index %d: %v", i, popped)
			}
		}
	})
}
