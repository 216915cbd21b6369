// Package heuristics collects the small, swappable policy objects the MDD
// compiler and the branch-and-bound driver consult: width policies,
// variable/state ranking, and cutoff predicates (component G, §4.G). Each is
// a narrow one- or two-method interface implementation, in the same style as
// the teacher's labeling strategies (pkg/minikanren/labeling.go): a plain
// struct, most with a constructor. The two base width policies, FixedWidth
// and NbUnassignedWidth, also carry a Name/Description pair for diagnostics.
package heuristics

import "github.com/gitrdm/goddo/pkg/ddo"

// FixedWidth imposes the same maximum width on every layer of every diagram,
// regardless of the subproblem being compiled. Simplest possible policy and
// a reasonable default when nothing is known about the problem's shape.
type FixedWidth struct {
	Width int
}

// NewFixedWidth creates a FixedWidth policy; width is clamped to at least 1.
func NewFixedWidth(width int) FixedWidth {
	if width < 1 {
		width = 1
	}
	return FixedWidth{Width: width}
}

func (w FixedWidth) MaxWidth(ddo.SubProblem) int { return w.Width }
func (w FixedWidth) Name() string                { return "fixed-width" }
func (w FixedWidth) Description() string {
	return "imposes the same maximum layer width on every compiled diagram"
}

// NbUnassignedWidth allows one node per variable not yet fixed on the
// subproblem's path: Factor - len(path). This tends to track the remaining
// search depth, giving wider diagrams near the root and narrower ones deep
// in the tree where there is less left to decide.
type NbUnassignedWidth struct {
	Factor int
}

// NewNbUnassignedWidth creates the policy; factor should normally be
// Problem.NbVariables().
func NewNbUnassignedWidth(factor int) NbUnassignedWidth {
	return NbUnassignedWidth{Factor: factor}
}

func (w NbUnassignedWidth) MaxWidth(sp ddo.SubProblem) int {
	width := w.Factor - len(sp.Path)
	if width < 1 {
		width = 1
	}
	return width
}
func (w NbUnassignedWidth) Name() string { return "nb-unassigned" }
func (w NbUnassignedWidth) Description() string {
	return "one node of width per variable not yet fixed on the subproblem's path"
}

// TimesWidth decorates another WidthHeuristic, multiplying its result by a
// constant factor (clamped to at least 1). A factor of 1 is a no-op pass
// through; this is typically paired with NbUnassignedWidth to allow a
// multiple of "one node per free variable".
type TimesWidth struct {
	Factor int
	Inner  ddo.WidthHeuristic
}

func NewTimesWidth(factor int, inner ddo.WidthHeuristic) TimesWidth {
	return TimesWidth{Factor: factor, Inner: inner}
}

func (w TimesWidth) MaxWidth(sp ddo.SubProblem) int {
	width := w.Factor * w.Inner.MaxWidth(sp)
	if width < 1 {
		width = 1
	}
	return width
}

// DivByWidth decorates another WidthHeuristic, dividing its result by a
// constant factor (clamped to at least 1).
type DivByWidth struct {
	Factor int
	Inner  ddo.WidthHeuristic
}

func NewDivByWidth(factor int, inner ddo.WidthHeuristic) DivByWidth {
	if factor < 1 {
		factor = 1
	}
	return DivByWidth{Factor: factor, Inner: inner}
}

func (w DivByWidth) MaxWidth(sp ddo.SubProblem) int {
	width := w.Inner.MaxWidth(sp) / w.Factor
	if width < 1 {
		width = 1
	}
	return width
}
