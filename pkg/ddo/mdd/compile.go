package mdd

import (
	"errors"

	"github.com/gitrdm/goddo/pkg/ddo"
)

// ErrCutoff is the one error kind Compile can return (§7): the Cutoff
// predicate fired between two layer expansions. It carries no state of its
// own — the driver (package bnb) is responsible for recording why a solve
// was aborted.
var ErrCutoff = errors.New("mdd: compilation cutoff")

// MustKeepFunc is the optional "must-keep" tie-break §9 anticipates: when
// non-nil, restriction/relaxation sort nodes whose state it reports true for
// ahead of everything else, before falling back to value_top then ranking.
// No implementation ships one; the hook exists purely so a future
// ML-informed policy can be plugged in without touching the sort.
type MustKeepFunc func(state ddo.Any) bool

// CompileInput is the public contract of §4.E.1.
type CompileInput struct {
	CompilationType ddo.CompilationType

	Problem    ddo.Problem
	Relaxation ddo.Relaxation
	Ranking    ddo.StateRanking
	Cache      *ddo.Cache
	Dominance  ddo.Dominance
	Cutoff     ddo.Cutoff

	// WidthPolicy computes MaxWidth when MaxWidth <= 0. The driver normally
	// resolves the width itself before calling Compile and sets MaxWidth
	// directly; WidthPolicy is kept on the input so a caller that wants the
	// compiler to resolve it instead may do so.
	WidthPolicy ddo.WidthHeuristic
	MaxWidth    int

	BestLB int64

	Residual ddo.SubProblem

	// CutsetType picks between the two strategies of §4.E.6/§9. Zero value
	// is LastExactLayer.
	CutsetType CutsetType

	// MustKeep is the optional tie-break of §9; nil disables it.
	MustKeep MustKeepFunc
}

// Compile runs the outer algorithm of §4.E.2 against in.Residual, populating
// the receiver so BestValue, BestSolution, DrainCutset, etc. can be called
// afterwards. It returns ErrCutoff if in.Cutoff fired mid-compile and nil
// otherwise; a panic in a user callback is not recovered and propagates to
// the caller.
func (d *Diagram) Compile(in CompileInput) (ddo.Completion, error) {
	if in.Ranking == nil {
		in.Ranking = ddo.NaturalRanking{}
	}
	if in.Dominance == nil {
		in.Dominance = ddo.NoDominance{}
	}
	if in.Cutoff == nil {
		in.Cutoff = ddo.CutoffNever{}
	}

	d.compType = in.CompilationType
	d.cutsetType = in.CutsetType

	d.Clear()
	d.Initialize(in.Residual)

	maxWidth := in.MaxWidth
	if maxWidth <= 0 && in.WidthPolicy != nil {
		maxWidth = in.WidthPolicy.MaxWidth(in.Residual)
	}
	if maxWidth < 1 {
		maxWidth = 1
	}

	depth := in.Residual.Depth
	for {
		v, ok := in.Problem.NextVariable(depth, d.currentLayerStateIter())
		if !ok {
			break
		}
		if in.Cutoff.MustStop() {
			return ddo.Completion{}, ErrCutoff
		}
		if !d.advanceToNextLayer(in, maxWidth) {
			break
		}
		for _, id := range d.currentLayer {
			node := &d.nodes[id]
			node.Rub = in.Relaxation.FastUpperBound(node.State)
			if ddo.AddSat(node.ValueTop, node.Rub) > in.BestLB {
				in.Problem.ForEachInDomain(v, node.State, func(dec ddo.Decision) {
					d.branch(id, dec, in.Problem)
				})
			}
		}
		depth++
	}

	d.finalize(in)

	comp := ddo.Completion{IsExact: d.isExact}
	if d.bestNode != noNode {
		v := d.nodes[d.bestNode].ValueTop
		comp.BestValue = &v
	}
	return comp, nil
}

// branch applies dec to the node at fromID, creating or reusing the
// destination node in nextLayer and appending the connecting edge (§4.E.4).
func (d *Diagram) branch(fromID nodeID, dec ddo.Decision, problem ddo.Problem) {
	from := &d.nodes[fromID]
	nextState := problem.Transition(from.State, dec)
	cost := problem.TransitionCost(from.State, nextState, dec)

	key := stateKey(nextState)
	dstID, exists := d.nextLayer[key]
	if !exists {
		flags := ddo.DefaultNodeFlags().WithExact(from.Flags.IsExact())
		dstID = d.addNode(nextState, ddo.MinValue, from.Depth+1, flags)
		d.nextLayer[key] = dstID
	}

	eid := d.addEdge(fromID, dstID, dec, cost)

	dst := &d.nodes[dstID]
	incoming := ddo.AddSat(from.ValueTop, cost)
	if dst.Best == -1 || incoming > dst.ValueTop {
		dst.ValueTop = incoming
		dst.Best = eid
	}
	dst.Flags = dst.Flags.WithExact(dst.Flags.IsExact() && from.Flags.IsExact())
}

// advanceToNextLayer implements §4.E.3.
func (d *Diagram) advanceToNextLayer(in CompileInput, maxWidth int) bool {
	d.prevLayer = append(d.prevLayer[:0], d.currentLayer...)
	d.currentLayer = append(d.currentLayer[:0], d.sortedNextLayerIDs()...)
	for k := range d.nextLayer {
		delete(d.nextLayer, k)
	}

	if len(d.currentLayer) == 0 {
		d.appendLayerDesc()
		return false
	}

	isFirstLayer := len(d.layers) == 0
	if !isFirstLayer {
		d.filterWithCache(in.Cache)
		d.filterWithDominance(in.Dominance)
	}

	// Squash guards against the first REAL decision layer separately from the
	// cache/dominance filter above: root's own layerDesc is already appended
	// by the time len(d.layers) == 1, so that's the layer whose squash would
	// leave an empty, useless cutset (§4.E.5).
	isFirstRealLayer := len(d.layers) <= 1
	if in.CompilationType != ddo.Exact && !isFirstRealLayer && len(d.currentLayer) > maxWidth {
		switch in.CompilationType {
		case ddo.Restricted:
			d.squashRestrict(maxWidth, in.Ranking, in.MustKeep)
		case ddo.Relaxed:
			d.squashRelax(maxWidth, in.Ranking, in.MustKeep, in.Relaxation)
		}
	}

	d.appendLayerDesc()
	return true
}

func (d *Diagram) appendLayerDesc() {
	start := nodeID(0)
	if len(d.layers) > 0 {
		start = d.layers[len(d.layers)-1].End
	}
	d.layers = append(d.layers, layerDesc{Start: start, End: nodeID(len(d.nodes))})
}

// filterWithCache drops nodes the state cache says can't improve on an
// already-explored path to the same state (§4.B's filter policy).
func (d *Diagram) filterWithCache(cache *ddo.Cache) {
	if cache == nil {
		return
	}
	survivors := d.currentLayer[:0]
	for _, id := range d.currentLayer {
		node := &d.nodes[id]
		if t, ok := cache.Get(node.State, node.Depth); ok && node.ValueTop <= t.Value {
			node.Flags = node.Flags.WithDeleted(true).WithPrunedByCache(true)
			node.Theta = t.Value
			continue
		}
		survivors = append(survivors, id)
	}
	d.currentLayer = survivors
}

// filterWithDominance drops exact nodes a prior exact node already
// dominates (§4.C).
func (d *Diagram) filterWithDominance(dom ddo.Dominance) {
	survivors := d.currentLayer[:0]
	for _, id := range d.currentLayer {
		node := &d.nodes[id]
		if node.Flags.IsExact() {
			dominated, threshold := dom.IsDominatedOrInsert(node.State, node.Depth, node.ValueTop)
			if dominated {
				node.Flags = node.Flags.WithDeleted(true)
				if threshold != nil {
					node.Theta = *threshold
				}
				continue
			}
		}
		survivors = append(survivors, id)
	}
	d.currentLayer = survivors
}
