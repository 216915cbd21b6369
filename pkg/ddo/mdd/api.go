package mdd

import "github.com/gitrdm/goddo/pkg/ddo"

// IsExact reports whether the whole compiled diagram is exact (no layer was
// ever squashed).
func (d *Diagram) IsExact() bool { return d.isExact }

// HasExactBestPath reports whether the Exact Best Path Optimization applied:
// even though some layer was squashed, the best node's own best-edge chain
// never passed through a relaxed node.
func (d *Diagram) HasExactBestPath() bool { return d.hasExactBestPath }

// BestValue returns the value of the best node in the final layer, if any.
func (d *Diagram) BestValue() (int64, bool) {
	if d.bestNode == noNode {
		return 0, false
	}
	return d.nodes[d.bestNode].ValueTop, true
}

// BestSolution returns the full root-to-best-node decision path.
func (d *Diagram) BestSolution() ([]ddo.Decision, bool) {
	if d.bestNode == noNode {
		return nil, false
	}
	return d.pathFromRootTo(d.bestNode), true
}

// BestExactValue returns the value of the best exact node found anywhere in
// the final layer, or the EBPO-qualified best node when the best node's
// whole best-path turned out to be unrelaxed.
func (d *Diagram) BestExactValue() (int64, bool) {
	if d.bestExactNode == noNode {
		return 0, false
	}
	return d.nodes[d.bestExactNode].ValueTop, true
}

// BestExactSolution is BestSolution restricted to a provably exact path.
func (d *Diagram) BestExactSolution() ([]ddo.Decision, bool) {
	if d.bestExactNode == noNode {
		return nil, false
	}
	return d.pathFromRootTo(d.bestExactNode), true
}

// pathFromRootTo walks id's chain of best-edges back to the root, then
// reverses it into root-to-id order, prefixed by the residual subproblem's
// own path.
func (d *Diagram) pathFromRootTo(id nodeID) []ddo.Decision {
	var rev []ddo.Decision
	cur := id
	for {
		node := &d.nodes[cur]
		if node.Best == -1 {
			break
		}
		e := &d.edges[node.Best]
		rev = append(rev, e.Decision)
		cur = e.Src
	}

	out := make([]ddo.Decision, 0, len(d.pathToRoot)+len(rev))
	out = append(out, d.pathToRoot...)
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

// DrainCutset reports every node marked as part of the cutset, as a
// SubProblem ready to be re-enqueued on the fringe, provided it can still
// improve on globalBest. Each subproblem's upper bound is the tighter of the
// rough upper bound and the local bound (value_top+value_bot, from
// computeLocalBounds' back-propagation) — not RUB alone (§6 drain_cutset:
// "min(value_top+rub, value_top+value_bot, global_best_value)"). globalBest
// is the discard threshold, not a third operand folded into the exported
// bound: capping the bound itself at globalBest would make every surviving
// subproblem report UB == globalBest, which is unsound once some other
// worker raises the real best_lb further — the next fringe peek would prune
// a subproblem that could still have improved on it. Nodes whose tightened
// bound can no longer beat globalBest are skipped here; they are dead
// weight once a better incumbent is known.
func (d *Diagram) DrainCutset(globalBest int64, f func(ddo.SubProblem)) {
	for _, id := range d.cutset {
		node := &d.nodes[id]
		ub := min64(ddo.AddSat(node.ValueTop, node.Rub), ddo.AddSat(node.ValueTop, node.ValueBot))
		if ub <= globalBest {
			continue
		}
		f(ddo.SubProblem{
			State: node.State,
			Value: node.ValueTop,
			Path:  d.pathFromRootTo(id),
			UB:    ub,
			Depth: node.Depth,
		})
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// CutsetLen reports how many nodes finalizeCutset marked, for telemetry.
func (d *Diagram) CutsetLen() int { return len(d.cutset) }

// ExportNode is a read-only snapshot of one compiled node, exposed for
// rendering (package viz) without leaking the arena's internal index types.
type ExportNode struct {
	ID       int
	State    ddo.Any
	ValueTop int64
	ValueBot int64
	Rub      int64
	Depth    int
	BestEdge int // index into ExportGraph.Edges, or -1

	IsExact       bool
	IsRelaxed     bool
	IsDeleted     bool
	IsInCutset    bool
	IsAboveCutset bool
}

// ExportEdge is a read-only snapshot of one compiled edge.
type ExportEdge struct {
	From     int
	To       int
	Decision ddo.Decision
	Cost     int64
}

// ExportLayer is the half-open [Start,End) node-id range of one layer.
type ExportLayer struct {
	Start int
	End   int
}

// ExportGraph is a full, renderer-friendly snapshot of a compiled diagram.
type ExportGraph struct {
	Nodes  []ExportNode
	Edges  []ExportEdge
	Layers []ExportLayer
	// Best is the index of the overall best node, or -1 if infeasible.
	Best int
}

// Export snapshots the diagram for visualization (§6 "Visualization
// export"). Grounded on original_source's ddo-viz/src/viz_mdd.rs, whose
// as_graphviz walks these same node/edge/layer vectors directly; Export
// performs that walk once into plain value types so package viz never
// needs access to mdd's unexported arena.
func (d *Diagram) Export() ExportGraph {
	nodes := make([]ExportNode, len(d.nodes))
	for i := range d.nodes {
		n := &d.nodes[i]
		nodes[i] = ExportNode{
			ID:            i,
			State:         n.State,
			ValueTop:      n.ValueTop,
			ValueBot:      n.ValueBot,
			Rub:           n.Rub,
			Depth:         n.Depth,
			BestEdge:      int(n.Best),
			IsExact:       n.Flags.IsExact(),
			IsRelaxed:     n.Flags.IsRelaxed(),
			IsDeleted:     n.Flags.IsDeleted(),
			IsInCutset:    n.Flags.IsInCutset(),
			IsAboveCutset: n.Flags.IsAboveCutset(),
		}
	}

	edges := make([]ExportEdge, len(d.edges))
	for i, e := range d.edges {
		edges[i] = ExportEdge{From: int(e.Src), To: int(e.Dst), Decision: e.Decision, Cost: e.Cost}
	}

	layers := make([]ExportLayer, len(d.layers))
	for i, l := range d.layers {
		layers[i] = ExportLayer{Start: int(l.Start), End: int(l.End)}
	}

	best := -1
	if d.bestNode != noNode {
		best = int(d.bestNode)
	}

	return ExportGraph{Nodes: nodes, Edges: edges, Layers: layers, Best: best}
}
