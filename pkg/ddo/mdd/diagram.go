// Package mdd implements the layered, width-bounded MDD compiler described
// in component E of the design: one variable expanded per layer, restriction
// or relaxation applied when a layer would exceed its width budget, and a
// cutset of nodes drained at the exact/inexact frontier for the
// branch-and-bound driver (package bnb) to resume from.
//
// Everything here lives in an arena: nodes, edges, and inbound edge-list
// cells are contiguous growable slices addressed by typed integer indices,
// never by pointer. That gives O(1) node/edge allocation, keeps the compiler
// free of reference counting, and means a Diagram can be reused across many
// compiles (Clear resets the arenas without releasing their backing storage,
// the same generational-reuse trick the teacher's constraint store pool
// applies to ConstraintStore values).
package mdd

import (
	"fmt"
	"sort"

	"github.com/gitrdm/goddo/pkg/ddo"
)

type nodeID int
type edgeID int
type linkID int
type layerID int

const (
	noNode  nodeID  = -1
	nilLink linkID  = 0
	noLayer layerID = -1
)

// Node is the internal record of a compiled node (§3). Depth, Best, Inbound
// and the flag word are packed tightly since nodes are walked in the
// compiler's hottest loops.
type Node struct {
	State    ddo.Any
	ValueTop int64
	ValueBot int64
	Best     edgeID // index into Diagram.edges, or -1 for "none" (the root)
	Inbound  linkID // head of this node's inbound edge-list chain
	Rub      int64
	Theta    int64
	Flags    ddo.NodeFlags
	Depth    int
}

// Edge is (source, destination, decision label, cost), §3.
type Edge struct {
	Src      nodeID
	Dst      nodeID
	Decision ddo.Decision
	Cost     int64
}

// edgeListCell is the two-variant (Cons/Nil) tagged list cell backing each
// node's inbound-edge chain: Head is the edge, Tail the next cell, and index
// 0 of Diagram.links is the reserved Nil sentinel every chain terminates on.
type edgeListCell struct {
	Head edgeID
	Tail linkID
}

// layerDesc is a contiguous, half-open [Start, End) range of node ids within
// the arena, one per compiled variable position.
type layerDesc struct {
	Start nodeID
	End   nodeID
}

// CutsetType selects which of the two interchangeable cutset strategies
// finalize uses (§4.E.6, §9): the cheaper last-exact-layer cut, or the
// tighter but pricier frontier cut.
type CutsetType int

const (
	// LastExactLayer marks every surviving node of the deepest
	// never-squashed layer as the cutset.
	LastExactLayer CutsetType = iota
	// Frontier marks every exact node with a non-exact child —
	// tighter cutsets at the cost of one extra pass over the edges.
	Frontier
)

// Diagram is the arena-based compiled decision diagram (§3). One Diagram
// value is normally kept per worker goroutine and reused across many
// compiles via Clear — the same "own one diagram, clear and recompile"
// lifecycle the spec's Design Notes call "generational re-use".
type Diagram struct {
	nodes []Node
	edges []Edge
	links []edgeListCell
	layers []layerDesc

	nextLayer map[string]nodeID

	currentLayer []nodeID
	prevLayer    []nodeID

	pathToRoot []ddo.Decision

	lastExactLayer layerID
	cutset         []nodeID

	bestNode      nodeID
	bestExactNode nodeID

	isExact          bool
	hasExactBestPath bool

	compType   ddo.CompilationType
	cutsetType CutsetType
}

// New creates an empty, ready-to-compile Diagram.
func New() *Diagram {
	d := &Diagram{}
	d.Clear()
	return d
}

// Clear resets every arena and transient buffer to empty while keeping their
// backing arrays, so a subsequent Initialize+Compile allocates nothing that
// the previous compile's capacity can't already cover.
func (d *Diagram) Clear() {
	d.nodes = d.nodes[:0]
	d.edges = d.edges[:0]
	d.links = d.links[:0]
	d.layers = d.layers[:0]
	if d.nextLayer == nil {
		d.nextLayer = make(map[string]nodeID)
	} else {
		for k := range d.nextLayer {
			delete(d.nextLayer, k)
		}
	}
	d.currentLayer = d.currentLayer[:0]
	d.prevLayer = d.prevLayer[:0]
	d.pathToRoot = d.pathToRoot[:0]
	d.lastExactLayer = noLayer
	d.cutset = d.cutset[:0]
	d.bestNode = noNode
	d.bestExactNode = noNode
	d.isExact = false
	d.hasExactBestPath = false
	// index 0 of links is the reserved Nil sentinel (§9 "Tagged variant for
	// edge-lists"); every node starts with Inbound == nilLink.
	d.links = append(d.links, edgeListCell{Head: -1, Tail: nilLink})
}

// Initialize seeds the diagram with one root node built from residual,
// ready for the first call to advanceToNextLayer inside Compile.
func (d *Diagram) Initialize(residual ddo.SubProblem) {
	d.pathToRoot = append(d.pathToRoot[:0], residual.Path...)
	flags := ddo.DefaultNodeFlags()
	id := d.addNode(residual.State, residual.Value, residual.Depth, flags)
	d.nextLayer[stateKey(residual.State)] = id
}

func (d *Diagram) addNode(state ddo.Any, valueTop int64, depth int, flags ddo.NodeFlags) nodeID {
	d.nodes = append(d.nodes, Node{
		State:    state,
		ValueTop: valueTop,
		ValueBot: ddo.MinValue,
		Best:     -1,
		Inbound:  nilLink,
		Rub:      0,
		Theta:    ddo.MaxValue,
		Flags:    flags,
		Depth:    depth,
	})
	return nodeID(len(d.nodes) - 1)
}

// addEdge appends an edge and prepends it to dst's inbound chain.
func (d *Diagram) addEdge(src, dst nodeID, dec ddo.Decision, cost int64) edgeID {
	d.edges = append(d.edges, Edge{Src: src, Dst: dst, Decision: dec, Cost: cost})
	eid := edgeID(len(d.edges) - 1)
	d.links = append(d.links, edgeListCell{Head: eid, Tail: d.nodes[dst].Inbound})
	d.nodes[dst].Inbound = linkID(len(d.links) - 1)
	return eid
}

// stateKey renders a state to the string used as the next-layer dedup key
// (invariant 1: state values are unique within a layer).
func stateKey(state ddo.Any) string {
	return fmt.Sprintf("%#v", state)
}

// sortedNextLayerIDs returns the drained next-layer node ids in ascending
// arena-index order — deterministic (map iteration order is not) without
// imposing any particular meaning on the ordering beyond "reproducible".
func (d *Diagram) sortedNextLayerIDs() []nodeID {
	ids := make([]nodeID, 0, len(d.nextLayer))
	for _, id := range d.nextLayer {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// currentLayerStateIter builds the "keys of next_layer" iterator
// Problem.NextVariable consumes (§4.E.2). It must reflect nextLayer's
// current contents at call time, i.e. before advanceToNextLayer drains it.
func (d *Diagram) currentLayerStateIter() func(yield func(ddo.Any) bool) {
	return func(yield func(ddo.Any) bool) {
		for _, id := range d.nextLayer {
			if !yield(d.nodes[id].State) {
				return
			}
		}
	}
}
