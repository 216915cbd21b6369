// Package viz renders a compiled decision diagram for visual inspection,
// the way original_source's ddo-viz crate (src/viz_mdd.rs) renders its own
// Mdd structure: circle/square node shapes distinguishing exact, relaxed
// and restricted-away nodes, node peripheries marking the cutset, and a
// bold longest path to the terminal node.
//
// Where ddo-viz builds its DOT text by hand with format!, this package
// builds a gonum graph (gonum.org/v1/gonum/graph/simple) and hands it to
// gonum's DOT encoder — the library already in the pack's dependency stack
// for graph analysis (vanderheijden86-beadwork/pkg/analysis/graph.go uses
// simple.NewDirectedGraph for PageRank/betweenness over the issue graph).
package viz

import (
	"fmt"

	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/gitrdm/goddo/pkg/ddo"
	"github.com/gitrdm/goddo/pkg/ddo/mdd"
)

// Options controls which extra annotations Dot renders on each node,
// mirroring ddo-viz's VizConfig (show_value / show_locb / show_rub /
// show_deleted).
type Options struct {
	ShowValue   bool
	ShowLocB    bool
	ShowRub     bool
	ShowDeleted bool
}

// DefaultOptions matches ddo-viz's VizConfigBuilder defaults: value, locb
// and rub shown, deleted nodes hidden.
func DefaultOptions() Options {
	return Options{ShowValue: true, ShowLocB: true, ShowRub: true}
}

const terminalID int64 = -1

// dotNode wraps one exported node with the label/shape/color/peripheries
// ddo-viz's node_attributes computes, so gonum's encoder can read them off
// the Attributes() method instead of this package hand-assembling DOT text.
type dotNode struct {
	mdd.ExportNode
	opts Options
}

func (n dotNode) ID() int64     { return int64(n.ExportNode.ID) }
func (n dotNode) DOTID() string { return fmt.Sprintf("%d", n.ExportNode.ID) }

func (n dotNode) Attributes() []encoding.Attribute {
	shape := "circle"
	if n.IsRelaxed || n.IsDeleted {
		shape = "square"
	}
	color := "lightgray"
	if n.IsExact {
		color = "\"#99ccff\""
	} else if n.IsRelaxed {
		color = "yellow"
	}
	peripheries := 1
	if n.IsInCutset {
		peripheries = 4
	}

	label := fmt.Sprintf("%v", n.State)
	if n.opts.ShowValue {
		label += fmt.Sprintf("\\nval: %d", n.ValueTop)
	}
	if n.opts.ShowLocB {
		label += fmt.Sprintf("\\nlocb: %s", extreme(n.ValueBot))
	}
	if n.opts.ShowRub {
		label += fmt.Sprintf("\\nrub: %s", extreme(n.Rub))
	}

	return []encoding.Attribute{
		{Key: "shape", Value: shape},
		{Key: "style", Value: "filled"},
		{Key: "color", Value: color},
		{Key: "peripheries", Value: fmt.Sprintf("%d", peripheries)},
		{Key: "label", Value: "\"" + label + "\""},
	}
}

// terminalNode is the single sink every final-layer node points to,
// matching ddo-viz's add_terminal_node.
type terminalNode struct{}

func (terminalNode) ID() int64     { return terminalID }
func (terminalNode) DOTID() string { return "terminal" }

func (terminalNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "shape", Value: "circle"},
		{Key: "label", Value: "\"\""},
		{Key: "style", Value: "filled"},
		{Key: "color", Value: "black"},
	}
}

type dotEdge struct {
	simple.Edge
	label  string
	isBest bool
}

func (e dotEdge) Attributes() []encoding.Attribute {
	width := 1
	if e.isBest {
		width = 3
	}
	attrs := []encoding.Attribute{{Key: "penwidth", Value: fmt.Sprintf("%d", width)}}
	if e.label != "" {
		attrs = append(attrs, encoding.Attribute{Key: "label", Value: "\"" + e.label + "\""})
	}
	return attrs
}

// Dot renders g as a DOT-format byte string, ready to pass to `dot -Tsvg`
// or any other Graphviz-compatible renderer.
func Dot(g mdd.ExportGraph, opts Options) ([]byte, error) {
	dg := simple.NewDirectedGraph()

	for _, n := range g.Nodes {
		if !opts.ShowDeleted && n.IsDeleted {
			continue
		}
		dg.AddNode(dotNode{ExportNode: n, opts: opts})
	}

	for i, e := range g.Edges {
		from := dg.Node(int64(e.From))
		to := dg.Node(int64(e.To))
		if from == nil || to == nil {
			continue // one endpoint was a deleted node we skipped above
		}
		label := fmt.Sprintf("(x%d = %d)\\ncost = %d", e.Decision.Variable, e.Decision.Value, e.Cost)
		dg.SetEdge(dotEdge{
			Edge:   simple.Edge{F: from, T: to},
			label:  label,
			isBest: g.Nodes[e.To].BestEdge == i,
		})
	}

	if len(g.Layers) > 0 {
		last := g.Layers[len(g.Layers)-1]
		if last.Start != last.End {
			addTerminal(dg, g, last, opts)
		}
	}

	return dot.Marshal(dg, "mdd", "", "\t")
}

func addTerminal(dg *simple.DirectedGraph, g mdd.ExportGraph, last mdd.ExportLayer, opts Options) {
	dg.AddNode(terminalNode{})

	vmax := ddo.MinValue
	for i := last.Start; i < last.End; i++ {
		if g.Nodes[i].ValueTop > vmax {
			vmax = g.Nodes[i].ValueTop
		}
	}

	for i := last.Start; i < last.End; i++ {
		n := g.Nodes[i]
		if !opts.ShowDeleted && n.IsDeleted {
			continue
		}
		dg.SetEdge(dotEdge{
			Edge:   simple.Edge{F: dg.Node(int64(i)), T: dg.Node(terminalID)},
			isBest: n.ValueTop == vmax,
		})
	}
}

func extreme(x int64) string {
	switch x {
	case ddo.MaxValue:
		return "+inf"
	case ddo.MinValue:
		return "-inf"
	default:
		return fmt.Sprintf("%d", x)
	}
}
