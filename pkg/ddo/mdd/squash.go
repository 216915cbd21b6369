package mdd

import (
	"sort"

	"github.com/gitrdm/goddo/pkg/ddo"
)

// lessPromising orders a and b most-promising-first: an optional must-keep
// bit outranks everything else, then value_top descending, then the
// user-supplied ranking as a final tie-break (§4.E.5, §9).
func (d *Diagram) lessPromising(a, b nodeID, ranking ddo.StateRanking, mustKeep MustKeepFunc) bool {
	na, nb := &d.nodes[a], &d.nodes[b]
	if mustKeep != nil {
		ma, mb := mustKeep(na.State), mustKeep(nb.State)
		if ma != mb {
			return ma
		}
	}
	if na.ValueTop != nb.ValueTop {
		return na.ValueTop > nb.ValueTop
	}
	return ranking.Compare(na.State, nb.State) == ddo.Greater
}

// recordLastExactLayer pins lastExactLayer to the layer immediately above
// the one currently being squashed, the first time any squash happens.
func (d *Diagram) recordLastExactLayer() {
	if d.lastExactLayer == noLayer {
		d.lastExactLayer = layerID(len(d.layers) - 1)
	}
}

// squashRestrict drops every candidate beyond maxWidth once sorted
// most-promising-first (§4.E.5 "Restricted").
func (d *Diagram) squashRestrict(maxWidth int, ranking ddo.StateRanking, mustKeep MustKeepFunc) {
	sort.Slice(d.currentLayer, func(i, j int) bool {
		return d.lessPromising(d.currentLayer[i], d.currentLayer[j], ranking, mustKeep)
	})
	for _, id := range d.currentLayer[maxWidth:] {
		d.nodes[id].Flags = d.nodes[id].Flags.WithDeleted(true)
	}
	d.currentLayer = d.currentLayer[:maxWidth]
	d.recordLastExactLayer()
}

// squashRelax merges every candidate beyond maxWidth-1 into one super-node
// via the relaxation operator, re-attaching their inbound edges with relaxed
// costs (§4.E.5 "Relaxed").
func (d *Diagram) squashRelax(maxWidth int, ranking ddo.StateRanking, mustKeep MustKeepFunc, relax ddo.Relaxation) {
	sort.Slice(d.currentLayer, func(i, j int) bool {
		return d.lessPromising(d.currentLayer[i], d.currentLayer[j], ranking, mustKeep)
	})

	keepCount := maxWidth - 1
	if keepCount < 0 {
		keepCount = 0
	}
	if keepCount > len(d.currentLayer) {
		keepCount = len(d.currentLayer)
	}
	kept := d.currentLayer[:keepCount]
	dropped := d.currentLayer[keepCount:]

	states := make([]ddo.Any, len(dropped))
	for i, id := range dropped {
		states[i] = d.nodes[id].State
	}
	mergedState := relax.Merge(states)
	mergedKey := stateKey(mergedState)

	mergedID := noNode
	for _, id := range kept {
		if stateKey(d.nodes[id].State) == mergedKey {
			mergedID = id
			break
		}
	}
	recycled := mergedID != noNode
	if !recycled {
		mergedID = d.addNode(mergedState, ddo.MinValue, d.nodes[dropped[0]].Depth, ddo.NodeFlags(0))
	}
	d.nodes[mergedID].Flags = d.nodes[mergedID].Flags.WithRelaxed(true).WithExact(false)

	for _, droppedID := range dropped {
		dn := &d.nodes[droppedID]
		link := dn.Inbound
		for link != nilLink {
			cell := d.links[link]
			eid := cell.Head
			e := &d.edges[eid]
			srcState := d.nodes[e.Src].State
			relaxedCost := relax.Relax(srcState, dn.State, mergedState, e.Decision, e.Cost)

			e.Dst = mergedID
			e.Cost = relaxedCost
			d.links = append(d.links, edgeListCell{Head: eid, Tail: d.nodes[mergedID].Inbound})
			d.nodes[mergedID].Inbound = linkID(len(d.links) - 1)

			incoming := ddo.AddSat(d.nodes[e.Src].ValueTop, relaxedCost)
			if incoming > d.nodes[mergedID].ValueTop {
				d.nodes[mergedID].ValueTop = incoming
				d.nodes[mergedID].Best = eid
			}
			link = cell.Tail
		}
		dn.Flags = dn.Flags.WithDeleted(true)
	}

	newCurrent := append([]nodeID{}, kept...)
	if !recycled {
		newCurrent = append(newCurrent, mergedID)
	}
	d.currentLayer = newCurrent
	d.recordLastExactLayer()
}
