package mdd

import "github.com/gitrdm/goddo/pkg/ddo"

// finalize runs the six-step finalization sequence of §4.E.6.
func (d *Diagram) finalize(in CompileInput) {
	d.finalizeLayers()
	d.findBestNode()
	d.finalizeExact()

	if in.CompilationType == ddo.Relaxed || d.isExact {
		d.finalizeCutset(d.cutsetType)
		d.computeLocalBounds()
		d.computeThresholds(in.Cache, in.BestLB)
	}
}

// finalizeLayers commits whatever is left pending in nextLayer (the
// terminal layer: the outer compile loop's condition check happens before
// that layer's branch outputs get a chance to be drained).
func (d *Diagram) finalizeLayers() {
	d.prevLayer = append(d.prevLayer[:0], d.currentLayer...)
	d.currentLayer = append(d.currentLayer[:0], d.sortedNextLayerIDs()...)
	for k := range d.nextLayer {
		delete(d.nextLayer, k)
	}
	d.appendLayerDesc()
}

// findBestNode scans the final layer for the overall best node and,
// separately, the best exact node.
func (d *Diagram) findBestNode() {
	d.bestNode = noNode
	d.bestExactNode = noNode
	if len(d.layers) == 0 {
		return
	}
	last := d.layers[len(d.layers)-1]
	var bestVal, bestExactVal int64
	for id := last.Start; id < last.End; id++ {
		node := &d.nodes[id]
		if node.Flags.IsDeleted() {
			continue
		}
		if d.bestNode == noNode || node.ValueTop > bestVal {
			d.bestNode = id
			bestVal = node.ValueTop
		}
		if node.Flags.IsExact() {
			if d.bestExactNode == noNode || node.ValueTop > bestExactVal {
				d.bestExactNode = id
				bestExactVal = node.ValueTop
			}
		}
	}
}

// finalizeExact implements §4.E.6 step 3: exactness and EBPO.
func (d *Diagram) finalizeExact() {
	d.isExact = d.lastExactLayer == noLayer
	d.hasExactBestPath = d.compType == ddo.Relaxed && d.bestNode != noNode && d.bestPathIsExact(d.bestNode)
	if d.hasExactBestPath {
		d.bestExactNode = d.bestNode
	}
}

// bestPathIsExact walks the chain of "best" edges from id back to the
// diagram root and reports whether every node it passes through (including
// id itself) is unrelaxed — the Exact Best Path Optimization.
func (d *Diagram) bestPathIsExact(id nodeID) bool {
	cur := id
	for {
		node := &d.nodes[cur]
		if node.Flags.IsRelaxed() {
			return false
		}
		if node.Best == -1 {
			return true
		}
		cur = d.edges[node.Best].Src
	}
}

// finalizeCutset implements §4.E.6 step 4, both strategies of §9.
func (d *Diagram) finalizeCutset(kind CutsetType) {
	d.cutset = d.cutset[:0]
	if d.lastExactLayer == noLayer && kind == LastExactLayer {
		return // whole diagram exact: nothing to cut
	}
	switch kind {
	case LastExactLayer:
		lel := d.layers[d.lastExactLayer]
		for id := lel.Start; id < lel.End; id++ {
			if d.nodes[id].Flags.IsDeleted() {
				continue
			}
			d.nodes[id].Flags = d.nodes[id].Flags.WithInCutset(true).WithAboveCutset(true)
			d.cutset = append(d.cutset, id)
		}
		for li := layerID(0); li < d.lastExactLayer; li++ {
			layer := d.layers[li]
			for id := layer.Start; id < layer.End; id++ {
				if d.nodes[id].Flags.IsDeleted() {
					continue
				}
				d.nodes[id].Flags = d.nodes[id].Flags.WithAboveCutset(true)
			}
		}
	case Frontier:
		for ei := range d.edges {
			e := &d.edges[ei]
			src, dst := &d.nodes[e.Src], &d.nodes[e.Dst]
			if src.Flags.IsDeleted() || dst.Flags.IsDeleted() {
				continue
			}
			if src.Flags.IsExact() && !dst.Flags.IsExact() {
				if !src.Flags.IsInCutset() {
					d.cutset = append(d.cutset, e.Src)
				}
				src.Flags = src.Flags.WithInCutset(true).WithAboveCutset(true)
			}
		}
	}
}

// computeLocalBounds implements §4.E.6 step 5. A diagram with no recorded
// last-exact-layer is entirely exact — the Open Question in §9 about a
// panicking `self.lel.unwrap()` — so there is no special early return here:
// every layer is walked the same way regardless of whether a squash ever
// happened.
func (d *Diagram) computeLocalBounds() {
	if len(d.layers) == 0 {
		return
	}
	last := d.layers[len(d.layers)-1]
	for id := last.Start; id < last.End; id++ {
		node := &d.nodes[id]
		if node.Flags.IsDeleted() {
			continue
		}
		node.ValueBot = 0
		node.Flags = node.Flags.WithMarked(true)
	}

	for li := len(d.layers) - 1; li > 0; li-- {
		layer := d.layers[li]
		for id := layer.Start; id < layer.End; id++ {
			node := &d.nodes[id]
			if node.Flags.IsDeleted() || !node.Flags.IsMarked() {
				continue
			}
			link := node.Inbound
			for link != nilLink {
				cell := d.links[link]
				e := &d.edges[cell.Head]
				parent := &d.nodes[e.Src]
				parent.ValueBot = ddo.MaxSat(parent.ValueBot, ddo.AddSat(node.ValueBot, e.Cost))
				parent.Flags = parent.Flags.WithMarked(true)
				link = cell.Tail
			}
		}
	}
}

// computeThresholds implements §4.E.6 step 6.
func (d *Diagram) computeThresholds(cache *ddo.Cache, bestKnown int64) {
	for li := len(d.layers) - 1; li >= 0; li-- {
		layer := d.layers[li]
		for id := layer.Start; id < layer.End; id++ {
			node := &d.nodes[id]
			if node.Flags.IsDeleted() || node.Flags.IsPrunedByCache() {
				continue
			}

			switch {
			case ddo.AddSat(node.ValueTop, node.Rub) <= bestKnown:
				if node.Rub >= ddo.MaxValue {
					node.Theta = ddo.MinValue
				} else {
					node.Theta = bestKnown - node.Rub
				}
			case node.Flags.IsInCutset():
				if ddo.AddSat(node.ValueTop, node.ValueBot) <= bestKnown {
					candidate := bestKnown - node.ValueBot
					if candidate < node.Theta {
						node.Theta = candidate
					}
				} else {
					node.Theta = node.ValueTop
				}
			case node.Flags.IsExact() && node.Theta == ddo.MaxValue:
				node.Theta = ddo.MaxValue // dangling exact node: no constraint
			}

			if node.Flags.IsAboveCutset() && cache != nil {
				cache.Update(node.State, node.Depth, node.Theta, !node.Flags.IsInCutset())
			}

			link := node.Inbound
			for link != nilLink {
				cell := d.links[link]
				e := &d.edges[cell.Head]
				parent := &d.nodes[e.Src]
				candidate := node.Theta - e.Cost
				if candidate < parent.Theta {
					parent.Theta = candidate
				}
				link = cell.Tail
			}
		}
	}
}
