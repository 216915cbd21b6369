package heuristics

import (
	"sync/atomic"
	"time"
)

// TimeCutoff stops a solve once a wall-clock budget elapses, measured from
// the moment it is constructed (typically right before Solver.Maximize is
// called).
type TimeCutoff struct {
	deadline time.Time
}

// NewTimeCutoff creates a cutoff that fires after budget has elapsed.
func NewTimeCutoff(budget time.Duration) *TimeCutoff {
	return &TimeCutoff{deadline: time.Now().Add(budget)}
}

func (c *TimeCutoff) MustStop() bool { return time.Now().After(c.deadline) }

// NodeCutoff stops a solve once a fixed number of nodes have been expanded
// across every diagram compiled so far. Expand must be called once per
// branched node; it is safe to share one NodeCutoff across concurrent
// workers.
type NodeCutoff struct {
	limit   int64
	counter atomic.Int64
}

// NewNodeCutoff creates a cutoff that fires once Expand has been called
// limit times in total.
func NewNodeCutoff(limit int64) *NodeCutoff {
	return &NodeCutoff{limit: limit}
}

func (c *NodeCutoff) Expand() { c.counter.Add(1) }

func (c *NodeCutoff) MustStop() bool { return c.counter.Load() >= c.limit }

// NeverCutoff never stops a compile; a thin alias of ddo.CutoffNever kept
// here so callers that only import the heuristics package don't also need to
// import ddo for the trivial case.
type NeverCutoff struct{}

func (NeverCutoff) MustStop() bool { return false }
