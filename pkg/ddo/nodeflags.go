package ddo

// flagExact and friends are bit positions within a NodeFlags byte. Kept
// unexported: callers go through the named accessors so the bit layout can
// change without touching call sites.
const (
	flagExact byte = 1 << iota
	flagRelaxed
	flagMarked
	flagInCutset
	flagAboveCutset
	flagDeleted
	flagPrunedByCache
)

// NodeFlags packs the seven independent booleans a compiled node carries
// (component A of the design). It is a plain byte, copied by value: nodes
// are manipulated in tight loops and this must sit alongside a node's
// integer fields in one cache line.
type NodeFlags byte

// DefaultNodeFlags returns the flag word for a freshly created node: exact,
// nothing else set.
func DefaultNodeFlags() NodeFlags {
	return NodeFlags(flagExact)
}

func (f NodeFlags) has(bit byte) bool { return byte(f)&bit != 0 }

func (f NodeFlags) set(bit byte, v bool) NodeFlags {
	if v {
		return NodeFlags(byte(f) | bit)
	}
	return NodeFlags(byte(f) &^ bit)
}

// IsExact reports exact ∧ ¬relaxed: a node only counts as exact if it was
// never folded into a relaxation merge.
func (f NodeFlags) IsExact() bool { return f.has(flagExact) && !f.has(flagRelaxed) }

// IsRelaxed reports whether this node is the result of a relaxation merge.
func (f NodeFlags) IsRelaxed() bool { return f.has(flagRelaxed) }

// IsMarked reports whether local-bound back-propagation has visited this
// node.
func (f NodeFlags) IsMarked() bool { return f.has(flagMarked) }

// IsInCutset reports whether this node belongs to the drained cutset.
func (f NodeFlags) IsInCutset() bool { return f.has(flagInCutset) }

// IsAboveCutset reports whether this node lies on or above the exact/inexact
// frontier (used to decide whether its threshold is pushed to the cache).
func (f NodeFlags) IsAboveCutset() bool { return f.has(flagAboveCutset) }

// IsDeleted reports whether this node was dropped by restriction, squashed
// away by relaxation, or pruned and should be skipped by every later pass.
func (f NodeFlags) IsDeleted() bool { return f.has(flagDeleted) }

// IsPrunedByCache reports whether this node was filtered by the state cache
// (component B) rather than by width control.
func (f NodeFlags) IsPrunedByCache() bool { return f.has(flagPrunedByCache) }

// WithExact, WithRelaxed, ... return a copy of f with the named bit set to v.
func (f NodeFlags) WithExact(v bool) NodeFlags         { return f.set(flagExact, v) }
func (f NodeFlags) WithRelaxed(v bool) NodeFlags       { return f.set(flagRelaxed, v) }
func (f NodeFlags) WithMarked(v bool) NodeFlags        { return f.set(flagMarked, v) }
func (f NodeFlags) WithInCutset(v bool) NodeFlags      { return f.set(flagInCutset, v) }
func (f NodeFlags) WithAboveCutset(v bool) NodeFlags   { return f.set(flagAboveCutset, v) }
func (f NodeFlags) WithDeleted(v bool) NodeFlags       { return f.set(flagDeleted, v) }
func (f NodeFlags) WithPrunedByCache(v bool) NodeFlags { return f.set(flagPrunedByCache, v) }
