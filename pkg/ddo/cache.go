package ddo

import "sync"

// Threshold is the value stored by the state cache for a (state, depth)
// pair: the minimum value a path must beat to still be worth exploring, and
// whether the subtree below that value has already been fully explored.
type Threshold struct {
	Value    int64
	Explored bool
}

// StateHasher turns an opaque problem state into a comparable cache key.
// Cache does not consult it: every Cache keys its entries on the state's
// sprintState rendering (see cacheKey below).
type StateHasher interface {
	HashState(state Any) any
}

// cacheKey is built from sprintState(state) rather than the raw state value:
// a Problem.State whose dynamic type contains a slice or map (as
// examples/knapsack's State does) is not comparable, so it cannot be used
// directly as a map key — only its string rendering can.
type cacheKey struct {
	key   string
	depth int
}

// shardCount is fixed rather than configurable: the cache is looked up once
// per branch, so shard contention is already low, and a power-of-two count
// keeps the shard-selection mask cheap.
const shardCount = 32

type cacheShard struct {
	mu sync.RWMutex
	m  map[cacheKey]Threshold
}

// Cache is the thread-safe (state, depth) → Threshold store described in
// §4.B. It is sharded by a cheap hash of the key so that concurrent workers
// compiling unrelated diagrams rarely contend on the same shard's mutex —
// the only synchronization §5 requires of it.
type Cache struct {
	shards [shardCount]*cacheShard
}

// NewCache creates an empty, ready-to-use state cache.
func NewCache() *Cache {
	c := &Cache{}
	for i := range c.shards {
		c.shards[i] = &cacheShard{m: make(map[cacheKey]Threshold)}
	}
	return c
}

func (c *Cache) shardFor(key cacheKey) *cacheShard {
	h := hashKey(key)
	return c.shards[h%uint64(shardCount)]
}

// hashKey is a simple FNV-1a over a fmt-stable representation of the key.
// States are typically small comparable structs/strings; %#v on them is both
// stable and cheap relative to the MDD compilation work it guards.
func hashKey(key cacheKey) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, b := range []byte(keyString(key)) {
		h ^= uint64(b)
		h *= prime64
	}
	return h
}

func keyString(key cacheKey) string {
	return key.key + "|" + itoa(key.depth)
}

// Get returns the stored threshold for (state, depth), if any.
func (c *Cache) Get(state Any, depth int) (Threshold, bool) {
	key := cacheKey{key: sprintState(state), depth: depth}
	shard := c.shardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	t, ok := shard.m[key]
	return t, ok
}

// Update inserts a new threshold for (state, depth), or replaces the stored
// one iff the new value is strictly greater. If the values are equal,
// Explored is ORed so a second, more thoroughly explored visit to the same
// state at the same depth doesn't lose that information.
func (c *Cache) Update(state Any, depth int, value int64, explored bool) {
	key := cacheKey{key: sprintState(state), depth: depth}
	shard := c.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	cur, ok := shard.m[key]
	if !ok || value > cur.Value {
		shard.m[key] = Threshold{Value: value, Explored: explored}
		return
	}
	if value == cur.Value && explored && !cur.Explored {
		shard.m[key] = Threshold{Value: cur.Value, Explored: true}
	}
}

// Len reports the total number of entries across all shards. Intended for
// diagnostics/tests, not the hot path.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Clear drops every entry. Used between independent solves that reuse the
// same Cache value (mirrors Diagram.Clear's generational reuse).
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.m = make(map[cacheKey]Threshold)
		s.mu.Unlock()
	}
}
