package ddo

import "testing"

func TestDefaultNodeFlagsIsExactOnly(t *testing.T) {
	f := DefaultNodeFlags()
	if !f.IsExact() {
		t.Error("expected a fresh node to be exact")
	}
	for name, got := range map[string]bool{
		"relaxed":       f.IsRelaxed(),
		"marked":        f.IsMarked(),
		"inCutset":      f.IsInCutset(),
		"aboveCutset":   f.IsAboveCutset(),
		"deleted":       f.IsDeleted(),
		"prunedByCache": f.IsPrunedByCache(),
	} {
		if got {
			t.Errorf("expected %s to be false on a fresh node", name)
		}
	}
}

func TestIsExactRequiresNotRelaxed(t *testing.T) {
	f := DefaultNodeFlags().WithRelaxed(true)
	if f.IsExact() {
		t.Error("expected a relaxed node to never report exact, even with the exact bit set")
	}
	if !f.IsRelaxed() {
		t.Error("expected WithRelaxed(true) to set the relaxed bit")
	}
}

func TestWithAccessorsRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		with func(NodeFlags, bool) NodeFlags
		is   func(NodeFlags) bool
	}{
		{"marked", NodeFlags.WithMarked, NodeFlags.IsMarked},
		{"inCutset", NodeFlags.WithInCutset, NodeFlags.IsInCutset},
		{"aboveCutset", NodeFlags.WithAboveCutset, NodeFlags.IsAboveCutset},
		{"deleted", NodeFlags.WithDeleted, NodeFlags.IsDeleted},
		{"prunedByCache", NodeFlags.WithPrunedByCache, NodeFlags.IsPrunedByCache},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := DefaultNodeFlags()
			set := c.with(f, true)
			if !c.is(set) {
				t.Errorf("expected %s bit to be set", c.name)
			}
			cleared := c.with(set, false)
			if c.is(cleared) {
				t.Errorf("expected %s bit to be cleared", c.name)
			}
		})
	}
}

func TestWithDoesNotMutateReceiver(t *testing.T) {
	f := DefaultNodeFlags()
	_ = f.WithDeleted(true)
	if f.IsDeleted() {
		t.Error("expected With* to return a copy, not mutate the receiver")
	}
}
