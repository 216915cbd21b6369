package ddo

import (
	"fmt"
	"strconv"
)

// sprintState renders a state to a stable string for cache/dominance keys.
// %#v walks the value structurally (unlike %v, it includes field names and
// distinguishes types with identical string forms), which is what a hash key
// derived from an arbitrary user state needs.
func sprintState(state Any) string {
	return fmt.Sprintf("%#v", state)
}

func itoa(n int) string { return strconv.Itoa(n) }
