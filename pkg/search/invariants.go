package search

import (
	"fmt"

	"github.com/mctsnc/engine/pkg/arena"
	"github.com/mctsnc/engine/pkg/player"
)

// debugInvariants gates the tree-invariant assertions run at step
// boundaries. Off in ordinary builds; flip on while debugging a
// variant. The checks walk the whole allocated arena, so they are far
// too slow for a real search.
const debugInvariants = false

// checkInvariants asserts the structural tree invariants over every
// allocated node: child turns alternate, child slots back-link to
// their parent with the matching action, terminals have no children,
// and win counts never exceed visit counts. Panics on the first
// violation, which is a bug in a phase kernel, not a recoverable
// condition.
func (d *Driver) checkInvariants() {
	n := d.arena.Len()
	for idx := int64(0); idx < n; idx++ {
		parent := d.arena.ParentIndex(idx)
		if parent != arena.RootParent {
			if d.arena.Turn(idx) != d.arena.Turn(parent).Other() {
				panic(fmt.Sprintf("search: node %d turn %d equals parent %d turn", idx, d.arena.Turn(idx), parent))
			}
		}
		if d.arena.TerminalOutcome(idx) != player.Ongoing && d.arena.ChildrenCount(idx) != 0 {
			panic(fmt.Sprintf("search: terminal node %d has %d children", idx, d.arena.ChildrenCount(idx)))
		}
		if wins, visits := d.arena.Wins(idx), d.arena.Visits(idx); wins > visits {
			panic(fmt.Sprintf("search: node %d has wins %d > visits %d", idx, wins, visits))
		}
		for action, child := range d.arena.Children(idx) {
			if child == arena.Unallocated {
				continue
			}
			if d.arena.LastAction(int64(child)) != int32(action) {
				panic(fmt.Sprintf("search: child %d in slot %d has last_action %d", child, action, d.arena.LastAction(int64(child))))
			}
			// A rerooted node keeps its old parent's slot entry while
			// its own parent pointer is the root sentinel; that stale
			// edge is unreachable and not a violation.
			if cp := d.arena.ParentIndex(int64(child)); cp != idx && cp != arena.RootParent {
				panic(fmt.Sprintf("search: child %d in slot %d of node %d has parent %d", child, action, idx, cp))
			}
		}
	}
}
