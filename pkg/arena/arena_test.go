package arena

import (
	"sync"
	"testing"

	"github.com/mctsnc/engine/pkg/game/connect4"
	"github.com/mctsnc/engine/pkg/player"
	"github.com/stretchr/testify/require"
)

func newTestArena(t *testing.T, capacity int64) *Arena {
	t.Helper()
	var m connect4.Mechanics
	return New(m.Shape(), capacity, true)
}

func TestAllocInitializesChildrenUnallocated(t *testing.T) {
	a := newTestArena(t, 4)
	idx, err := a.Alloc(RootParent, -1, player.Max, make([]int8, 6*7), nil)
	require.NoError(t, err)
	require.EqualValues(t, 0, idx)
	require.EqualValues(t, 0, a.ChildrenCount(idx))
	for action := 0; action < 7; action++ {
		require.EqualValues(t, Unallocated, a.Child(idx, action))
	}
}

// I2: children[a] != UNALLOCATED implies the child's last_action == a
// and the child's parent_index equals this node's index.
func TestSetChildSatisfiesInvariantI2(t *testing.T) {
	a := newTestArena(t, 4)
	root, err := a.Alloc(RootParent, -1, player.Max, make([]int8, 6*7), nil)
	require.NoError(t, err)

	child, err := a.Alloc(root, 3, player.Min, make([]int8, 6*7), nil)
	require.NoError(t, err)
	a.SetChild(root, 3, int32(child))

	require.EqualValues(t, child, a.Child(root, 3))
	require.EqualValues(t, 3, a.LastAction(child))
	require.EqualValues(t, root, a.ParentIndex(child))
	require.EqualValues(t, 1, a.ChildrenCount(root))
}

// I1: a node's turn equals -parent.turn.
func TestChildTurnIsOppositeOfParent(t *testing.T) {
	a := newTestArena(t, 4)
	root, err := a.Alloc(RootParent, -1, player.Max, make([]int8, 6*7), nil)
	require.NoError(t, err)
	child, err := a.Alloc(root, 0, a.Turn(root).Other(), make([]int8, 6*7), nil)
	require.NoError(t, err)
	require.Equal(t, a.Turn(root).Other(), a.Turn(child))
}

func TestAllocReportsExhaustion(t *testing.T) {
	a := newTestArena(t, 2)
	_, err := a.Alloc(RootParent, -1, player.Max, nil, nil)
	require.NoError(t, err)
	_, err = a.Alloc(RootParent, -1, player.Max, nil, nil)
	require.NoError(t, err)
	_, err = a.Alloc(RootParent, -1, player.Max, nil, nil)
	require.ErrorIs(t, err, ErrArenaExhausted)
}

func TestResetRewindsAllocationCounter(t *testing.T) {
	a := newTestArena(t, 2)
	_, err := a.Alloc(RootParent, -1, player.Max, nil, nil)
	require.NoError(t, err)
	a.Reset()
	require.EqualValues(t, 0, a.Len())
	idx, err := a.Alloc(RootParent, -1, player.Max, nil, nil)
	require.NoError(t, err)
	require.EqualValues(t, 0, idx)
}

func TestRerootClearsParentWithoutTouchingSiblings(t *testing.T) {
	a := newTestArena(t, 4)
	root, err := a.Alloc(RootParent, -1, player.Max, nil, nil)
	require.NoError(t, err)
	child, err := a.Alloc(root, 2, player.Min, nil, nil)
	require.NoError(t, err)
	sibling, err := a.Alloc(root, 3, player.Min, nil, nil)
	require.NoError(t, err)

	a.Reroot(child)
	require.EqualValues(t, RootParent, a.ParentIndex(child))
	// sibling is left entirely alone, just unreachable from the new root.
	require.EqualValues(t, root, a.ParentIndex(sibling))
}

// I4: n_wins <= n_visits at all times, and I5: win_flag is a one-way
// latch, even under concurrent backup-style updates.
func TestConcurrentStatsUpdatesStayMonotone(t *testing.T) {
	a := newTestArena(t, 2)
	idx, err := a.Alloc(RootParent, -1, player.Max, nil, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.AddVisitsWins(idx, 1, 1)
			a.SetWinFlag(idx)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 50, a.Visits(idx))
	require.LessOrEqual(t, a.Wins(idx), a.Visits(idx))
	require.True(t, a.WinFlag(idx))
}

func TestCapacityFollowsFootprintFormula(t *testing.T) {
	var m connect4.Mechanics
	shape := m.Shape()
	budget := Budget{Bytes: DefaultBudgetBytes}
	cap := Capacity(shape, budget)
	footprint := int64(shape.M*shape.N) + int64(shape.E) + fixedOverheadBytes + 4*int64(shape.A)
	require.Equal(t, DefaultBudgetBytes/footprint, cap)
	require.Greater(t, cap, int64(0))
}
