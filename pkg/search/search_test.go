package search

import (
	"testing"

	"github.com/mctsnc/engine/pkg/arena"
	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/game/connect4"
	"github.com/stretchr/testify/require"
)

// forcedWinBoard sets up three discs already down for Max in columns
// 0-2, Min mirroring each; Max to move with column 3 completing a row.
func forcedWinBoard(t *testing.T) (connect4.Mechanics, game.Board) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	require.NoError(t, m.Apply(&b, 0)) // Max
	require.NoError(t, m.Apply(&b, 0)) // Min
	require.NoError(t, m.Apply(&b, 1)) // Max
	require.NoError(t, m.Apply(&b, 1)) // Min
	require.NoError(t, m.Apply(&b, 2)) // Max
	require.NoError(t, m.Apply(&b, 2)) // Min
	return m, b
}

func TestFindsForcedWinAllVariants(t *testing.T) {
	variants := []Variant{OCPThrifty, OCPProdigal, ACPThrifty, ACPProdigal}
	for _, v := range variants {
		v := v
		t.Run(v.String(), func(t *testing.T) {
			m, b := forcedWinBoard(t)
			d, err := NewDriver(m, b, Config{
				Variant:           v,
				NTrees:            2,
				NPlayouts:         2,
				Seed:              42,
				MemoryBudgetBytes: 1 << 22,
			})
			require.NoError(t, err)

			action, report, err := d.Run(Budget{ForcedStepLimit: 60})
			require.NoError(t, err)
			require.Equal(t, int32(3), action)
			require.Equal(t, 60, report.Steps)
			require.False(t, report.ArenaExhausted)

			// The winning child is a terminal the mover wins; its
			// proven-win latch must be up and reported.
			winningChild := d.Arena().Child(d.RootIndex(), 3)
			require.NotEqual(t, int32(arena.Unallocated), winningChild)
			require.True(t, d.Arena().WinFlag(int64(winningChild)))
		})
	}
}

func TestThriftyNeverExceedsLegalCountChildren(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	d, err := NewDriver(m, b, Config{
		Variant:           OCPThrifty,
		NTrees:            3,
		NPlayouts:         2,
		Seed:              1,
		MemoryBudgetBytes: 1 << 22,
	})
	require.NoError(t, err)

	_, _, err = d.Run(Budget{ForcedStepLimit: 20})
	require.NoError(t, err)

	cc := d.Arena().ChildrenCount(d.RootIndex())
	require.LessOrEqual(t, int(cc), int(d.legalCount[d.RootIndex()]))
	require.LessOrEqual(t, int(cc), 7)
}

func TestProdigalExpandsAllChildrenOnFirstStep(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	d, err := NewDriver(m, b, Config{
		Variant:           OCPProdigal,
		NTrees:            1,
		NPlayouts:         1,
		Seed:              1,
		MemoryBudgetBytes: 1 << 22,
	})
	require.NoError(t, err)

	_, _, err = d.Run(Budget{ForcedStepLimit: 1})
	require.NoError(t, err)

	require.EqualValues(t, 7, d.Arena().ChildrenCount(d.RootIndex()))
}

func TestArenaExhaustionIsSurfacedNonFatally(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())

	shape := m.Shape()
	footprint := int64(shape.M*shape.N) + int64(shape.E) + 64 + 4*int64(shape.A)
	tinyBudget := footprint * 5 // room for root + a handful of children, nothing like a real search

	d, err := NewDriver(m, b, Config{
		Variant:           OCPProdigal,
		NTrees:            1,
		NPlayouts:         1,
		Seed:              1,
		MemoryBudgetBytes: tinyBudget,
	})
	require.NoError(t, err)

	action, report, err := d.Run(Budget{ForcedStepLimit: 50})
	require.Error(t, err)
	require.True(t, report.ArenaExhausted)
	require.Less(t, report.Steps, 50)
	require.GreaterOrEqual(t, action, int32(0))
}

func TestRerootPreservesChildSubtreeStats(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	d, err := NewDriver(m, b, Config{
		Variant:           ACPThrifty,
		NTrees:            2,
		NPlayouts:         2,
		Seed:              9,
		MemoryBudgetBytes: 1 << 22,
	})
	require.NoError(t, err)

	action, _, err := d.Run(Budget{ForcedStepLimit: 40})
	require.NoError(t, err)

	childIdx := d.Arena().Child(d.RootIndex(), int(action))
	require.NotEqual(t, int32(arena.Unallocated), childIdx)
	visitsBefore := d.Arena().Visits(int64(childIdx))

	ok := d.Reroot(action)
	require.True(t, ok)
	require.Equal(t, int64(childIdx), d.RootIndex())
	require.EqualValues(t, visitsBefore, d.Arena().Visits(d.RootIndex()))
	require.Equal(t, arena.RootParent, int(d.Arena().ParentIndex(d.RootIndex())))
}

func TestRerootOnUnallocatedChildFails(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	d, err := NewDriver(m, b, Config{
		Variant:           OCPThrifty,
		NTrees:            1,
		NPlayouts:         1,
		Seed:              1,
		MemoryBudgetBytes: 1 << 22,
	})
	require.NoError(t, err)

	ok := d.Reroot(0)
	require.False(t, ok)
}

func TestResetReseedsRootAndRewindsArena(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	d, err := NewDriver(m, b, Config{
		Variant:           OCPProdigal,
		NTrees:            2,
		NPlayouts:         2,
		Seed:              1,
		MemoryBudgetBytes: 1 << 22,
	})
	require.NoError(t, err)

	_, _, err = d.Run(Budget{ForcedStepLimit: 10})
	require.NoError(t, err)
	require.Greater(t, d.Arena().Len(), int64(1))

	require.NoError(t, d.Reset(game.NewBoard(m.Shape())))
	require.EqualValues(t, 1, d.Arena().Len())
	require.EqualValues(t, 0, d.Arena().Visits(d.RootIndex()))
}

// OCP steps are barrier-ordered and every worker stream is seeded from
// the root seed plus its id, so a fixed seed and forced step limit
// reproduce the identical search (ACP is excluded: its workers race on
// expansion order by design).
func TestOCPSameSeedSameBestAction(t *testing.T) {
	for _, v := range []Variant{OCPThrifty, OCPProdigal} {
		v := v
		t.Run(v.String(), func(t *testing.T) {
			run := func() (int32, int64) {
				var m connect4.Mechanics
				b := game.NewBoard(m.Shape())
				d, err := NewDriver(m, b, Config{
					Variant:           v,
					NTrees:            2,
					NPlayouts:         4,
					Seed:              123,
					MemoryBudgetBytes: 1 << 22,
				})
				require.NoError(t, err)
				action, _, err := d.Run(Budget{ForcedStepLimit: 30})
				require.NoError(t, err)
				return action, int64(d.Arena().Visits(d.RootIndex()))
			}
			a1, v1 := run()
			a2, v2 := run()
			require.Equal(t, a1, a2)
			require.Equal(t, v1, v2)
		})
	}
}

// Statistics are monotone in steps: a 2K-step run accumulates at least
// as many root visits as a K-step run with the same seed.
func TestRootVisitsMonotoneInSteps(t *testing.T) {
	rootVisits := func(steps int) uint64 {
		var m connect4.Mechanics
		b := game.NewBoard(m.Shape())
		d, err := NewDriver(m, b, Config{
			Variant:           OCPThrifty,
			NTrees:            2,
			NPlayouts:         4,
			Seed:              5,
			MemoryBudgetBytes: 1 << 22,
		})
		require.NoError(t, err)
		_, _, err = d.Run(Budget{ForcedStepLimit: steps})
		require.NoError(t, err)
		return d.Arena().Visits(d.RootIndex())
	}

	const k = 15
	short := rootVisits(k)
	long := rootVisits(2 * k)
	require.GreaterOrEqual(t, short, uint64(k))
	require.GreaterOrEqual(t, long, short)
}
