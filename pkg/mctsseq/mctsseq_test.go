package mctsseq

import (
	"testing"

	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/game/connect4"
	"github.com/stretchr/testify/require"
)

// Three discs already down for Max in a row, one legal completing
// move: the oracle should find and prefer the winning action once it
// has visited the root's children at least once each.
func TestFindsForcedWinConnect4(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	require.NoError(t, m.Apply(&b, 0)) // Max
	require.NoError(t, m.Apply(&b, 0)) // Min
	require.NoError(t, m.Apply(&b, 1)) // Max
	require.NoError(t, m.Apply(&b, 1)) // Min
	require.NoError(t, m.Apply(&b, 2)) // Max
	require.NoError(t, m.Apply(&b, 2)) // Min
	// Max to move, column 3 completes four across row M-1.

	search := New(m, b, 42)
	action, report := search.Run(Budget{ForcedStepLimit: 400})
	require.Equal(t, int32(3), action)
	require.Equal(t, 400, report.Steps)

	for _, info := range search.ActionsInfo() {
		require.Equal(t, info.Action == 3, info.WinFlag,
			"only the completing move is a proven win")
	}
}

// Each step backs up exactly one rollout, and after the root's first
// expansion every rollout seed sits below exactly one root child: the
// children's visit counts must sum to the root's.
func TestRootChildVisitsSumToSteps(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	search := New(m, b, 11)
	_, report := search.Run(Budget{ForcedStepLimit: 120})

	var sum uint64
	for _, info := range search.ActionsInfo() {
		sum += info.Visits
	}
	require.EqualValues(t, report.Steps, sum)
	require.EqualValues(t, report.Steps, search.RootVisits())
}

func TestSameSeedIsDeterministic(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())

	a1, _ := New(m, b, 7).Run(Budget{ForcedStepLimit: 200})
	a2, _ := New(m, b, 7).Run(Budget{ForcedStepLimit: 200})
	require.Equal(t, a1, a2)
}

func TestForcedStepLimitOverridesStepLimit(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	search := New(m, b, 1)
	_, report := search.Run(Budget{StepLimit: 5, ForcedStepLimit: 50})
	require.Equal(t, 50, report.Steps)
}

func TestRootVisitsGrowWithSteps(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	search := New(m, b, 3)
	search.Run(Budget{ForcedStepLimit: 30})
	require.EqualValues(t, 30, search.RootVisits())
}

func TestBestActionIsNoneWhenNoStepsRun(t *testing.T) {
	var m connect4.Mechanics
	b := game.NewBoard(m.Shape())
	search := New(m, b, 1)
	action := search.BestAction()
	require.Equal(t, int32(-1), action)
}
