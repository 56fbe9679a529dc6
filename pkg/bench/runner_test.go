package bench

import (
	"testing"

	"github.com/mctsnc/engine/pkg/archive"
	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/game/connect4"
	"github.com/mctsnc/engine/pkg/mctsseq"
	"github.com/mctsnc/engine/pkg/search"
	"github.com/stretchr/testify/require"
)

func TestMatchRunnerPlaysCompleteGames(t *testing.T) {
	var mechanics connect4.Mechanics

	a := NewSearchAgent("ocp-thrifty-1x8", search.Config{
		Variant:           search.OCPThrifty,
		NTrees:            1,
		NPlayouts:         8,
		ExplorationParam:  2.0,
		Seed:              1,
		Vanilla:           true,
		MemoryBudgetBytes: 1 << 22,
	}, search.Budget{ForcedStepLimit: 20})

	b := NewSequentialAgent("sequential", 2.0, 2, mctsseq.Budget{ForcedStepLimit: 20})

	runner := &MatchRunner{
		Mechanics: mechanics,
		NewBoard:  func() game.Board { return game.NewBoard(mechanics.Shape()) },
		AgentA:    a,
		AgentB:    b,
		NGames:    2,
		NWorkers:  2,
	}

	result, err := runner.Run()
	require.NoError(t, err)
	require.Len(t, result.GamesInfos, 2)
	require.Equal(t, 2, result.MatchupInfo.NGames)

	for _, gi := range result.GamesInfos {
		require.NotEmpty(t, gi.MovesRounds)
		require.NotEqual(t, int8(2), gi.Outcome) // 2 is player.Ongoing; games must finish
	}
}

func TestNonVanillaAgentPlaysCompleteGame(t *testing.T) {
	var mechanics connect4.Mechanics

	a := NewSearchAgent("acp-prodigal-reuse", search.Config{
		Variant:           search.ACPProdigal,
		NTrees:            1,
		NPlayouts:         4,
		ExplorationParam:  2.0,
		Seed:              3,
		Vanilla:           false,
		MemoryBudgetBytes: 1 << 24,
	}, search.Budget{ForcedStepLimit: 15})
	b := NewSequentialAgent("sequential", 2.0, 4, mctsseq.Budget{ForcedStepLimit: 15})

	runner := &MatchRunner{
		Mechanics: mechanics,
		NewBoard:  func() game.Board { return game.NewBoard(mechanics.Shape()) },
		AgentA:    a,
		AgentB:    b,
		NGames:    1,
		NWorkers:  1,
	}

	result, err := runner.Run()
	require.NoError(t, err)
	require.Len(t, result.GamesInfos, 1)
	for _, gi := range result.GamesInfos {
		require.NotEqual(t, int8(2), gi.Outcome)
	}
}

// A prior archive's recorded step counts override the agents' own
// budgets on replay.
func TestPriorArchiveReplaysStepBudgets(t *testing.T) {
	var mechanics connect4.Mechanics
	newBoard := func() game.Board { return game.NewBoard(mechanics.Shape()) }

	play := func(budget mctsseq.Budget, prior *archive.Archive) *archive.Archive {
		runner := &MatchRunner{
			Mechanics:    mechanics,
			NewBoard:     newBoard,
			AgentA:       NewSequentialAgent("seq-a", 2.0, 1, budget),
			AgentB:       NewSequentialAgent("seq-b", 2.0, 2, budget),
			NGames:       1,
			NWorkers:     1,
			PriorArchive: prior,
		}
		result, err := runner.Run()
		require.NoError(t, err)
		return result
	}

	recorded := play(mctsseq.Budget{ForcedStepLimit: 25}, nil)
	replayed := play(mctsseq.Budget{ForcedStepLimit: 10}, recorded)

	for _, gi := range replayed.GamesInfos {
		for _, mr := range gi.MovesRounds {
			if mr.BlackPerformanceInfo != nil {
				require.Equal(t, 25, mr.BlackPerformanceInfo.Steps)
			}
			if mr.WhitePerformanceInfo != nil {
				require.Equal(t, 25, mr.WhitePerformanceInfo.Steps)
			}
		}
	}
}
