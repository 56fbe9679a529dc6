package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	a := New(MatchupInfo{
		AIAShortname: "ocp_thrifty_1x32",
		AIBShortname: "sequential",
		GameName:     "connect4",
		NGames:       2,
	})
	a.GamesInfos["1"] = GameInfo{
		Black: "ocp_thrifty_1x32",
		White: "sequential",
		MovesRounds: map[string]MovesRound{
			"1": {
				BlackBestActionInfo:  &ActionInfo{Action: 3, Name: "3", Visits: 128, WinFlag: false},
				BlackPerformanceInfo: &PerformanceInfo{Steps: 64, PlayoutsPerSec: 12000},
			},
		},
		Outcome:        1,
		OutcomeMessage: "black wins",
	}
	a.Stats = Stats{BlackWinsCount: 1, BlackWinsFreq: 1.0}

	path := filepath.Join(t.TempDir(), "experiment.json")
	require.NoError(t, a.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, a.MatchupInfo, loaded.MatchupInfo)
	require.Equal(t, a.Stats, loaded.Stats)

	steps, ok := loaded.ForcedStepLimit(1, 1, true)
	require.True(t, ok)
	require.Equal(t, 64, steps)

	_, ok = loaded.ForcedStepLimit(1, 1, false)
	require.False(t, ok)

	_, ok = loaded.ForcedStepLimit(2, 1, true)
	require.False(t, ok)
}
