package connect4

import (
	"testing"

	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/player"
	"github.com/stretchr/testify/require"
)

func TestVerticalWin(t *testing.T) {
	var m Mechanics
	b := game.NewBoard(m.Shape())

	// Black (Max, +1) drops into column 0 four times, alternating with
	// White dropping into column 1, so black never gets blocked.
	moves := []int{0, 1, 0, 1, 0, 1, 0}
	for _, col := range moves {
		require.True(t, m.IsLegal(&b, col))
		require.NoError(t, m.Apply(&b, col))
	}

	require.Equal(t, player.WinMax, m.Terminal(&b))
}

func TestNoWinOnScatteredDrops(t *testing.T) {
	var m Mechanics
	b := game.NewBoard(m.Shape())
	for _, col := range []int{0, 1, 2, 3} {
		require.NoError(t, m.Apply(&b, col))
	}
	require.Equal(t, player.Ongoing, m.Terminal(&b))
}

func TestColumnFullIsIllegal(t *testing.T) {
	var m Mechanics
	b := game.NewBoard(m.Shape())
	for i := 0; i < M; i++ {
		require.True(t, m.IsLegal(&b, 0))
		turnBefore := b.Turn
		require.NoError(t, m.Apply(&b, 0))
		require.NotEqual(t, turnBefore, b.Turn)
	}
	require.False(t, m.IsLegal(&b, 0))
	require.Error(t, m.Apply(&b, 0))
}

func TestEnumerateLegalMatchesIsLegal(t *testing.T) {
	var m Mechanics
	b := game.NewBoard(m.Shape())
	for i := 0; i < M; i++ {
		require.NoError(t, m.Apply(&b, 2))
	}
	legal := m.EnumerateLegal(&b)
	for j := 0; j < N; j++ {
		found := false
		for _, a := range legal {
			if a == j {
				found = true
			}
		}
		require.Equal(t, m.IsLegal(&b, j), found)
	}
}

func TestActionNameRoundTrip(t *testing.T) {
	var m Mechanics
	for a := 0; a < N; a++ {
		name := m.ActionName(a)
		idx, err := m.ActionIndex(name)
		require.NoError(t, err)
		require.Equal(t, a, idx)
	}
}

func TestApplyPlayoutCompactsFullColumn(t *testing.T) {
	var m Mechanics
	b := game.NewBoard(m.Shape())
	legal := []int{0, 1, 2}
	for i := 0; i < M-1; i++ {
		var err error
		legal, err = m.ApplyPlayout(&b, 0, 0, legal)
		require.NoError(t, err)
		require.Contains(t, legal, 0)
	}
	var err error
	legal, err = m.ApplyPlayout(&b, 0, 0, legal)
	require.NoError(t, err)
	require.NotContains(t, legal, 0)
}
