// Package connect4 implements the Connect-4 game-mechanics port: a
// 6x7 board, column-drop moves, and four-direction line-of-4 terminal
// detection through the last dropped disc. Per-column fill heights
// live in the extra-info buffer so legality is a single compare.
package connect4

import (
	"strconv"

	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/player"
	"github.com/pkg/errors"
)

const (
	M = 6
	N = 7
)

// Mechanics implements game.Mechanics for Connect-4. Extra-info byte j
// holds the number of discs dropped into column j so far.
type Mechanics struct{}

var _ game.Mechanics = Mechanics{}

func (Mechanics) Shape() game.Shape {
	return game.Shape{M: M, N: N, A: N, E: N}
}

func (Mechanics) IsLegal(b *game.Board, action int) bool {
	if action < 0 || action >= N {
		return false
	}
	return b.Extra[action] < M
}

func (m Mechanics) Apply(b *game.Board, action int) error {
	if !m.IsLegal(b, action) {
		return errors.Wrapf(game.ErrContractViolation, "connect4: Apply on illegal action %d", action)
	}
	row := M - 1 - int(b.Extra[action])
	b.Cells[row][action] = int8(b.Turn)
	b.Extra[action]++
	b.LastAction = action
	b.Turn = b.Turn.Other()
	return nil
}

func (m Mechanics) EnumerateLegal(b *game.Board) []int {
	legal := make([]int, 0, N)
	for j := 0; j < N; j++ {
		if b.Extra[j] < M {
			legal = append(legal, j)
		}
	}
	return legal
}

func (m Mechanics) ApplyPlayout(b *game.Board, action, ord int, legal []int) ([]int, error) {
	if err := m.Apply(b, action); err != nil {
		return legal, err
	}
	// Swap-and-pop: column only disappears from the legal set once full.
	if b.Extra[action] >= M {
		last := len(legal) - 1
		legal[ord] = legal[last]
		legal = legal[:last]
	}
	return legal, nil
}

var directions = [4][2][2]int{
	{{-1, 0}, {1, 0}},  // N-S
	{{0, -1}, {0, 1}},  // E-W
	{{-1, 1}, {1, -1}}, // NE-SW
	{{-1, -1}, {1, 1}}, // NW-SE
}

func (Mechanics) Terminal(b *game.Board) player.Outcome {
	if b.LastAction < 0 {
		return player.Ongoing
	}
	j := b.LastAction
	i := M - int(b.Extra[j]) // row the last disc landed on
	token := b.Cells[i][j]
	if token == 0 {
		return player.Ongoing
	}

	for _, axis := range directions {
		total := 0
		for _, d := range axis {
			di, dj := d[0], d[1]
			ci, cj := i+di, j+dj
			for ci >= 0 && ci < M && cj >= 0 && cj < N && b.Cells[ci][cj] == token {
				total++
				ci += di
				cj += dj
			}
		}
		if total >= 3 {
			if token > 0 {
				return player.WinMax
			}
			return player.LossMin
		}
	}

	full := true
	for j := 0; j < N; j++ {
		if b.Extra[j] < M {
			full = false
			break
		}
	}
	if full {
		return player.Draw
	}
	return player.Ongoing
}

func (Mechanics) ActionName(action int) string {
	return strconv.Itoa(action)
}

func (Mechanics) ActionIndex(name string) (int, error) {
	v, err := strconv.Atoi(name)
	if err != nil {
		return 0, errors.Wrapf(err, "connect4: invalid action name %q", name)
	}
	return v, nil
}
