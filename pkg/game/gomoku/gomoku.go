// Package gomoku implements the Gomoku game-mechanics port: a 15x15
// board, free-placement moves, and four-direction "exactly five"
// terminal detection through the last placed stone. The win check
// walks the same four axis pairs as Connect-4's but requires exactly
// four same-colored neighbors of the dropped stone along an axis, i.e.
// a run of exactly five; six-or-more does not trigger a win unless the
// newly placed stone itself completes a fresh run of exactly five.
package gomoku

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/player"
	"github.com/pkg/errors"
)

const (
	M = 15
	N = 15
)

// Mechanics implements game.Mechanics for Gomoku. No extra-info bytes
// are needed (E == 0).
type Mechanics struct{}

var _ game.Mechanics = Mechanics{}

func (Mechanics) Shape() game.Shape {
	return game.Shape{M: M, N: N, A: M * N, E: 0}
}

func (Mechanics) IsLegal(b *game.Board, action int) bool {
	if action < 0 || action >= M*N {
		return false
	}
	i, j := action/N, action%N
	return b.Cells[i][j] == 0
}

func (m Mechanics) Apply(b *game.Board, action int) error {
	if !m.IsLegal(b, action) {
		return errors.Wrapf(game.ErrContractViolation, "gomoku: Apply on illegal action %d", action)
	}
	i, j := action/N, action%N
	b.Cells[i][j] = int8(b.Turn)
	b.LastAction = action
	b.Turn = b.Turn.Other()
	return nil
}

func (m Mechanics) EnumerateLegal(b *game.Board) []int {
	legal := make([]int, 0, M*N)
	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			if b.Cells[i][j] == 0 {
				legal = append(legal, i*N+j)
			}
		}
	}
	return legal
}

func (m Mechanics) ApplyPlayout(b *game.Board, action, ord int, legal []int) ([]int, error) {
	if err := m.Apply(b, action); err != nil {
		return legal, err
	}
	last := len(legal) - 1
	legal[ord] = legal[last]
	legal = legal[:last]
	return legal, nil
}

var directions = [4][2][2]int{
	{{-1, 0}, {1, 0}},
	{{0, -1}, {0, 1}},
	{{-1, 1}, {1, -1}},
	{{-1, -1}, {1, 1}},
}

func (Mechanics) Terminal(b *game.Board) player.Outcome {
	if b.LastAction < 0 {
		return player.Ongoing
	}
	i, j := b.LastAction/N, b.LastAction%N
	token := b.Cells[i][j]
	if token == 0 {
		return player.Ongoing
	}

	for _, axis := range directions {
		total := 0
		for _, d := range axis {
			di, dj := d[0], d[1]
			ci, cj := i+di, j+dj
			for k := 0; k < 5; k++ {
				if ci < 0 || ci >= M || cj < 0 || cj >= N || b.Cells[ci][cj] != token {
					break
				}
				total++
				ci += di
				cj += dj
			}
		}
		if total == 4 {
			if token > 0 {
				return player.WinMax
			}
			return player.LossMin
		}
	}

	full := true
	for i := 0; i < M && full; i++ {
		for j := 0; j < N; j++ {
			if b.Cells[i][j] == 0 {
				full = false
				break
			}
		}
	}
	if full {
		return player.Draw
	}
	return player.Ongoing
}

func (Mechanics) ActionName(action int) string {
	i, j := action/N, action%N
	return fmt.Sprintf("%c%d", 'A'+j, i+1)
}

func (Mechanics) ActionIndex(name string) (int, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if len(name) < 2 {
		return 0, errors.Errorf("gomoku: invalid action name %q", name)
	}
	col := int(name[0] - 'A')
	row, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, errors.Wrapf(err, "gomoku: invalid action name %q", name)
	}
	if col < 0 || col >= N || row < 1 || row > M {
		return 0, errors.Errorf("gomoku: action name %q out of range", name)
	}
	return (row-1)*N + col, nil
}
