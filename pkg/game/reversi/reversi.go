// Package reversi implements the Reversi (Othello) game-mechanics
// port: an 8x8 board, 8-ray flip capture, an explicit pass action at
// index M*N, and disc-count-backed terminal detection. The explicit
// pass model is enforced throughout: a side passes via action index
// M*N when, and only when, it has no other legal move but the
// opponent still does.
package reversi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/player"
	"github.com/pkg/errors"
)

const (
	M = 8
	N = 8

	// PassAction is the sentinel action index representing a forced
	// pass; legal only when the side to move has no other legal move
	// but the opponent does.
	PassAction = M * N

	extraWhiteIdx = 0
	extraBlackIdx = 1
)

// Mechanics implements game.Mechanics for Reversi. Extra-info holds the
// running disc counts: Extra[0] = white (Min) discs, Extra[1] = black
// (Max) discs, maintained incrementally by Apply's flip propagation.
// ApplyPlayout does not maintain them, so Terminal counts discs on the
// board rather than reading Extra.
type Mechanics struct{}

var _ game.Mechanics = Mechanics{}

func (Mechanics) Shape() game.Shape {
	return game.Shape{M: M, N: N, A: M*N + 1, E: 2}
}

var rays = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

func inBounds(i, j int) bool {
	return i >= 0 && i < M && j >= 0 && j < N
}

// hasAnyMove reports whether `side` has at least one legal non-pass
// move on b.
func hasAnyMove(b *game.Board, side player.Sign) bool {
	opponent := int8(side.Other())
	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			if b.Cells[i][j] != 0 {
				continue
			}
			for _, d := range rays {
				row, col := i+d[0], j+d[1]
				if !inBounds(row, col) || b.Cells[row][col] != opponent {
					continue
				}
				for {
					row += d[0]
					col += d[1]
					if !inBounds(row, col) {
						break
					}
					cell := b.Cells[row][col]
					if cell == 0 {
						break
					}
					if cell == int8(side) {
						return true
					}
				}
			}
		}
	}
	return false
}

func (Mechanics) IsLegal(b *game.Board, action int) bool {
	if action == PassAction {
		// A pass is only legal while the game is still live: the side
		// to move is stuck but the opponent can still play.
		return !hasAnyMove(b, b.Turn) && hasAnyMove(b, b.Turn.Other())
	}
	if action < 0 || action >= M*N {
		return false
	}
	i, j := action/N, action%N
	if b.Cells[i][j] != 0 {
		return false
	}
	opponent := int8(b.Turn.Other())
	for _, d := range rays {
		row, col := i+d[0], j+d[1]
		if !inBounds(row, col) || b.Cells[row][col] != opponent {
			continue
		}
		for {
			row += d[0]
			col += d[1]
			if !inBounds(row, col) {
				break
			}
			cell := b.Cells[row][col]
			if cell == 0 {
				break
			}
			if cell == int8(b.Turn) {
				return true
			}
		}
	}
	return false
}

func (m Mechanics) Apply(b *game.Board, action int) error {
	if !m.IsLegal(b, action) {
		return errors.Wrapf(game.ErrContractViolation, "reversi: Apply on illegal action %d", action)
	}
	if action == PassAction {
		b.LastAction = action
		b.Turn = b.Turn.Other()
		return nil
	}

	i, j := action/N, action%N
	turn := b.Turn
	b.Cells[i][j] = int8(turn)
	addDisc(b, turn, 1)

	opponent := int8(turn.Other())
	for _, d := range rays {
		row, col := i+d[0], j+d[1]
		if !inBounds(row, col) || b.Cells[row][col] != opponent {
			continue
		}
		endRow, endCol := row, col
		found := false
		for {
			endRow += d[0]
			endCol += d[1]
			if !inBounds(endRow, endCol) {
				break
			}
			cell := b.Cells[endRow][endCol]
			if cell == 0 {
				break
			}
			if cell == int8(turn) {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		curRow, curCol := row, col
		for curRow != endRow || curCol != endCol {
			b.Cells[curRow][curCol] = int8(turn)
			addDisc(b, turn, 1)
			addDisc(b, turn.Other(), -1)
			curRow += d[0]
			curCol += d[1]
		}
	}

	b.LastAction = action
	b.Turn = b.Turn.Other()
	return nil
}

func addDisc(b *game.Board, side player.Sign, delta int8) {
	if side == player.Min {
		b.Extra[extraWhiteIdx] += delta
	} else {
		b.Extra[extraBlackIdx] += delta
	}
}

// EnumerateLegal returns the non-pass legal moves if any exist, else
// the singleton pass action if the opponent can move, else no legal
// actions at all (terminal position).
func (Mechanics) EnumerateLegal(b *game.Board) []int {
	legal := make([]int, 0, M*N)
	opponent := int8(b.Turn.Other())
	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			if b.Cells[i][j] != 0 {
				continue
			}
			isLegal := false
			for _, d := range rays {
				row, col := i+d[0], j+d[1]
				if !inBounds(row, col) || b.Cells[row][col] != opponent {
					continue
				}
				for {
					row += d[0]
					col += d[1]
					if !inBounds(row, col) {
						break
					}
					cell := b.Cells[row][col]
					if cell == 0 {
						break
					}
					if cell == int8(b.Turn) {
						isLegal = true
						break
					}
				}
				if isLegal {
					break
				}
			}
			if isLegal {
				legal = append(legal, i*N+j)
			}
		}
	}

	if len(legal) > 0 {
		return legal
	}
	if hasAnyMove(b, b.Turn.Other()) {
		return []int{PassAction}
	}
	return legal
}

// ApplyPlayout flips captured discs but skips the incremental
// extra-info disc counts on this hot path; Terminal falls back to a
// direct board scan (see terminalDiscCount).
//
// Unlike the Connect-4/Gomoku ports, the legal-actions list cannot be
// compacted and carried to the next ply: Reversi legality depends on
// whose turn it is, so the returned list is re-enumerated for the
// opponent.
func (m Mechanics) ApplyPlayout(b *game.Board, action, ord int, legal []int) ([]int, error) {
	if action == PassAction {
		b.LastAction = action
		b.Turn = b.Turn.Other()
		return m.EnumerateLegal(b), nil
	}
	if action < 0 || action >= M*N || b.Cells[action/N][action%N] != 0 {
		return legal, errors.Wrapf(game.ErrContractViolation, "reversi: ApplyPlayout on illegal action %d", action)
	}

	i, j := action/N, action%N
	turn := b.Turn
	b.Cells[i][j] = int8(turn)

	for _, d := range rays {
		row, col := i+d[0], j+d[1]
		if !inBounds(row, col) || b.Cells[row][col] != int8(turn.Other()) {
			continue
		}
		for inBounds(row, col) && b.Cells[row][col] != 0 {
			if b.Cells[row][col] == int8(turn) {
				for {
					row -= d[0]
					col -= d[1]
					if row == i && col == j {
						break
					}
					b.Cells[row][col] = int8(turn)
				}
				break
			}
			row += d[0]
			col += d[1]
		}
	}

	b.LastAction = action
	b.Turn = b.Turn.Other()
	return m.EnumerateLegal(b), nil
}

// Terminal: the game continues while the side to move has a legal
// move, or while the side to move must pass but the last action was
// not itself a pass (the opponent still gets a turn next); otherwise
// the disc count decides the winner.
func (Mechanics) Terminal(b *game.Board) player.Outcome {
	if hasAnyMove(b, b.Turn) {
		return player.Ongoing
	}
	if b.LastAction != PassAction && hasAnyMove(b, b.Turn.Other()) {
		return player.Ongoing
	}

	white, black := terminalDiscCount(b)
	if black > white {
		return player.WinMax
	}
	if white > black {
		return player.LossMin
	}
	return player.Draw
}

// terminalDiscCount scans the board directly rather than trusting
// Extra, since ApplyPlayout (the rollout hot path) intentionally skips
// the extra-info bookkeeping that Apply performs.
func terminalDiscCount(b *game.Board) (white, black int) {
	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			switch b.Cells[i][j] {
			case int8(player.Min):
				white++
			case int8(player.Max):
				black++
			}
		}
	}
	return white, black
}

func (Mechanics) ActionName(action int) string {
	if action == PassAction {
		return "-"
	}
	i, j := action/N, action%N
	return fmt.Sprintf("%c%d", 'A'+j, i+1)
}

func (Mechanics) ActionIndex(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "-" {
		return PassAction, nil
	}
	name = strings.ToUpper(name)
	if len(name) < 2 {
		return 0, errors.Errorf("reversi: invalid action name %q", name)
	}
	col := int(name[0] - 'A')
	row, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, errors.Wrapf(err, "reversi: invalid action name %q", name)
	}
	if col < 0 || col >= N || row < 1 || row > M {
		return 0, errors.Errorf("reversi: action name %q out of range", name)
	}
	return (row-1)*N + col, nil
}

// NewOpeningBoard returns the standard 8x8 Reversi opening position
// (four center discs, black/Max to move).
func NewOpeningBoard() game.Board {
	var m Mechanics
	b := game.NewBoard(m.Shape())
	b.Cells[3][3] = int8(player.Min)
	b.Cells[3][4] = int8(player.Max)
	b.Cells[4][3] = int8(player.Max)
	b.Cells[4][4] = int8(player.Min)
	b.Turn = player.Max
	b.Extra[extraWhiteIdx] = 2
	b.Extra[extraBlackIdx] = 2
	return b
}
