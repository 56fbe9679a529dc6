package search

import (
	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/player"
)

// flattenBoard packs a game.Board's 2-D cells into the row-major flat
// byte layout the arena stores as a node's board snapshot.
func flattenBoard(b *game.Board) []int8 {
	if len(b.Cells) == 0 {
		return nil
	}
	n := len(b.Cells[0])
	flat := make([]int8, len(b.Cells)*n)
	for i, row := range b.Cells {
		copy(flat[i*n:(i+1)*n], row)
	}
	return flat
}

// unflattenBoard reconstructs a game.Board from a node's stored flat
// board_snapshot, extra_info, turn, and last_action. Used whenever a
// phase kernel needs to call into game.Mechanics, which operates on
// the 2-D Board shape.
func unflattenBoard(flat []int8, shape game.Shape, extra []int8, turn player.Sign, lastAction int32) game.Board {
	cells := make([][]int8, shape.M)
	for i := 0; i < shape.M; i++ {
		cells[i] = append([]int8(nil), flat[i*shape.N:(i+1)*shape.N]...)
	}
	return game.Board{
		Cells:      cells,
		Extra:      append([]int8(nil), extra...),
		Turn:       turn,
		LastAction: int(lastAction),
	}
}
