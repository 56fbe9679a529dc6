// Package game defines the game-mechanics contract consumed by both
// the sequential oracle and the parallel search driver. Each concrete
// game (connect4, gomoku, reversi) implements Mechanics against its
// own Board representation.
package game

import (
	"github.com/mctsnc/engine/pkg/player"
	"github.com/pkg/errors"
)

// ErrContractViolation is wrapped around any call into a game
// mechanics port that violates its precondition, e.g. Apply on an
// illegal action. It marks a bug, not a recoverable condition, and
// aborts the search it occurred in.
var ErrContractViolation = errors.New("game: contract violation")

// Shape describes the immutable dimensions of a game: an M x N board, a
// maximum branching factor A (the size of the action index space,
// including any sentinel "pass" action), and E extra-info bytes.
type Shape struct {
	M, N, A, E int
}

// Board is the mutable per-state snapshot shared by every game: a signed
// byte board (0 empty, ±1 occupant), an optional flat extra-info buffer,
// the side to move and the index of the action that produced this state.
type Board struct {
	Cells      [][]int8
	Extra      []int8
	Turn       player.Sign
	LastAction int
}

// NewBoard allocates an empty M x N board with E extra-info bytes.
func NewBoard(shape Shape) Board {
	cells := make([][]int8, shape.M)
	for i := range cells {
		cells[i] = make([]int8, shape.N)
	}
	return Board{
		Cells:      cells,
		Extra:      make([]int8, shape.E),
		Turn:       player.Max,
		LastAction: -1,
	}
}

// Clone returns a deep copy sharing no memory with the receiver, so a
// node's snapshot never aliases its parent's.
func (b Board) Clone() Board {
	cells := make([][]int8, len(b.Cells))
	for i := range cells {
		cells[i] = append([]int8(nil), b.Cells[i]...)
	}
	return Board{
		Cells:      cells,
		Extra:      append([]int8(nil), b.Extra...),
		Turn:       b.Turn,
		LastAction: b.LastAction,
	}
}

// Mechanics is the pure, deterministic game-mechanics contract. Every
// method is a pure function of its arguments; implementations must not
// retain any mutable package-level state.
type Mechanics interface {
	// Shape returns this game's immutable dimensions.
	Shape() Shape

	// IsLegal is a total function over the action-index space
	// {0, ..., A-1}: true iff `action` may be applied to `b`.
	IsLegal(b *Board, action int) bool

	// Apply mutates b in place by playing `action` for the side to
	// move. Precondition: IsLegal(b, action). Violating it is a
	// ContractViolation.
	Apply(b *Board, action int) error

	// EnumerateLegal returns the (unordered) set of legal action
	// indices for the side to move, used by rollouts and by the
	// "prodigal" expansion discipline.
	EnumerateLegal(b *Board) []int

	// ApplyPlayout behaves like Apply but is optimized for the
	// rollout's hot loop: it may compact `legal` in place
	// (swap-and-pop semantics around `ord`, the index of `action`
	// within `legal`) so that the next ply does not need to rescan.
	// Returns the (possibly reordered, possibly shortened) slice.
	ApplyPlayout(b *Board, action, ord int, legal []int) ([]int, error)

	// Terminal returns the outcome of `b`, memoized by the caller;
	// it must be safe to call repeatedly with the same arguments.
	Terminal(b *Board) player.Outcome

	// ActionName and ActionIndex implement the game-specific,
	// human-readable action naming; they must be mutual inverses over
	// the valid index range.
	ActionName(action int) string
	ActionIndex(name string) (int, error)
}

// RandomLegalAction picks a uniformly random legal action from `legal`
// using the supplied source of randomness. Shared helper for sequential
// and parallel rollouts alike.
func RandomLegalAction(legal []int, intn func(n int) int) int {
	return legal[intn(len(legal))]
}
