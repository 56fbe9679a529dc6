// Package player holds the signed-player and outcome conventions shared
// by every other package: a game is always viewed from a symmetric,
// zero-sum perspective where -1 is the minimizer and +1 the maximizer.
package player

// Sign identifies a side to move: Min (-1) or Max (+1).
type Sign int8

const (
	Min Sign = -1
	Max Sign = 1
)

// Other returns the opposing side.
func (s Sign) Other() Sign {
	return -s
}

func (s Sign) String() string {
	if s == Min {
		return "min"
	}
	return "max"
}

// Outcome is the result of a finished (or ongoing) game, expressed in the
// same signed space as Sign: LossMin/WinMax denote who won, Draw is a
// tie, and Ongoing is the sentinel for a non-terminal state.
type Outcome int8

const (
	LossMin Outcome = -1
	Draw    Outcome = 0
	WinMax  Outcome = 1
	Ongoing Outcome = 2
)

func (o Outcome) String() string {
	switch o {
	case LossMin:
		return "loss_min"
	case Draw:
		return "draw"
	case WinMax:
		return "win_max"
	default:
		return "ongoing"
	}
}

// Terminal reports whether this outcome ends the game.
func (o Outcome) Terminal() bool {
	return o != Ongoing
}

// WinnerFor reports whether the outcome is a win for the given side.
func (o Outcome) WinnerFor(side Sign) bool {
	return o.Terminal() && Outcome(side) == o
}
