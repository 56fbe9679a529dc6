// Package bench implements the N-game match runner: it pits two
// Agents against each other over a configured number of games,
// alternates who plays black, and folds the results into a pkg/archive
// experiment document.
package bench

import "sync/atomic"

// Stats accumulates win/draw/first-mover counts across a MatchRunner's
// games, safe for concurrent updates from a worker pool.
type Stats struct {
	aWins     atomic.Uint32
	bWins     atomic.Uint32
	draws     atomic.Uint32
	blackWins atomic.Uint32
	whiteWins atomic.Uint32
}

// Total returns the number of games recorded so far.
func (s *Stats) Total() int { return int(s.aWins.Load() + s.bWins.Load() + s.draws.Load()) }

// AWins, BWins, Draws, BlackWins, WhiteWins expose the current counts.
func (s *Stats) AWins() int     { return int(s.aWins.Load()) }
func (s *Stats) BWins() int     { return int(s.bWins.Load()) }
func (s *Stats) Draws() int     { return int(s.draws.Load()) }
func (s *Stats) BlackWins() int { return int(s.blackWins.Load()) }
func (s *Stats) WhiteWins() int { return int(s.whiteWins.Load()) }

func (s *Stats) record(result GameResult) {
	switch result.Winner {
	case WinnerA:
		s.aWins.Add(1)
	case WinnerB:
		s.bWins.Add(1)
	default:
		s.draws.Add(1)
	}
	if result.Winner != WinnerNone {
		if result.BlackWon {
			s.blackWins.Add(1)
		} else {
			s.whiteWins.Add(1)
		}
	}
}

// Winner identifies which configured agent (A or B) won a game,
// independent of which color each one played that round.
type Winner int

const (
	WinnerNone Winner = iota
	WinnerA
	WinnerB
)

// GameResult is the outcome of one played game from the match runner's
// point of view.
type GameResult struct {
	Winner   Winner
	BlackWon bool
	Draw     bool
	Plies    int
}
