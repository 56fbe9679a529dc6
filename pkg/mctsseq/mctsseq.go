// Package mctsseq is the single-threaded UCB1 reference engine: used
// for tests and as a reference player against the parallel variants in
// pkg/search. It is deliberately built on a plain pointer tree rather
// than the pkg/arena store the parallel driver shares, so the two
// implementations can serve as independent cross-checks.
package mctsseq

import (
	"math"
	"time"

	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/player"
	"github.com/mctsnc/engine/pkg/rng"
)

// DefaultExplorationParam is UCB1's C constant.
const DefaultExplorationParam = 2.0

type node struct {
	parent   *node
	children []*node
	action   int32
	turn     player.Sign
	outcome  player.Outcome
	board    game.Board

	nVisits int64
	nWins   int64
	winFlag bool
}

// Budget bounds a Search call: either a wall-clock limit, a step
// limit, or a forced step count that overrides both for reproducible
// replay.
type Budget struct {
	TimeLimit       time.Duration
	StepLimit       int
	ForcedStepLimit int
}

// Report summarizes one Search call for display/archival.
type Report struct {
	Steps      int
	Elapsed    time.Duration
	RootVisits int64
}

// Search is a single-threaded MCTS oracle rooted at one board state.
type Search struct {
	mechanics        game.Mechanics
	root             *node
	rnd              *rng.Source
	explorationParam float64
}

// New builds a search rooted at board, seeded deterministically from
// seed.
func New(mechanics game.Mechanics, board game.Board, seed int64) *Search {
	return &Search{
		mechanics:        mechanics,
		root:             newNode(nil, -1, board, mechanics),
		rnd:              rng.New(seed, 0),
		explorationParam: DefaultExplorationParam,
	}
}

// SetExplorationParam overrides UCB1's C constant.
func (s *Search) SetExplorationParam(c float64) {
	s.explorationParam = math.Max(0, c)
}

func newNode(parent *node, action int32, board game.Board, mechanics game.Mechanics) *node {
	return &node{
		parent:  parent,
		action:  action,
		turn:    board.Turn,
		outcome: mechanics.Terminal(&board),
		board:   board,
	}
}

// Run executes steps until budget is exhausted, then returns the best
// root action by the 3-level lexicographic comparator.
func (s *Search) Run(budget Budget) (int32, Report) {
	start := time.Now()
	deadline := start.Add(budget.TimeLimit)
	steps := 0

	for {
		if budget.ForcedStepLimit > 0 {
			if steps >= budget.ForcedStepLimit {
				break
			}
		} else {
			if budget.StepLimit > 0 && steps >= budget.StepLimit {
				break
			}
			if budget.TimeLimit > 0 && !time.Now().Before(deadline) {
				break
			}
		}
		s.step()
		steps++
	}

	return s.BestAction(), Report{
		Steps:      steps,
		Elapsed:    time.Since(start),
		RootVisits: s.root.nVisits,
	}
}

func (s *Search) step() {
	leaf := s.select_()
	seed := s.expand(leaf)
	outcome := s.playout(seed)
	s.backup(seed, outcome)
}

// select descends from the root using UCB1 until reaching a node with
// no children (a frontier, including terminals, which are never
// expanded).
func (s *Search) select_() *node {
	current := s.root
	for len(current.children) > 0 {
		current = s.selectChild(current)
	}
	return current
}

func (s *Search) selectChild(parent *node) *node {
	lnParentVisits := math.Log(float64(parent.nVisits))
	best := -1
	bestScore := math.Inf(-1)

	for i, child := range parent.children {
		if child.nVisits == 0 {
			return child
		}
		ucb1 := float64(child.nWins)/float64(child.nVisits) +
			s.explorationParam*math.Sqrt(lnParentVisits/float64(child.nVisits))
		if ucb1 > bestScore {
			bestScore = ucb1
			best = i
		}
	}
	return parent.children[best]
}

// expand materializes all legal children of leaf at once if it is
// non-terminal and unexpanded, then returns the playout seed: one
// child chosen uniformly at random, or leaf itself if it is
// terminal.
func (s *Search) expand(leaf *node) *node {
	if leaf.outcome != player.Ongoing {
		return leaf
	}

	legal := s.mechanics.EnumerateLegal(&leaf.board)
	leaf.children = make([]*node, len(legal))
	for i, action := range legal {
		childBoard := leaf.board.Clone()
		_ = s.mechanics.Apply(&childBoard, action)
		child := newNode(leaf, int32(action), childBoard, s.mechanics)
		leaf.children[i] = child
		if child.outcome != player.Ongoing && player.Sign(child.outcome) == leaf.turn {
			// The move into child wins for the side that made it.
			child.winFlag = true
		}
	}

	if len(leaf.children) == 0 {
		return leaf
	}
	return leaf.children[s.rnd.Intn(len(leaf.children))]
}

// playout runs uniformly random self-play from seed to terminality,
// leaving the tree untouched: the playout's states are discarded, only
// the seed is kept.
func (s *Search) playout(seed *node) player.Outcome {
	if seed.outcome != player.Ongoing {
		return seed.outcome
	}

	board := seed.board.Clone()
	legal := s.mechanics.EnumerateLegal(&board)
	outcome := seed.outcome
	for outcome == player.Ongoing {
		if len(legal) == 0 {
			return s.mechanics.Terminal(&board)
		}
		ord := s.rnd.Intn(len(legal))
		action := legal[ord]
		var err error
		legal, err = s.mechanics.ApplyPlayout(&board, action, ord, legal)
		if err != nil {
			return s.mechanics.Terminal(&board)
		}
		outcome = s.mechanics.Terminal(&board)
	}
	return outcome
}

// backup walks from seed to the root, incrementing n_visits on every
// ancestor and n_wins on every ancestor whose side-that-moved-into-it
// benefited from outcome.
func (s *Search) backup(seed *node, outcome player.Outcome) {
	for n := seed; n != nil; n = n.parent {
		n.nVisits++
		if outcome != player.Draw && player.Sign(outcome) == n.turn.Other() {
			n.nWins++
		}
	}
}

// BestAction reduces over the root's children with the 3-level
// lexicographic comparator: win_flag beats none, then higher
// n_visits, then higher n_wins; ties keep the first (slot order).
func (s *Search) BestAction() int32 {
	var best *node
	for _, child := range s.root.children {
		if best == nil || better(child, best) {
			best = child
		}
	}
	if best == nil {
		return -1
	}
	return best.action
}

func better(a, b *node) bool {
	if a.winFlag != b.winFlag {
		return a.winFlag
	}
	if a.nVisits != b.nVisits {
		return a.nVisits > b.nVisits
	}
	return a.nWins > b.nWins
}

// RootVisits exposes the root's visit count for tests and reporting.
func (s *Search) RootVisits() int64 { return s.root.nVisits }

// ActionInfo is one row of the root's actions_info table, mirroring
// pkg/search.ActionInfo's shape so pkg/bench can report on either
// engine uniformly.
type ActionInfo struct {
	Action  int32
	Name    string
	Visits  uint64
	Wins    uint64
	Q       float64
	UCB     float64
	WinFlag bool
}

// ActionsInfo reports one ActionInfo per materialized root child, in
// slot order.
func (s *Search) ActionsInfo() []ActionInfo {
	lnParentVisits := math.Log(float64(s.root.nVisits))
	infos := make([]ActionInfo, 0, len(s.root.children))
	for _, child := range s.root.children {
		var q, ucb float64
		if child.nVisits > 0 {
			q = float64(child.nWins) / float64(child.nVisits)
			ucb = q + s.explorationParam*math.Sqrt(lnParentVisits/float64(child.nVisits))
		} else {
			ucb = math.Inf(1)
		}
		infos = append(infos, ActionInfo{
			Action:  child.action,
			Name:    s.mechanics.ActionName(int(child.action)),
			Visits:  uint64(child.nVisits),
			Wins:    uint64(child.nWins),
			Q:       q,
			UCB:     ucb,
			WinFlag: child.winFlag,
		})
	}
	return infos
}
