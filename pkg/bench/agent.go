package bench

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mctsnc/engine/pkg/archive"
	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/mctsseq"
	"github.com/mctsnc/engine/pkg/search"
	"github.com/pkg/errors"
)

// Move is one agent's contribution to a MovesRound: the chosen action
// plus its best-action and performance reports.
type Move struct {
	Action      int32
	ActionInfo  archive.ActionInfo
	Performance archive.PerformanceInfo
}

// Agent picks a move from a board position and reports on how it did
// so; implemented by a parallel search.Driver, the mctsseq.Search
// reference engine, or a human-input placeholder. forcedSteps > 0
// replays an archived step budget, overriding the agent's own
// time/step limits for this one move.
type Agent interface {
	Name() string
	Move(mechanics game.Mechanics, board game.Board, gameIndex, round, forcedSteps int) (Move, error)
}

// SearchAgent drives one pkg/search.Driver variant. The driver (and
// its preallocated arena) is built once on the first move and retained;
// between moves the arena is either reset (vanilla) or rerooted past
// the agent's own action and the opponent's reply. MatchRunner may
// interleave games from several workers onto one agent; the gameIndex
// check falls back to a reset whenever the retained tree belongs to a
// different game.
type SearchAgent struct {
	name   string
	config search.Config
	budget search.Budget

	mu         sync.Mutex
	driver     *search.Driver
	curGame    int
	lastAction int32
}

// NewSearchAgent builds a SearchAgent labeled name, using config/budget
// for every move.
func NewSearchAgent(name string, config search.Config, budget search.Budget) *SearchAgent {
	return &SearchAgent{name: name, config: config, budget: budget}
}

func (a *SearchAgent) Name() string { return a.name }

func (a *SearchAgent) Move(mechanics game.Mechanics, board game.Board, gameIndex, round, forcedSteps int) (Move, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	driver, err := a.driverFor(mechanics, board, gameIndex)
	if err != nil {
		return Move{}, errors.Wrap(err, "bench: SearchAgent.Move")
	}

	budget := a.budget
	if forcedSteps > 0 {
		budget.ForcedStepLimit = forcedSteps
	}
	treeSizeBefore := driver.Arena().Len()
	action, report, err := driver.Run(budget)
	if err != nil && !report.ArenaExhausted {
		// Arena exhaustion is non-fatal: the driver already truncated
		// the search and reduced over what it had.
		return Move{}, errors.Wrap(err, "bench: SearchAgent.Move")
	}
	if action < 0 {
		return Move{}, errors.New("bench: SearchAgent found no legal action")
	}
	a.lastAction = action

	perf := driver.PerformanceInfo(report, treeSizeBefore)
	var chosen archive.ActionInfo
	for _, info := range driver.ActionsInfo() {
		if info.Action == action {
			chosen = toArchiveActionInfo(info.Action, info.Name, info.Visits, info.Wins, info.Q, info.UCB, info.WinFlag)
			break
		}
	}
	return Move{
		Action:      action,
		ActionInfo:  chosen,
		Performance: toArchivePerformanceInfo(perf),
	}, nil
}

// driverFor returns the retained driver positioned at board, building
// it on first use. Vanilla (or a game switch) resets the arena; the
// root-reuse path promotes the subtree below the agent's own last
// action and the opponent's reply, falling back to a reset when either
// child was never materialized.
func (a *SearchAgent) driverFor(mechanics game.Mechanics, board game.Board, gameIndex int) (*search.Driver, error) {
	if a.driver == nil {
		driver, err := search.NewDriver(mechanics, board, a.config)
		if err != nil {
			return nil, err
		}
		a.driver = driver
		a.curGame = gameIndex
		return driver, nil
	}

	sameGame := gameIndex == a.curGame
	a.curGame = gameIndex
	if !a.config.Vanilla && sameGame {
		if a.driver.Reroot(a.lastAction) && a.driver.Reroot(int32(board.LastAction)) {
			return a.driver, nil
		}
	}
	if err := a.driver.Reset(board); err != nil {
		return nil, err
	}
	return a.driver, nil
}

// SequentialAgent drives the single-threaded mctsseq oracle, rebuilt
// fresh from the current board every move (the oracle has no reroot
// capability; it is a correctness reference, not a performance
// variant).
type SequentialAgent struct {
	name             string
	explorationParam float64
	seed             int64
	budget           mctsseq.Budget
}

// NewSequentialAgent builds a SequentialAgent labeled name.
func NewSequentialAgent(name string, explorationParam float64, seed int64, budget mctsseq.Budget) *SequentialAgent {
	return &SequentialAgent{name: name, explorationParam: explorationParam, seed: seed, budget: budget}
}

func (a *SequentialAgent) Name() string { return a.name }

func (a *SequentialAgent) Move(mechanics game.Mechanics, board game.Board, gameIndex, round, forcedSteps int) (Move, error) {
	s := mctsseq.New(mechanics, board, a.seed+int64(gameIndex)*1_000+int64(round))
	if a.explorationParam > 0 {
		s.SetExplorationParam(a.explorationParam)
	}
	budget := a.budget
	if forcedSteps > 0 {
		budget.ForcedStepLimit = forcedSteps
	}
	action, report := s.Run(budget)
	if action < 0 {
		return Move{}, errors.New("bench: SequentialAgent found no legal action")
	}

	var chosen archive.ActionInfo
	for _, info := range s.ActionsInfo() {
		if info.Action == action {
			chosen = toArchiveActionInfo(info.Action, info.Name, info.Visits, info.Wins, info.Q, info.UCB, info.WinFlag)
			break
		}
	}
	return Move{
		Action:     action,
		ActionInfo: chosen,
		Performance: archive.PerformanceInfo{
			Steps:         report.Steps,
			ElapsedNanos:  report.Elapsed.Nanoseconds(),
			TreeSizeAfter: report.RootVisits,
		},
	}, nil
}

// HumanAgent reads a move by its game-specific action name from an
// input stream; a minimal stand-in for an interactive UI.
type HumanAgent struct {
	name   string
	reader *bufio.Reader
	writer io.Writer
}

// NewHumanAgent builds a HumanAgent that prompts on w and reads replies
// from r (typically os.Stdin/os.Stdout).
func NewHumanAgent(name string, r io.Reader, w io.Writer) *HumanAgent {
	return &HumanAgent{name: name, reader: bufio.NewReader(r), writer: w}
}

func (a *HumanAgent) Name() string { return a.name }

func (a *HumanAgent) Move(mechanics game.Mechanics, board game.Board, gameIndex, round, forcedSteps int) (Move, error) {
	legal := mechanics.EnumerateLegal(&board)
	for {
		fmt.Fprintf(a.writer, "%s to move, enter action (e.g. %q): ", a.name, mechanics.ActionName(legal[0]))
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return Move{}, errors.Wrap(err, "bench: HumanAgent.Move")
		}
		action, err := mechanics.ActionIndex(strings.TrimSpace(line))
		if err != nil || !mechanics.IsLegal(&board, action) {
			fmt.Fprintln(a.writer, "illegal move, try again")
			continue
		}
		return Move{Action: int32(action)}, nil
	}
}

func toArchiveActionInfo(action int32, name string, visits, wins uint64, q, ucb float64, winFlag bool) archive.ActionInfo {
	return archive.ActionInfo{
		Action:  action,
		Name:    name,
		Visits:  visits,
		Wins:    wins,
		Q:       q,
		UCB:     ucb,
		WinFlag: winFlag,
	}
}

func toArchivePerformanceInfo(p search.PerformanceInfo) archive.PerformanceInfo {
	return archive.PerformanceInfo{
		Steps:             p.Steps,
		ElapsedNanos:      p.Elapsed.Nanoseconds(),
		PlayoutsPerSec:    p.PlayoutsPerSec,
		MeanStepWallNs:    p.MeanStepWall.Nanoseconds(),
		MeanSelectWallNs:  p.MeanSelectWall.Nanoseconds(),
		MeanExpandWallNs:  p.MeanExpandWall.Nanoseconds(),
		MeanPlayoutWallNs: p.MeanPlayoutWall.Nanoseconds(),
		MeanBackupWallNs:  p.MeanBackupWall.Nanoseconds(),
		TreeSizeBefore:    p.TreeSizeBefore,
		TreeSizeAfter:     p.TreeSizeAfter,
		MaxTreeDepth:      p.MaxTreeDepth,
	}
}
