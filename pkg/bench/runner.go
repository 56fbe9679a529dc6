package bench

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mctsnc/engine/pkg/archive"
	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/player"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// MatchRunner plays NGames games between AgentA and AgentB,
// alternating who plays black each game, fanning work out across
// NWorkers goroutines.
type MatchRunner struct {
	Mechanics game.Mechanics
	NewBoard  func() game.Board
	AgentA    Agent
	AgentB    Agent
	NGames    int
	NWorkers  int
	Listener  Listener

	// PriorArchive, if set, supplies per-move forced step overrides
	// recorded by an earlier run. The runner reproduces step budgets
	// only; move choices follow from them when the caller's Agent
	// configuration pins its own seed.
	PriorArchive *archive.Archive

	mu    sync.Mutex
	stats Stats
}

// Run plays all NGames games and returns the completed experiment
// archive.
func (r *MatchRunner) Run() (*archive.Archive, error) {
	if r.NWorkers <= 0 {
		r.NWorkers = 1
	}
	if r.Listener == nil {
		r.Listener = NopListener{}
	}

	a := archive.New(archive.MatchupInfo{
		AIAShortname: r.AgentA.Name(),
		AIAInstance:  r.AgentA.Name(),
		AIBShortname: r.AgentB.Name(),
		AIBInstance:  r.AgentB.Name(),
		GameName:     fmt.Sprintf("%T", r.Mechanics),
		NGames:       r.NGames,
	})

	var group errgroup.Group
	perWorker := r.NGames / r.NWorkers
	rest := r.NGames % r.NWorkers
	next := 0
	for w := 0; w < r.NWorkers; w++ {
		n := perWorker
		if rest > 0 {
			n++
			rest--
		}
		start := next
		next += n
		w := w
		group.Go(func() error {
			return r.worker(w, start, n, a)
		})
	}
	if err := group.Wait(); err != nil {
		return a, errors.Wrap(err, "bench: match run failed")
	}

	r.finalizeStats(a)
	r.Listener.OnAllDone(&r.stats)
	return a, nil
}

func (r *MatchRunner) worker(workerID, startIdx, n int, a *archive.Archive) error {
	for i := 0; i < n; i++ {
		gameIndex := startIdx + i + 1
		aPlaysBlack := gameIndex%2 == 1
		var black, white Agent
		if aPlaysBlack {
			black, white = r.AgentA, r.AgentB
		} else {
			black, white = r.AgentB, r.AgentA
		}

		r.Listener.OnGameStart(workerID, gameIndex, r.NGames)
		info, result, err := r.playGame(workerID, gameIndex, black, white, aPlaysBlack)
		if err != nil {
			return errors.Wrapf(err, "bench: game %d", gameIndex)
		}

		r.mu.Lock()
		a.GamesInfos[strconv.Itoa(gameIndex)] = info
		r.mu.Unlock()
		r.stats.record(result)
		r.Listener.OnGameEnd(workerID, gameIndex, result)
	}
	return nil
}

func (r *MatchRunner) playGame(workerID, gameIndex int, black, white Agent, aPlaysBlack bool) (archive.GameInfo, GameResult, error) {
	board := r.NewBoard()
	info := archive.GameInfo{
		Black:        black.Name(),
		White:        white.Name(),
		InitialState: boardString(&board),
		MovesRounds:  make(map[string]archive.MovesRound),
	}

	ply := 0
	round := 1
	for {
		outcome := r.Mechanics.Terminal(&board)
		if outcome.Terminal() {
			result := outcomeToResult(outcome, aPlaysBlack)
			result.Plies = ply
			info.Outcome = int8(outcome)
			info.OutcomeMessage = outcome.String()
			return info, result, nil
		}

		mover, isBlack := black, true
		if ply%2 == 1 {
			mover, isBlack = white, false
		}

		forcedSteps := 0
		if r.PriorArchive != nil {
			if steps, ok := r.PriorArchive.ForcedStepLimit(gameIndex, round, isBlack); ok {
				forcedSteps = steps
			}
		}
		move, err := mover.Move(r.Mechanics, board, gameIndex, round, forcedSteps)
		if err != nil {
			return info, GameResult{}, err
		}
		if err := r.Mechanics.Apply(&board, int(move.Action)); err != nil {
			klog.Errorf("bench: game %d move %d: illegal action %d from %s", gameIndex, ply, move.Action, mover.Name())
			return info, GameResult{}, errors.Wrap(err, "bench: illegal move applied")
		}

		r.Listener.OnMove(workerID, gameIndex, ply, isBlack, move)
		mergeMovesRound(&info, round, isBlack, move)
		ply++
		if !isBlack {
			round++
		}
	}
}

// boardString renders a board row-wise: 'x' for Max, 'o' for Min, '.'
// for empty, rows separated by '/'.
func boardString(b *game.Board) string {
	var sb strings.Builder
	for i, row := range b.Cells {
		if i > 0 {
			sb.WriteByte('/')
		}
		for _, cell := range row {
			switch {
			case cell > 0:
				sb.WriteByte('x')
			case cell < 0:
				sb.WriteByte('o')
			default:
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}

func mergeMovesRound(info *archive.GameInfo, round int, black bool, move Move) {
	key := strconv.Itoa(round)
	mr := info.MovesRounds[key]
	if black {
		mr.BlackBestActionInfo = &move.ActionInfo
		mr.BlackPerformanceInfo = &move.Performance
	} else {
		mr.WhiteBestActionInfo = &move.ActionInfo
		mr.WhitePerformanceInfo = &move.Performance
	}
	info.MovesRounds[key] = mr
}

// outcomeToResult maps a terminal Outcome (always expressed as
// black=Max/white=Min) onto which configured agent (A or B) won, given
// which color that agent played this game.
func outcomeToResult(outcome player.Outcome, aPlaysBlack bool) GameResult {
	if outcome == player.Draw {
		return GameResult{Winner: WinnerNone, Draw: true}
	}
	blackWon := outcome == player.WinMax
	aWon := blackWon == aPlaysBlack
	winner := WinnerB
	if aWon {
		winner = WinnerA
	}
	return GameResult{Winner: winner, BlackWon: blackWon}
}

func (r *MatchRunner) finalizeStats(a *archive.Archive) {
	total := r.stats.Total()
	if total == 0 {
		return
	}
	a.Stats = archive.Stats{
		ScoreATotal:    float64(r.stats.AWins()) + 0.5*float64(r.stats.Draws()),
		ScoreBTotal:    float64(r.stats.BWins()) + 0.5*float64(r.stats.Draws()),
		WhiteWinsCount: r.stats.WhiteWins(),
		BlackWinsCount: r.stats.BlackWins(),
		DrawsCount:     r.stats.Draws(),
	}
	a.Stats.ScoreAMean = a.Stats.ScoreATotal / float64(total)
	a.Stats.ScoreBMean = a.Stats.ScoreBTotal / float64(total)
	a.Stats.WhiteWinsFreq = float64(a.Stats.WhiteWinsCount) / float64(total)
	a.Stats.BlackWinsFreq = float64(a.Stats.BlackWinsCount) / float64(total)
	a.Stats.DrawsFreq = float64(a.Stats.DrawsCount) / float64(total)
}
