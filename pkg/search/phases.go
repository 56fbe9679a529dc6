package search

import (
	"sync"
	"time"

	"github.com/mctsnc/engine/pkg/arena"
	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/player"
	"github.com/mctsnc/engine/pkg/rng"
	"golang.org/x/sync/errgroup"
)

// expand materializes children of `frontier` per the variant's
// discipline and returns the playout seed. If frontier is already
// terminal, it is returned unchanged with no allocation (terminals are
// never expanded).
func (d *Driver) expand(frontier int64, rnd *rng.Source) (int64, error) {
	if d.arena.TerminalOutcome(frontier) != player.Ongoing {
		return frontier, nil
	}

	locked := d.config.Variant.needsLocks()
	if locked {
		d.arena.Lock(frontier)
		defer d.arena.Unlock(frontier)
	}

	board := d.boardAt(frontier)
	legal := d.mechanics.EnumerateLegal(&board)

	if d.config.Variant.IsThrifty() {
		return d.expandThrifty(frontier, &board, legal, rnd)
	}
	return d.expandProdigal(frontier, &board, legal, rnd)
}

func (d *Driver) expandThrifty(frontier int64, board *game.Board, legal []int, rnd *rng.Source) (int64, error) {
	children := d.arena.Children(frontier)
	cc := d.arena.ChildrenCount(frontier)

	if int(cc) >= len(legal) {
		// Another worker already finished expanding this node (ACP
		// double-check), or there is nothing left to try.
		if cc == 0 {
			return frontier, nil
		}
		return d.selectChildUCB1(frontier), nil
	}

	candidates := make([]int, 0, len(legal)-int(cc))
	for _, a := range legal {
		if children[a] == arena.Unallocated {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return d.selectChildUCB1(frontier), nil
	}

	action := candidates[rnd.Intn(len(candidates))]
	childIdx, err := d.allocChild(frontier, action, board)
	if err != nil {
		return frontier, err
	}
	return childIdx, nil
}

func (d *Driver) expandProdigal(frontier int64, board *game.Board, legal []int, rnd *rng.Source) (int64, error) {
	if d.arena.ChildrenCount(frontier) > 0 {
		// Already expanded, by an earlier tree this step (OCP) or a
		// racing worker (ACP): draw this caller's own seed from the
		// existing children.
		return d.randomChild(frontier, rnd), nil
	}

	created := make([]int64, 0, len(legal))
	for _, a := range legal {
		childIdx, err := d.allocChild(frontier, a, board)
		if err != nil {
			if len(created) == 0 {
				return frontier, err
			}
			break // partial expansion: arena exhausted mid-way, seed from what exists
		}
		created = append(created, childIdx)
	}
	if len(created) == 0 {
		return frontier, nil
	}
	return created[rnd.Intn(len(created))], nil
}

// allocChild applies `action` to a clone of board, allocates the
// resulting node, caches its terminal outcome, and publishes it into
// the parent's children slot. A child the parent's side wins by moving
// into gets its proven-win flag latched at birth.
func (d *Driver) allocChild(parent int64, action int, board *game.Board) (int64, error) {
	childBoard := board.Clone()
	if err := d.mechanics.Apply(&childBoard, action); err != nil {
		return 0, err
	}

	flat := flattenBoard(&childBoard)
	extra := append([]int8(nil), childBoard.Extra...)
	childIdx, err := d.arena.Alloc(parent, int32(action), childBoard.Turn, flat, extra)
	if err != nil {
		return 0, err
	}

	outcome := d.mechanics.Terminal(&childBoard)
	d.arena.SetTerminalOutcome(childIdx, outcome)
	if outcome == player.Ongoing && d.config.Variant.IsThrifty() {
		d.legalCount[childIdx] = int32(len(d.mechanics.EnumerateLegal(&childBoard)))
	}
	if outcome != player.Ongoing && player.Sign(outcome) == d.arena.Turn(parent) {
		// The move into this child wins for the side that made it (the
		// parent's side to move): latch the proven-win flag on the child
		// so the root reduction prefers it.
		d.arena.SetWinFlag(childIdx)
	}

	d.arena.SetChild(parent, action, int32(childIdx))
	return childIdx, nil
}

// randomChild picks a uniformly random allocated child of idx. Callers
// guarantee at least one child exists.
func (d *Driver) randomChild(idx int64, rnd *rng.Source) int64 {
	children := d.arena.Children(idx)
	allocated := make([]int64, 0, len(children))
	for _, c := range children {
		if c != arena.Unallocated {
			allocated = append(allocated, int64(c))
		}
	}
	return allocated[rnd.Intn(len(allocated))]
}

// playout runs one uniformly random rollout from seed to terminality,
// using a rollout-local board so concurrent rollouts from the same
// seed never alias state.
func (d *Driver) playout(seed int64, rnd *rng.Source) player.Outcome {
	outcome := d.arena.TerminalOutcome(seed)
	if outcome != player.Ongoing {
		return outcome
	}

	board := d.boardAt(seed)
	legal := d.mechanics.EnumerateLegal(&board)
	for outcome == player.Ongoing {
		if len(legal) == 0 {
			return d.mechanics.Terminal(&board)
		}
		ord := rnd.Intn(len(legal))
		action := legal[ord]
		var err error
		legal, err = d.mechanics.ApplyPlayout(&board, action, ord, legal)
		if err != nil {
			return d.mechanics.Terminal(&board)
		}
		outcome = d.mechanics.Terminal(&board)
	}
	return outcome
}

// backupAggregate folds an OCP trajectory's rollout outcomes into the
// ancestors of seed in one pass per node: visits grow by the rollout
// count, wins by however many outcomes favored the side that moved
// into that ancestor. Draws contribute to visits only.
func (d *Driver) backupAggregate(seed int64, nPlayouts, winsForMax, winsForMin int) {
	idx := seed
	for {
		turn := d.arena.Turn(idx)
		var deltaWins uint64
		if turn == player.Max {
			deltaWins = uint64(winsForMin)
		} else {
			deltaWins = uint64(winsForMax)
		}
		d.arena.AddVisitsWins(idx, uint64(nPlayouts), deltaWins)

		parent := d.arena.ParentIndex(idx)
		if parent == arena.RootParent {
			return
		}
		idx = parent
	}
}

// backupSingle folds one ACP rollout's outcome into the ancestors of
// seed with atomic fetch-adds.
func (d *Driver) backupSingle(seed int64, outcome player.Outcome) {
	idx := seed
	for {
		turn := d.arena.Turn(idx)
		var deltaWins uint64
		if outcome != player.Draw && player.Sign(outcome) == turn.Other() {
			deltaWins = 1
		}
		d.arena.AddVisitsWins(idx, 1, deltaWins)

		parent := d.arena.ParentIndex(idx)
		if parent == arena.RootParent {
			return
		}
		idx = parent
	}
}

// runOCPStep runs one OCP step: T trees each select independently
// (barrier), expand sequentially on the controller, fan out their
// rollouts, then back up.
func (d *Driver) runOCPStep() error {
	t := d.config.NTrees
	frontiers := make([]int64, t)

	selectStart := time.Now()
	var selectGroup errgroup.Group
	for tree := 0; tree < t; tree++ {
		tree := tree
		selectGroup.Go(func() error {
			frontiers[tree] = d.selectFrom(d.root)
			return nil
		})
	}
	_ = selectGroup.Wait()
	d.selectSecs = append(d.selectSecs, time.Since(selectStart).Seconds())

	// Expansion runs on the controller thread between the select and
	// playout barriers, so trees landing on the same frontier are
	// serviced one after another: under Thrifty each call synthesizes a
	// distinct untried child, under Prodigal the first call materializes
	// all children and later calls just draw their own seed.
	expandStart := time.Now()
	seeds := make([]int64, t)
	var firstExpandErr error
	for tree := 0; tree < t; tree++ {
		seed, err := d.expand(frontiers[tree], d.expandRNGs[tree])
		if err != nil {
			if firstExpandErr == nil {
				firstExpandErr = err
			}
			seed = frontiers[tree]
		}
		seeds[tree] = seed
	}
	d.expandSecs = append(d.expandSecs, time.Since(expandStart).Seconds())

	playoutStart := time.Now()
	outcomes := make([][]player.Outcome, t)
	var playoutGroup errgroup.Group
	for tree := 0; tree < t; tree++ {
		tree := tree
		playoutGroup.Go(func() error {
			results := make([]player.Outcome, d.config.NPlayouts)
			var inner errgroup.Group
			for p := 0; p < d.config.NPlayouts; p++ {
				p := p
				inner.Go(func() error {
					results[p] = d.playout(seeds[tree], d.playoutRNGs[tree][p])
					return nil
				})
			}
			_ = inner.Wait()
			outcomes[tree] = results
			return nil
		})
	}
	_ = playoutGroup.Wait()
	d.playoutSecs = append(d.playoutSecs, time.Since(playoutStart).Seconds())

	backupStart := time.Now()
	for tree := 0; tree < t; tree++ {
		winsForMax, winsForMin := 0, 0
		for _, o := range outcomes[tree] {
			switch o {
			case player.WinMax:
				winsForMax++
			case player.LossMin:
				winsForMin++
			}
		}
		d.backupAggregate(seeds[tree], len(outcomes[tree]), winsForMax, winsForMin)
	}
	d.backupSecs = append(d.backupSecs, time.Since(backupStart).Seconds())

	return firstExpandErr
}

// runACPStep runs one ACP step: T*NPlayouts independent workers each
// perform the full select/expand/playout/backup pipeline, contending
// on the shared arena only through per-node locks and atomics.
func (d *Driver) runACPStep() error {
	n := d.config.workerCount()
	var group errgroup.Group
	var mu sync.Mutex
	var firstErr error

	for w := 0; w < n; w++ {
		w := w
		group.Go(func() error {
			frontier := d.selectFrom(d.root)
			seed, err := d.expand(frontier, d.expandRNGs[w])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				seed = frontier
			}
			outcome := d.playout(seed, d.expandRNGs[w])
			d.backupSingle(seed, outcome)
			return nil
		})
	}
	_ = group.Wait()
	return firstErr
}
