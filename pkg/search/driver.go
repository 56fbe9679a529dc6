package search

import (
	stderrors "errors"
	"math"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mctsnc/engine/pkg/arena"
	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/player"
	"github.com/mctsnc/engine/pkg/rng"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Driver owns one search's shared arena and dispatches OCP/ACP steps
// against it.
type Driver struct {
	mechanics game.Mechanics
	shape     game.Shape
	config    Config
	arena     *arena.Arena
	root      int64

	// legalCount caches the number of legal actions at each node, so
	// Thrifty variants can tell an under-expanded node (children_count
	// < legalCount) from a fully expanded one without rescanning the
	// board on every selection step. Unused (left zero) for Prodigal,
	// whose nodes are always expanded all-at-once.
	legalCount []int32

	// expandRNGs holds one persistent per-actor PRNG stream, seeded
	// deterministically from the root seed plus the actor id: indexed
	// by tree id for OCP (used for the expand phase's random
	// child/seed pick), by worker id for ACP (used for everything that
	// worker does, since an ACP worker runs its pipeline stages
	// sequentially within one goroutine).
	expandRNGs []*rng.Source

	// playoutRNGs[t][p] is the OCP rollout p's independent stream
	// within tree t. Unused for ACP, where a worker's single rollout
	// reuses its expandRNGs entry.
	playoutRNGs [][]*rng.Source

	// Per-step wall-time samples (seconds) feeding PerformanceInfo's
	// gonum/stat means; reset at the start of each Run call.
	stepSecs    []float64
	selectSecs  []float64
	expandSecs  []float64
	playoutSecs []float64
	backupSecs  []float64
}

// NewDriver allocates a capacity-sized arena for mechanics' shape and
// seeds the root node from board.
func NewDriver(mechanics game.Mechanics, board game.Board, config Config) (*Driver, error) {
	shape := mechanics.Shape()
	if config.ExplorationParam <= 0 {
		config.ExplorationParam = DefaultExplorationParam
	}

	capacity := arena.Capacity(shape, config.arenaBudget())
	if capacity <= 0 {
		return nil, errors.New("search: memory budget too small for this game's shape")
	}

	a := arena.New(shape, capacity, config.Variant.needsLocks())
	d := &Driver{
		mechanics:  mechanics,
		shape:      shape,
		config:     config,
		arena:      a,
		legalCount: make([]int32, capacity),
	}

	flat := flattenBoard(&board)
	extra := append([]int8(nil), board.Extra...)
	rootIdx, err := a.Alloc(arena.RootParent, -1, board.Turn, flat, extra)
	if err != nil {
		return nil, errors.Wrap(err, "search: failed to seed root")
	}
	outcome := mechanics.Terminal(&board)
	a.SetTerminalOutcome(rootIdx, outcome)
	if outcome == player.Ongoing && config.Variant.IsThrifty() {
		d.legalCount[rootIdx] = int32(len(mechanics.EnumerateLegal(&board)))
	}
	d.root = rootIdx

	d.initRNGs()
	return d, nil
}

func (d *Driver) initRNGs() {
	seed := d.config.Seed
	if d.config.Variant.IsOCP() {
		t := d.config.NTrees
		d.expandRNGs = make([]*rng.Source, t)
		d.playoutRNGs = make([][]*rng.Source, t)
		for tree := 0; tree < t; tree++ {
			d.expandRNGs[tree] = rng.New(seed, tree)
			d.playoutRNGs[tree] = make([]*rng.Source, d.config.NPlayouts)
			for p := 0; p < d.config.NPlayouts; p++ {
				d.playoutRNGs[tree][p] = rng.New(seed, 1_000_000+tree*d.config.NPlayouts+p)
			}
		}
		return
	}
	n := d.config.workerCount()
	d.expandRNGs = make([]*rng.Source, n)
	for w := 0; w < n; w++ {
		d.expandRNGs[w] = rng.New(seed, w)
	}
}

// RootIndex returns the arena index of the current root.
func (d *Driver) RootIndex() int64 { return d.root }

// Arena exposes the underlying arena for inspection (reports,
// diagnostics, tests).
func (d *Driver) Arena() *arena.Arena { return d.arena }

// Run executes search steps until budget is exhausted, then reduces
// over the root's children.
func (d *Driver) Run(budget Budget) (int32, Report, error) {
	start := time.Now()
	deadline := start.Add(budget.TimeLimit)
	steps := 0
	exhausted := false
	var errs *multierror.Error

	d.stepSecs = d.stepSecs[:0]
	d.selectSecs = d.selectSecs[:0]
	d.expandSecs = d.expandSecs[:0]
	d.playoutSecs = d.playoutSecs[:0]
	d.backupSecs = d.backupSecs[:0]

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
		if exhausted {
			// Once the arena overflows, later steps could only repeat
			// the same failure.
			break
		}

		stepStart := time.Now()
		var err error
		if d.config.Variant.IsOCP() {
			err = d.runOCPStep()
		} else {
			err = d.runACPStep()
		}
		d.stepSecs = append(d.stepSecs, time.Since(stepStart).Seconds())
		if debugInvariants {
			d.checkInvariants()
		}
		if err != nil {
			if stderrors.Is(err, arena.ErrArenaExhausted) {
				klog.Warningf("search: arena exhausted after %d steps (%s), truncating", steps, d.config.Variant)
				exhausted = true
				errs = multierror.Append(errs, err)
			} else {
				return -1, Report{}, errors.Wrap(err, "search: step failed")
			}
		}
		steps++
	}

	report := Report{
		Steps:          steps,
		Elapsed:        time.Since(start),
		RootVisits:     int64(d.arena.Visits(d.root)),
		ArenaExhausted: exhausted,
	}
	return d.bestAction(), report, errs.ErrorOrNil()
}

// bestAction reduces over the root's children with the same 3-level
// lexicographic comparator as the sequential oracle.
func (d *Driver) bestAction() int32 {
	children := d.arena.Children(d.root)
	best := int32(-1)
	var bestIdx int64 = -1
	for action, childIdx32 := range children {
		if childIdx32 == arena.Unallocated {
			continue
		}
		childIdx := int64(childIdx32)
		if bestIdx == -1 || d.better(childIdx, bestIdx) {
			bestIdx = childIdx
			best = int32(action)
		}
	}
	return best
}

func (d *Driver) better(a, b int64) bool {
	wa, wb := d.arena.WinFlag(a), d.arena.WinFlag(b)
	if wa != wb {
		return wa
	}
	va, vb := d.arena.Visits(a), d.arena.Visits(b)
	if va != vb {
		return va > vb
	}
	return d.arena.Wins(a) > d.arena.Wins(b)
}

// Reroot promotes the child reached by `action` to be the new root,
// preserving its subtree's statistics. Returns false if that child was
// never allocated (caller should fall back to a reset instead).
func (d *Driver) Reroot(action int32) bool {
	child := d.arena.Child(d.root, int(action))
	if child == arena.Unallocated {
		return false
	}
	d.arena.Reroot(int64(child))
	d.root = int64(child)
	return true
}

// Reset discards the whole arena and reseeds the root from board, for
// vanilla (non-root-reusing) play.
func (d *Driver) Reset(board game.Board) error {
	d.arena.Reset()
	flat := flattenBoard(&board)
	extra := append([]int8(nil), board.Extra...)
	rootIdx, err := d.arena.Alloc(arena.RootParent, -1, board.Turn, flat, extra)
	if err != nil {
		return errors.Wrap(err, "search: failed to reseed root")
	}
	outcome := d.mechanics.Terminal(&board)
	d.arena.SetTerminalOutcome(rootIdx, outcome)
	if outcome == player.Ongoing && d.config.Variant.IsThrifty() {
		d.legalCount[rootIdx] = int32(len(d.mechanics.EnumerateLegal(&board)))
	}
	d.root = rootIdx
	return nil
}

func (d *Driver) boardAt(idx int64) game.Board {
	return unflattenBoard(d.arena.Board(idx), d.shape, d.arena.Extra(idx), d.arena.Turn(idx), d.arena.LastAction(idx))
}

// selectChildUCB1 descends one ply via UCB1, ties among unvisited
// children broken by slot order.
func (d *Driver) selectChildUCB1(parent int64) int64 {
	children := d.arena.Children(parent)
	lnParentVisits := math.Log(float64(d.arena.Visits(parent)))
	best := int64(-1)
	bestScore := math.Inf(-1)

	for _, childIdx32 := range children {
		if childIdx32 == arena.Unallocated {
			continue
		}
		childIdx := int64(childIdx32)
		v := d.arena.Visits(childIdx)
		if v == 0 {
			return childIdx
		}
		w := d.arena.Wins(childIdx)
		ucb1 := float64(w)/float64(v) + d.config.ExplorationParam*math.Sqrt(lnParentVisits/float64(v))
		if ucb1 > bestScore {
			bestScore = ucb1
			best = childIdx
		}
	}
	return best
}

// selectFrom traverses from root to a frontier node: a terminal, or
// (Prodigal) an unexpanded node, or (Thrifty) a node with at least one
// untried legal action.
func (d *Driver) selectFrom(root int64) int64 {
	cur := root
	for {
		if d.arena.TerminalOutcome(cur) != player.Ongoing {
			return cur
		}
		cc := d.arena.ChildrenCount(cur)
		if d.config.Variant.IsThrifty() {
			if cc < d.legalCount[cur] {
				return cur
			}
		} else if cc == 0 {
			return cur
		}
		cur = d.selectChildUCB1(cur)
	}
}
