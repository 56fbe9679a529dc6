package search

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/mctsnc/engine/pkg/arena"
)

// ActionInfo is one row of the actions_info table: a root child's
// accumulated statistics alongside its human-readable name.
type ActionInfo struct {
	Action  int32
	Name    string
	Visits  uint64
	Wins    uint64
	Q       float64
	UCB     float64
	WinFlag bool
}

// ActionsInfo reports one ActionInfo per allocated root child, in
// action-index order.
func (d *Driver) ActionsInfo() []ActionInfo {
	children := d.arena.Children(d.root)
	parentVisits := float64(d.arena.Visits(d.root))
	lnParentVisits := math.Log(parentVisits)

	infos := make([]ActionInfo, 0, len(children))
	for action, childIdx32 := range children {
		if childIdx32 == arena.Unallocated {
			continue
		}
		childIdx := int64(childIdx32)
		visits := d.arena.Visits(childIdx)
		wins := d.arena.Wins(childIdx)

		var q, ucb float64
		if visits > 0 {
			q = float64(wins) / float64(visits)
			ucb = q + d.config.ExplorationParam*math.Sqrt(lnParentVisits/float64(visits))
		} else {
			ucb = math.Inf(1)
		}

		infos = append(infos, ActionInfo{
			Action:  int32(action),
			Name:    d.mechanics.ActionName(action),
			Visits:  visits,
			Wins:    wins,
			Q:       q,
			UCB:     ucb,
			WinFlag: d.arena.WinFlag(childIdx),
		})
	}
	return infos
}

// PerformanceInfo is the per-call performance/accounting report:
// steps, playouts/sec, per-phase mean wall times, and tree size/depth
// statistics. Per-phase means are computed over the wall times
// recorded across every step of the Run call they summarize.
//
// The phase breakdown (MeanSelectWall..MeanBackupWall) is only
// meaningful for OCP variants, whose steps have a real barrier between
// phases; ACP's workers run select/expand/playout/backup fused inside
// one goroutine with no shared phase boundary; ACP reports zero for
// all four and relies on MeanStepWall instead.
type PerformanceInfo struct {
	Steps          int
	Elapsed        time.Duration
	PlayoutsPerSec float64

	MeanStepWall    time.Duration
	MeanSelectWall  time.Duration
	MeanExpandWall  time.Duration
	MeanPlayoutWall time.Duration
	MeanBackupWall  time.Duration

	TreeSizeBefore int64
	TreeSizeAfter  int64
	MaxTreeDepth   int
}

// PerformanceInfo builds the report for the most recently completed Run
// call; treeSizeBefore is the caller-captured Arena().Len() taken
// before that Run call started.
func (d *Driver) PerformanceInfo(report Report, treeSizeBefore int64) PerformanceInfo {
	playoutsPerStep := float64(d.config.NTrees * d.config.NPlayouts)
	totalPlayouts := playoutsPerStep * float64(report.Steps)

	var playoutsPerSec float64
	if report.Elapsed > 0 {
		playoutsPerSec = totalPlayouts / report.Elapsed.Seconds()
	}

	return PerformanceInfo{
		Steps:           report.Steps,
		Elapsed:         report.Elapsed,
		PlayoutsPerSec:  playoutsPerSec,
		MeanStepWall:    meanDuration(d.stepSecs),
		MeanSelectWall:  meanDuration(d.selectSecs),
		MeanExpandWall:  meanDuration(d.expandSecs),
		MeanPlayoutWall: meanDuration(d.playoutSecs),
		MeanBackupWall:  meanDuration(d.backupSecs),
		TreeSizeBefore:  treeSizeBefore,
		TreeSizeAfter:   d.arena.Len(),
		MaxTreeDepth:    d.maxTreeDepth(),
	}
}

// maxTreeDepth computes the deepest allocated node. Bump allocation
// guarantees a parent's index is smaller than any of its children's,
// so one forward pass suffices.
func (d *Driver) maxTreeDepth() int {
	n := d.arena.Len()
	if n == 0 {
		return 0
	}
	depths := make([]int32, n)
	var deepest int32
	for idx := int64(1); idx < n; idx++ {
		parent := d.arena.ParentIndex(idx)
		if parent == arena.RootParent {
			continue
		}
		depths[idx] = depths[parent] + 1
		if depths[idx] > deepest {
			deepest = depths[idx]
		}
	}
	return int(deepest)
}

func meanDuration(samples []float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	return time.Duration(stat.Mean(samples, nil) * float64(time.Second))
}
