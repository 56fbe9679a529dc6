// Package search implements the parallel MCTS driver and its four
// phase kernels (select/expand/playout/backup) across the OCP/ACP x
// thrifty/prodigal product.
//
// OCP groups workers into trees: each tree runs one selection
// trajectory per step, fans out into a batch of rollouts from the
// chosen leaf, and backs the aggregate up once, with the four phases
// separated by barriers. ACP workers are fully independent pipelines
// contending on the shared arena through per-node expansion locks and
// atomic statistics.
package search

import (
	"time"

	"github.com/mctsnc/engine/pkg/arena"
)

// Variant selects one of the four parallel MCTS strategies: the
// Cartesian product of playout-concurrency shape (OCP/ACP) and
// expansion discipline (Thrifty/Prodigal).
type Variant int

const (
	OCPThrifty Variant = iota
	OCPProdigal
	ACPThrifty
	ACPProdigal
)

func (v Variant) String() string {
	switch v {
	case OCPThrifty:
		return "ocp-thrifty"
	case OCPProdigal:
		return "ocp-prodigal"
	case ACPThrifty:
		return "acp-thrifty"
	case ACPProdigal:
		return "acp-prodigal"
	default:
		return "unknown"
	}
}

// IsOCP reports whether v uses the one-tree/one-trajectory coalesced
// playout shape.
func (v Variant) IsOCP() bool { return v == OCPThrifty || v == OCPProdigal }

// IsThrifty reports whether v expands one child per visit to an
// under-expanded node, rather than all legal children at once.
func (v Variant) IsThrifty() bool { return v == OCPThrifty || v == ACPThrifty }

// needsLocks reports whether the arena backing this variant must carry
// per-node mutexes (ACP only).
func (v Variant) needsLocks() bool { return !v.IsOCP() }

// DefaultExplorationParam matches the sequential oracle's UCB1 C.
const DefaultExplorationParam = 2.0

// Config parameterizes a Driver.
type Config struct {
	Variant Variant

	// NTrees is T: the number of OCP trees, or (together with
	// NPlayouts) the ACP worker-count multiplier.
	NTrees int

	// NPlayouts is the rollout fan-out per OCP trajectory; for ACP it
	// multiplies with NTrees to produce the total independent worker
	// count (each ACP worker performs exactly one rollout per step).
	NPlayouts int

	ExplorationParam float64
	Seed             int64

	// Vanilla discards the prior subtree between consecutive searches
	// of a played game instead of rerooting onto the opponent's
	// reply. The Driver itself exposes both Reset and Reroot; this
	// flag tells driver owners (pkg/bench's SearchAgent, the CLI)
	// which discipline to apply between moves.
	Vanilla bool

	// MemoryBudgetBytes sizes the arena; zero selects
	// arena.DefaultBudgetBytes (2 GiB).
	MemoryBudgetBytes int64
}

// workerCount is the number of independent select/expand/(playout)
// actors dispatched per step: T for OCP (each fanning into NPlayouts
// rollouts internally), T*NPlayouts for ACP (one rollout each).
func (c Config) workerCount() int {
	if c.Variant.IsOCP() {
		return c.NTrees
	}
	return c.NTrees * c.NPlayouts
}

// Budget bounds a Run call exactly like the sequential oracle's: a
// wall-clock limit, a step limit, or a forced step count that
// overrides both for reproducible replay.
type Budget struct {
	TimeLimit       time.Duration
	StepLimit       int
	ForcedStepLimit int
}

// Report summarizes a completed Run call.
type Report struct {
	Steps          int
	Elapsed        time.Duration
	RootVisits     int64
	ArenaExhausted bool
}

// arenaBudget returns the effective memory budget for Capacity/New.
func (c Config) arenaBudget() arena.Budget {
	bytes := c.MemoryBudgetBytes
	if bytes <= 0 {
		bytes = arena.DefaultBudgetBytes
	}
	return arena.Budget{Bytes: bytes}
}
