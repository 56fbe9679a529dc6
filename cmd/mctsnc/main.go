// Command mctsnc is the thin CLI driver for the engine: it wires a
// game, two player configurations, a game count and an optional
// archive path, then prints the per-move and end-of-match reports.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mctsnc/engine/pkg/archive"
	"github.com/mctsnc/engine/pkg/bench"
	"github.com/mctsnc/engine/pkg/game"
	"github.com/mctsnc/engine/pkg/game/connect4"
	"github.com/mctsnc/engine/pkg/game/gomoku"
	"github.com/mctsnc/engine/pkg/game/reversi"
	"github.com/mctsnc/engine/pkg/mctsseq"
	"github.com/mctsnc/engine/pkg/search"
	"github.com/muesli/termenv"
	"k8s.io/klog/v2"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	winStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

func main() {
	klog.InitFlags(nil)

	gameName := flag.String("game", "connect4", "game to play: connect4, gomoku, reversi")
	variantName := flag.String("variant", "ocp_thrifty", "engine A variant: ocp_thrifty, ocp_prodigal, acp_thrifty, acp_prodigal, sequential")
	opponentName := flag.String("opponent", "sequential", "engine B variant, or \"human\"")
	nTrees := flag.Int("n_trees", 2, "number of OCP trees / ACP worker multiplier")
	nPlayouts := flag.Int("n_playouts", 64, "rollouts per tree per step")
	ucbC := flag.Float64("ucb_c", search.DefaultExplorationParam, "UCB1 exploration constant")
	timeLimit := flag.Duration("search_time_limit", time.Second, "wall-clock search budget per move")
	stepsLimit := flag.Int("search_steps_limit", 0, "hard step cap per move (0 = unbounded)")
	forcedSteps := flag.Int("forced_step_limit", 0, "replay override: exact step count per move, ignores time (0 = off)")
	vanilla := flag.Bool("vanilla", true, "discard the search tree between moves instead of rerooting onto the opponent's reply")
	memoryGiB := flag.Float64("device_memory", 2.0, "arena memory budget in GiB")
	seed := flag.Int64("seed", 1, "deterministic RNG seed")
	nGames := flag.Int("n_games", 1, "number of games to play")
	nWorkers := flag.Int("workers", 1, "worker goroutines for the match runner")
	archivePath := flag.String("archive", "", "path to write the experiment archive JSON (optional)")
	replayPath := flag.String("replay", "", "path to a prior archive to replay step budgets from (optional)")
	showMoves := flag.Bool("show_moves", false, "print every move's best-action report as it is played")
	flag.Parse()

	mechanics, newBoard, err := resolveGame(*gameName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mctsnc:", err)
		os.Exit(1)
	}

	budget := search.Budget{TimeLimit: *timeLimit, StepLimit: *stepsLimit, ForcedStepLimit: *forcedSteps}
	seqBudget := mctsseq.Budget{TimeLimit: *timeLimit, StepLimit: *stepsLimit, ForcedStepLimit: *forcedSteps}

	var prior *archive.Archive
	if *replayPath != "" {
		prior, err = archive.Load(*replayPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "mctsnc: loading replay archive:", err)
			os.Exit(1)
		}
	}

	memoryBytes := int64(*memoryGiB * float64(int64(1)<<30))

	agentA, err := buildAgent(*variantName, *nTrees, *nPlayouts, *ucbC, *seed, memoryBytes, *vanilla, budget, seqBudget)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mctsnc:", err)
		os.Exit(1)
	}

	var agentB bench.Agent
	if *opponentName == "human" {
		agentB = bench.NewHumanAgent("human", os.Stdin, os.Stdout)
	} else {
		agentB, err = buildAgent(*opponentName, *nTrees, *nPlayouts, *ucbC, *seed+1, memoryBytes, *vanilla, budget, seqBudget)
		if err != nil {
			fmt.Fprintln(os.Stderr, "mctsnc:", err)
			os.Exit(1)
		}
	}

	runner := &bench.MatchRunner{
		Mechanics:    mechanics,
		NewBoard:     newBoard,
		AgentA:       agentA,
		AgentB:       agentB,
		NGames:       *nGames,
		NWorkers:     *nWorkers,
		PriorArchive: prior,
	}
	if *showMoves {
		runner.Listener = moveListener{}
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("mctsnc: %s vs %s on %s (%d games)", *variantName, *opponentName, *gameName, *nGames)))

	result, err := runner.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "mctsnc: match failed:", err)
		os.Exit(1)
	}

	printSummary(result)

	if *archivePath != "" {
		if err := result.Save(*archivePath); err != nil {
			fmt.Fprintln(os.Stderr, "mctsnc: saving archive:", err)
			os.Exit(1)
		}
	}
}

func resolveGame(name string) (game.Mechanics, func() game.Board, error) {
	switch name {
	case "connect4":
		m := connect4.Mechanics{}
		return m, func() game.Board { return game.NewBoard(m.Shape()) }, nil
	case "gomoku":
		m := gomoku.Mechanics{}
		return m, func() game.Board { return game.NewBoard(m.Shape()) }, nil
	case "reversi":
		m := reversi.Mechanics{}
		return m, reversi.NewOpeningBoard, nil
	default:
		return nil, nil, fmt.Errorf("unknown game %q", name)
	}
}

func buildAgent(
	variantName string,
	nTrees, nPlayouts int,
	ucbC float64,
	seed int64,
	memoryBudgetBytes int64,
	vanilla bool,
	budget search.Budget,
	seqBudget mctsseq.Budget,
) (bench.Agent, error) {
	if variantName == "sequential" {
		return bench.NewSequentialAgent("sequential", ucbC, seed, seqBudget), nil
	}

	variant, err := parseVariant(variantName)
	if err != nil {
		return nil, err
	}
	cfg := search.Config{
		Variant:           variant,
		NTrees:            nTrees,
		NPlayouts:         nPlayouts,
		ExplorationParam:  ucbC,
		Seed:              seed,
		Vanilla:           vanilla,
		MemoryBudgetBytes: memoryBudgetBytes,
	}
	return bench.NewSearchAgent(variantName, cfg, budget), nil
}

func parseVariant(name string) (search.Variant, error) {
	switch name {
	case "ocp_thrifty":
		return search.OCPThrifty, nil
	case "ocp_prodigal":
		return search.OCPProdigal, nil
	case "acp_thrifty":
		return search.ACPThrifty, nil
	case "acp_prodigal":
		return search.ACPProdigal, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", name)
	}
}

// moveListener prints one line per played move: the chosen action's
// actions_info row plus the headline performance numbers.
type moveListener struct {
	bench.NopListener
}

func (moveListener) OnMove(workerID, gameIndex, ply int, black bool, m bench.Move) {
	side := "white"
	if black {
		side = "black"
	}
	line := fmt.Sprintf("game %d ply %2d %s: %-4s visits=%d wins=%d q=%.3f steps=%d playouts/s=%.0f depth=%d",
		gameIndex, ply, side,
		m.ActionInfo.Name, m.ActionInfo.Visits, m.ActionInfo.Wins, m.ActionInfo.Q,
		m.Performance.Steps, m.Performance.PlayoutsPerSec, m.Performance.MaxTreeDepth)
	if m.ActionInfo.WinFlag {
		line = winStyle.Render(line + "  [proven win]")
	}
	fmt.Println(line)
}

func printSummary(a *archive.Archive) {
	profile := termenv.ColorProfile()
	useColor := profile != termenv.Ascii

	fmt.Println(headerStyle.Render("RESULT"))
	fmt.Printf("games: %d  A-score: %.2f  B-score: %.2f  black-wins: %d  white-wins: %d  draws: %d\n",
		a.MatchupInfo.NGames, a.Stats.ScoreATotal, a.Stats.ScoreBTotal,
		a.Stats.BlackWinsCount, a.Stats.WhiteWinsCount, a.Stats.DrawsCount)

	if useColor && a.Stats.ScoreATotal > a.Stats.ScoreBTotal {
		fmt.Println(winStyle.Render(fmt.Sprintf("%s leads", a.MatchupInfo.AIAShortname)))
	} else if useColor && a.Stats.ScoreBTotal > a.Stats.ScoreATotal {
		fmt.Println(winStyle.Render(fmt.Sprintf("%s leads", a.MatchupInfo.AIBShortname)))
	}
}
