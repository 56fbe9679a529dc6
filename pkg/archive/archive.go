// Package archive models the persisted experiment archive: a JSON
// document describing a matchup, the machine it ran on, and per-game,
// per-move search reports, consumed by external plotting/reporting
// tooling.
package archive

import (
	"encoding/json"
	"os"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
)

// MatchupInfo names the two competing configurations, the game, and
// the planned game count.
type MatchupInfo struct {
	AIAShortname string `json:"ai_a_shortname"`
	AIAInstance  string `json:"ai_a_instance"`
	AIBShortname string `json:"ai_b_shortname"`
	AIBInstance  string `json:"ai_b_instance"`
	GameName     string `json:"game_name"`
	NGames       int    `json:"n_games"`
}

// SystemProps records the machine an experiment ran on. No GPU is
// involved here; GPUName is kept in the document (as "none") so older
// tooling that expects the key keeps working.
type SystemProps struct {
	CPUName string `json:"cpu_name"`
	NumCPU  int    `json:"num_cpu"`
	GOARCH  string `json:"goarch"`
	GOOS    string `json:"goos"`
	GPUName string `json:"gpu_name"`
}

// CurrentSystemProps captures this process's runtime environment.
func CurrentSystemProps() SystemProps {
	return SystemProps{
		CPUName: "unknown", // not introspected; left for the caller/CLI to override
		NumCPU:  runtime.NumCPU(),
		GOARCH:  runtime.GOARCH,
		GOOS:    runtime.GOOS,
		GPUName: "none",
	}
}

// ActionInfo is the serialized form of a best-action report, keyed by
// side in MovesRound.
type ActionInfo struct {
	Action  int32   `json:"action"`
	Name    string  `json:"name"`
	Visits  uint64  `json:"visits"`
	Wins    uint64  `json:"wins"`
	Q       float64 `json:"q"`
	UCB     float64 `json:"ucb"`
	WinFlag bool    `json:"win_flag"`
}

// PerformanceInfo is the serialized form of a search's performance
// report, in whole-number nanosecond durations so the archive
// round-trips exactly through JSON.
type PerformanceInfo struct {
	Steps             int     `json:"steps"`
	ElapsedNanos      int64   `json:"elapsed_ns"`
	PlayoutsPerSec    float64 `json:"playouts_per_sec"`
	MeanStepWallNs    int64   `json:"mean_step_wall_ns"`
	MeanSelectWallNs  int64   `json:"mean_select_wall_ns"`
	MeanExpandWallNs  int64   `json:"mean_expand_wall_ns"`
	MeanPlayoutWallNs int64   `json:"mean_playout_wall_ns"`
	MeanBackupWallNs  int64   `json:"mean_backup_wall_ns"`
	TreeSizeBefore    int64   `json:"tree_size_before"`
	TreeSizeAfter     int64   `json:"tree_size_after"`
	MaxTreeDepth      int     `json:"max_tree_depth"`
}

// MovesRound is one ply-pair of a game: the side(s) that moved this
// round and their best-action/performance reports. A side is nil when
// it did not move in this round (the game ended after black's move).
// A human mover's entries are present but zero-valued.
type MovesRound struct {
	BlackBestActionInfo  *ActionInfo      `json:"black_best_action_info,omitempty"`
	BlackPerformanceInfo *PerformanceInfo `json:"black_performance_info,omitempty"`
	WhiteBestActionInfo  *ActionInfo      `json:"white_best_action_info,omitempty"`
	WhitePerformanceInfo *PerformanceInfo `json:"white_performance_info,omitempty"`
}

// GameInfo is one played game: who played black/white, the initial
// state, its move-by-move rounds, and the final outcome.
type GameInfo struct {
	Black          string                `json:"black"`
	White          string                `json:"white"`
	InitialState   string                `json:"initial_state"`
	MovesRounds    map[string]MovesRound `json:"moves_rounds"`
	Outcome        int8                  `json:"outcome"`
	OutcomeMessage string                `json:"outcome_message"`
}

// Stats is the aggregate summary over all played games.
type Stats struct {
	ScoreATotal    float64 `json:"score_a_total"`
	ScoreAMean     float64 `json:"score_a_mean"`
	ScoreBTotal    float64 `json:"score_b_total"`
	ScoreBMean     float64 `json:"score_b_mean"`
	WhiteWinsCount int     `json:"white_wins_count"`
	WhiteWinsFreq  float64 `json:"white_wins_freq"`
	BlackWinsCount int     `json:"black_wins_count"`
	BlackWinsFreq  float64 `json:"black_wins_freq"`
	DrawsCount     int     `json:"draws_count"`
	DrawsFreq      float64 `json:"draws_freq"`
}

// Archive is the full persisted experiment document.
type Archive struct {
	MatchupInfo       MatchupInfo         `json:"matchup_info"`
	CPUAndSystemProps SystemProps         `json:"cpu_and_system_props"`
	GPUProps          SystemProps         `json:"gpu_props"`
	GamesInfos        map[string]GameInfo `json:"games_infos"`
	Stats             Stats               `json:"stats"`
}

// New starts an empty archive for a matchup.
func New(matchup MatchupInfo) *Archive {
	return &Archive{
		MatchupInfo:       matchup,
		CPUAndSystemProps: CurrentSystemProps(),
		GPUProps:          SystemProps{GPUName: "none"},
		GamesInfos:        make(map[string]GameInfo),
	}
}

// Save writes the archive as indented JSON to path.
func (a *Archive) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return errors.Wrap(err, "archive: marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "archive: write")
	}
	return nil
}

// Load reads a previously saved archive, for reproducing/replaying a
// recorded experiment.
func Load(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "archive: read")
	}
	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, "archive: unmarshal")
	}
	return &a, nil
}

// ForcedStepLimit looks up the recorded step count for round/side of a
// previously archived game, so a replay can reproduce the exact same
// search depth.
func (a *Archive) ForcedStepLimit(gameIndex, round int, black bool) (int, bool) {
	gi, ok := a.GamesInfos[strconv.Itoa(gameIndex)]
	if !ok {
		return 0, false
	}
	mr, ok := gi.MovesRounds[strconv.Itoa(round)]
	if !ok {
		return 0, false
	}
	if black {
		if mr.BlackPerformanceInfo == nil {
			return 0, false
		}
		return mr.BlackPerformanceInfo.Steps, true
	}
	if mr.WhitePerformanceInfo == nil {
		return 0, false
	}
	return mr.WhitePerformanceInfo.Steps, true
}
