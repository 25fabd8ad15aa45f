package run

import (
	"fmt"

	"regnet/domain/core"
	"regnet/domain/network"
)

// Parameters records the settings a report was computed with
type Parameters struct {
	Method           string  `json:"method"`
	Backend          string  `json:"backend,omitempty"`
	Weight           float64 `json:"weight"`
	Lambda           float64 `json:"lambda"`
	PValueCutoff     float64 `json:"p_value_cutoff,omitempty"`
	RankTransform    bool    `json:"rank_transform"`
	MotifIncluded    bool    `json:"motif_included"`
	TransitionLambda float64 `json:"transition_lambda"`
	FallbackLambda   float64 `json:"fallback_lambda"`
	NullCount        int     `json:"null_count"`
	NullSeed         int64   `json:"null_seed"`
	Randomization    string  `json:"randomization"`
}

// RunFingerprint ties a report to its exact inputs and settings for replay
type RunFingerprint struct {
	InputHash   core.Hash `json:"input_hash"`
	Seed        int64     `json:"seed"`
	CodeVersion string    `json:"code_version"`
	Fingerprint core.Hash `json:"fingerprint"`
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(inputHash core.Hash, params Parameters, codeVersion string) RunFingerprint {
	data := fmt.Sprintf("input:%s|params:%+v|code:%s", inputHash, params, codeVersion)
	return RunFingerprint{
		InputHash:   inputHash,
		Seed:        params.NullSeed,
		CodeVersion: codeVersion,
		Fingerprint: core.NewHash([]byte(data)),
	}
}

// Report is the output of one analysis run: both inferred networks, the
// observed transition and its significance against the null ensemble.
type Report struct {
	ID          core.RunID     `json:"id"`
	CreatedAt   core.Timestamp `json:"created_at"`
	Fingerprint RunFingerprint `json:"fingerprint"`
	Parameters  Parameters     `json:"parameters"`

	Baseline   *network.InferredNetwork  `json:"baseline"`
	Alternate  *network.InferredNetwork  `json:"alternate"`
	Transition *network.TransitionMatrix `json:"transition"`

	NullSize     int                   `json:"null_size"`
	NullFailures []network.NullFailure `json:"null_failures,omitempty"`

	// Significance matrices are nil when no null ensemble was requested
	ZScores       *network.Matrix `json:"z_scores,omitempty"`
	NormalPValues *network.Matrix `json:"normal_p_values,omitempty"`
	EmpiricalP    *network.Matrix `json:"empirical_p_values,omitempty"`

	DurationMillis int64 `json:"duration_ms"`
}

// Summary is the listing view of a stored report
type Summary struct {
	ID        core.RunID     `json:"id" db:"id"`
	CreatedAt core.Timestamp `json:"created_at" db:"created_at"`
	Method    string         `json:"method" db:"method"`
	NullSize  int            `json:"null_size" db:"null_size"`
}
