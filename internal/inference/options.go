package inference

import (
	"fmt"
	"math"
	"strings"
	"time"

	"regnet/adapters/stats/correlation"
	"regnet/adapters/stats/regression"
	"regnet/domain/core"
	"regnet/internal"
	"regnet/ports"
)

// Method is an inference strategy
type Method int

const (
	// Pearson scores each edge by the squared correlation of TF and gene expression
	Pearson Method = iota
	// Bere combines correlation evidence with motif-profile regression evidence
	Bere
)

func (m Method) String() string {
	switch m {
	case Pearson:
		return "pearson"
	case Bere:
		return "bere"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMethod maps a method name to a Method
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pearson":
		return Pearson, nil
	case "bere", "composite":
		return Bere, nil
	default:
		return Pearson, core.NewValidationError(core.KindInvalidOption, "unknown inference method %q", s)
	}
}

// Backend selects the regression used for indirect evidence
type Backend int

const (
	// Ridge is L2-penalized logistic regression
	Ridge Backend = iota
	// GLM is unpenalized logistic regression
	GLM
)

func (b Backend) String() string {
	switch b {
	case Ridge:
		return "ridge"
	case GLM:
		return "glm"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend maps "ridge" and "glm" to a Backend
func ParseBackend(s string) (Backend, error) {
	p, err := regression.ParsePenalty(s)
	if err != nil {
		return Ridge, core.NewValidationError(core.KindInvalidOption, "unknown regression backend %q", s)
	}
	if p == regression.PenaltyNone {
		return GLM, nil
	}
	return Ridge, nil
}

func (b Backend) penalty() regression.Penalty {
	if b == GLM {
		return regression.PenaltyNone
	}
	return regression.PenaltyL2
}

// Options configures an Engine
type Options struct {
	Method  Method
	Backend Backend
	// Weight of indirect evidence in the consensus; 0 is direct only, 1 indirect only
	Weight float64
	// Lambda is the ridge penalty strength
	Lambda float64
	// PValueCutoff zeroes GLM coefficients with larger Wald p-values; 0 disables
	PValueCutoff float64
	// RankTransform replaces each evidence matrix by its average ranks before combination
	RankTransform bool
	// MotifIncluded boosts motif-supported edges above the consensus range
	MotifIncluded bool

	MaxIterations int
	Tolerance     float64
	// FitTimeout bounds each per-gene fit; zero disables
	FitTimeout time.Duration

	Correlation correlation.Strategy
	Progress    ports.ProgressReporter
	Logger      *internal.Logger
}

// DefaultOptions returns options for the Bere method with the ridge backend
func DefaultOptions() Options {
	return Options{
		Method:        Bere,
		Backend:       Ridge,
		Weight:        1.0,
		Lambda:        1.0,
		RankTransform: true,
		MaxIterations: 50,
		Tolerance:     1e-8,
		Correlation:   correlation.Auto,
	}
}

func (o Options) validate() error {
	switch o.Method {
	case Pearson, Bere:
	default:
		return core.NewValidationError(core.KindInvalidOption, "unknown inference method %d", int(o.Method))
	}
	switch o.Backend {
	case Ridge, GLM:
	default:
		return core.NewValidationError(core.KindInvalidOption, "unknown regression backend %d", int(o.Backend))
	}
	if math.IsNaN(o.Weight) || o.Weight < 0 || o.Weight > 1 {
		return core.NewValidationError(core.KindInvalidOption, "weight must be in [0,1], got %v", o.Weight)
	}
	if math.IsNaN(o.Lambda) || o.Lambda < 0 {
		return core.NewValidationError(core.KindInvalidOption, "lambda must be non-negative, got %v", o.Lambda)
	}
	if math.IsNaN(o.PValueCutoff) || o.PValueCutoff < 0 || o.PValueCutoff > 1 {
		return core.NewValidationError(core.KindInvalidOption, "p-value cutoff must be in [0,1], got %v", o.PValueCutoff)
	}
	if o.MaxIterations < 0 {
		return core.NewValidationError(core.KindInvalidOption, "max iterations must be non-negative, got %d", o.MaxIterations)
	}
	if o.Tolerance < 0 || math.IsNaN(o.Tolerance) {
		return core.NewValidationError(core.KindInvalidOption, "tolerance must be non-negative, got %v", o.Tolerance)
	}
	if o.FitTimeout < 0 {
		return core.NewValidationError(core.KindInvalidOption, "fit timeout must be non-negative, got %s", o.FitTimeout)
	}
	return nil
}

func (o Options) logisticConfig(entity string) regression.LogisticConfig {
	return regression.LogisticConfig{
		Penalty:       o.Backend.penalty(),
		Lambda:        o.Lambda,
		MaxIterations: o.MaxIterations,
		Tolerance:     o.Tolerance,
		Timeout:       o.FitTimeout,
		Entity:        entity,
	}
}

func (o Options) withDefaults() Options {
	if o.Progress == nil {
		o.Progress = ports.NoProgress{}
	}
	if o.Logger == nil {
		o.Logger = internal.NopLogger()
	}
	return o
}
