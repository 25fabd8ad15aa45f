// Package transition estimates the TF x TF matrix mapping a baseline
// network's regulatory profiles onto an alternate network's, and builds the
// permutation null ensemble used to judge it.
package transition

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"regnet/adapters/stats/regression"
	"regnet/domain/core"
	"regnet/domain/network"
)

// DefaultFallbackLambda is the ridge penalty applied when ordinary least
// squares has no unique solution
const DefaultFallbackLambda = 1e-3

// Options configures Estimate
type Options struct {
	// Lambda forces a ridge solution when positive; zero means ordinary least squares
	Lambda float64
	// FallbackLambda is used when the system is underdetermined or rank
	// deficient; zero selects DefaultFallbackLambda
	FallbackLambda float64
}

// DefaultOptions returns ordinary least squares with the default fallback
func DefaultOptions() Options {
	return Options{FallbackLambda: DefaultFallbackLambda}
}

func (o Options) validate() error {
	if o.Lambda < 0 || math.IsNaN(o.Lambda) {
		return core.NewValidationError(core.KindInvalidOption, "transition lambda must be non-negative, got %v", o.Lambda)
	}
	if o.FallbackLambda < 0 || math.IsNaN(o.FallbackLambda) {
		return core.NewValidationError(core.KindInvalidOption, "fallback lambda must be non-negative, got %v", o.FallbackLambda)
	}
	return nil
}

// Estimate returns T minimizing ||alternate - T·baseline||², a TF x TF
// matrix whose rows and columns follow baseline's TF order. Both networks
// must carry the same TF and gene sets; alternate is reordered to match.
func Estimate(baseline, alternate *network.InferredNetwork, opts Options) (*network.TransitionMatrix, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.FallbackLambda == 0 {
		opts.FallbackLambda = DefaultFallbackLambda
	}
	if baseline == nil || alternate == nil || baseline.Data == nil || alternate.Data == nil {
		return nil, core.NewValidationError(core.KindShapeMismatch, "transition needs two inferred networks")
	}
	if baseline.HasMissing() || alternate.HasMissing() {
		return nil, core.NewValidationError(core.KindMissingValues, "inferred networks must not contain missing values")
	}
	if !network.SameSet(baseline.TFs(), alternate.TFs()) {
		return nil, core.NewValidationError(core.KindIdentifierMismatch, "baseline and alternate networks have different TFs")
	}
	if !network.SameSet(baseline.Genes(), alternate.Genes()) {
		return nil, core.NewValidationError(core.KindIdentifierMismatch, "baseline and alternate networks have different genes")
	}
	alt, err := alternate.Reorder(baseline.RowIDs, baseline.ColIDs)
	if err != nil {
		return nil, err
	}

	tfs, genes := baseline.Dims()
	// rows are genes: baselineᵀ·Tᵀ ≈ alternateᵀ
	design := baseline.Data.T()
	response := alt.Data.T()

	lambda := opts.Lambda
	if lambda == 0 && genes < tfs {
		lambda = opts.FallbackLambda
	}
	if lambda == 0 {
		r, err := regression.Rank(design)
		if err != nil {
			return nil, err
		}
		if r < tfs {
			lambda = opts.FallbackLambda
		}
	}

	solution, err := regression.LeastSquares(design, response, lambda)
	if errors.Is(err, regression.ErrRankDeficient) {
		lambda = opts.FallbackLambda
		solution, err = regression.LeastSquares(design, response, lambda)
	}
	if err != nil {
		return nil, err
	}

	t := mat.DenseCopyOf(solution.T())
	m, err := network.NewMatrix(baseline.RowIDs, baseline.RowIDs, t)
	if err != nil {
		return nil, err
	}
	return &network.TransitionMatrix{
		Matrix:      *m,
		Regularized: lambda > 0,
		Lambda:      lambda,
	}, nil
}
