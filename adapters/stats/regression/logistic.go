// Package regression provides the deterministic fitting routines used by the
// inference and transition estimators: binomial regression with a logistic
// link fitted by iteratively reweighted least squares (optionally with an L2
// penalty), and ordinary or ridge least squares.
package regression

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"regnet/domain/core"
)

// Penalty selects the regularization applied to non-intercept coefficients
type Penalty int

const (
	PenaltyNone Penalty = iota
	PenaltyL2
)

func (p Penalty) String() string {
	switch p {
	case PenaltyNone:
		return "none"
	case PenaltyL2:
		return "l2"
	default:
		return fmt.Sprintf("penalty(%d)", int(p))
	}
}

// probability clamp keeping IRLS weights strictly positive
const muEpsilon = 1e-10

// information matrices with a larger condition number are treated as singular
const maxCondition = 1e12

// LogisticConfig controls a logistic fit
type LogisticConfig struct {
	Penalty Penalty
	// Lambda is the L2 penalty strength; ignored for PenaltyNone
	Lambda float64
	// MaxIterations bounds IRLS steps; exceeding it is a ConvergenceError
	MaxIterations int
	// Tolerance on the relative change in deviance
	Tolerance float64
	// Timeout bounds wall time per fit; zero disables
	Timeout time.Duration
	// Entity labels errors, e.g. the gene being fitted
	Entity string
}

// DefaultLogisticConfig returns ridge-penalized IRLS settings
func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{
		Penalty:       PenaltyL2,
		Lambda:        1.0,
		MaxIterations: 50,
		Tolerance:     1e-8,
	}
}

// LogisticFit holds fitted coefficients. Index 0 is the intercept.
type LogisticFit struct {
	Coefficients []float64
	StdErrors    []float64
	PValues      []float64
	Iterations   int
	Deviance     float64
}

// FitLogistic fits P(y=1) = sigmoid(b0 + x·b) by IRLS. x is n×p without an
// intercept column; y holds n values in {0,1}. The solver is deterministic.
//
// It returns a *core.ConvergenceError when the iteration or time budget is
// exhausted, or when the weighted information matrix is singular.
func FitLogistic(x mat.Matrix, y []float64, cfg LogisticConfig) (*LogisticFit, error) {
	n, p := x.Dims()
	if len(y) != n {
		return nil, core.NewValidationError(core.KindShapeMismatch, "response has %d values for %d observations", len(y), n)
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultLogisticConfig().MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultLogisticConfig().Tolerance
	}
	lambda := 0.0
	if cfg.Penalty == PenaltyL2 {
		lambda = cfg.Lambda
	}

	design := withIntercept(x)
	k := p + 1
	beta := mat.NewVecDense(k, nil)
	dev := penalizedDeviance(design, y, beta, lambda)

	start := time.Now()
	converged := false
	iter := 0
	for iter = 1; iter <= cfg.MaxIterations; iter++ {
		if cfg.Timeout > 0 && time.Since(start) > cfg.Timeout {
			return nil, core.NewConvergenceError(cfg.Entity, iter-1, fmt.Sprintf("time budget %s exhausted", cfg.Timeout))
		}

		eta := linearPredictor(design, beta)
		info, rhs := weightedSystem(design, y, eta, lambda)

		var chol mat.Cholesky
		if ok := chol.Factorize(info); !ok || chol.Cond() > maxCondition {
			return nil, core.NewConvergenceError(cfg.Entity, iter, "information matrix is singular")
		}
		next := mat.NewVecDense(k, nil)
		if err := chol.SolveVecTo(next, rhs); err != nil {
			return nil, core.NewConvergenceError(cfg.Entity, iter, fmt.Sprintf("solve failed: %v", err))
		}
		if !finite(next.RawVector().Data) {
			return nil, core.NewConvergenceError(cfg.Entity, iter, "coefficients diverged")
		}

		nextDev := penalizedDeviance(design, y, next, lambda)
		beta = next
		if math.Abs(nextDev-dev)/(math.Abs(nextDev)+0.1) < cfg.Tolerance {
			dev = nextDev
			converged = true
			break
		}
		dev = nextDev
	}
	if !converged {
		return nil, core.NewConvergenceError(cfg.Entity, cfg.MaxIterations, "iteration budget exhausted")
	}

	fit := &LogisticFit{
		Coefficients: append([]float64(nil), beta.RawVector().Data...),
		Iterations:   iter,
		Deviance:     dev,
	}
	fit.StdErrors, fit.PValues = waldStatistics(design, y, beta, lambda)
	return fit, nil
}

// Predict returns sigmoid(b0 + x·b) for every row of x. Predictions are
// always computed from the coefficient vector, so pruned coefficients take
// effect.
func (f *LogisticFit) Predict(x mat.Matrix) []float64 {
	n, p := x.Dims()
	if p+1 != len(f.Coefficients) {
		panic(fmt.Sprintf("regression: %d covariates for %d coefficients", p, len(f.Coefficients)))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		eta := f.Coefficients[0]
		for j := 0; j < p; j++ {
			eta += f.Coefficients[j+1] * x.At(i, j)
		}
		out[i] = sigmoid(eta)
	}
	return out
}

// Prune returns a copy with every non-intercept coefficient whose p-value
// exceeds cutoff set to zero
func (f *LogisticFit) Prune(cutoff float64) *LogisticFit {
	out := *f
	out.Coefficients = append([]float64(nil), f.Coefficients...)
	for j := 1; j < len(out.Coefficients) && j < len(f.PValues); j++ {
		if f.PValues[j] > cutoff {
			out.Coefficients[j] = 0
		}
	}
	return &out
}

// ParsePenalty maps "none"/"glm" and "l2"/"ridge" to a Penalty
func ParsePenalty(s string) (Penalty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "glm":
		return PenaltyNone, nil
	case "l2", "ridge":
		return PenaltyL2, nil
	default:
		return PenaltyNone, fmt.Errorf("unknown penalty %q", s)
	}
}

func withIntercept(x mat.Matrix) *mat.Dense {
	n, p := x.Dims()
	d := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		d.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			d.Set(i, j+1, x.At(i, j))
		}
	}
	return d
}

func linearPredictor(design *mat.Dense, beta *mat.VecDense) *mat.VecDense {
	n, _ := design.Dims()
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(design, beta)
	return eta
}

// weightedSystem builds Dᵀ W D + λ·I' and Dᵀ W z for one IRLS step, where I'
// is the identity with the intercept entry zeroed.
func weightedSystem(design *mat.Dense, y []float64, eta *mat.VecDense, lambda float64) (*mat.SymDense, *mat.VecDense) {
	n, k := design.Dims()
	scaled := mat.NewDense(k, n, nil)
	wz := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		e := eta.AtVec(i)
		mu := clamp(sigmoid(e))
		w := mu * (1 - mu)
		z := e + (y[i]-mu)/w
		sw := math.Sqrt(w)
		for j := 0; j < k; j++ {
			scaled.Set(j, i, sw*design.At(i, j))
		}
		wz.SetVec(i, w*z)
	}

	info := mat.NewSymDense(k, nil)
	info.SymOuterK(1, scaled)
	for j := 1; j < k; j++ {
		info.SetSym(j, j, info.At(j, j)+lambda)
	}

	rhs := mat.NewVecDense(k, nil)
	rhs.MulVec(design.T(), wz)
	return info, rhs
}

func penalizedDeviance(design *mat.Dense, y []float64, beta *mat.VecDense, lambda float64) float64 {
	eta := linearPredictor(design, beta)
	dev := 0.0
	for i, yi := range y {
		mu := clamp(sigmoid(eta.AtVec(i)))
		dev -= 2 * (yi*math.Log(mu) + (1-yi)*math.Log(1-mu))
	}
	for j := 1; j < beta.Len(); j++ {
		b := beta.AtVec(j)
		dev += lambda * b * b
	}
	return dev
}

// waldStatistics returns standard errors and two-sided Wald p-values from
// the inverse information matrix at beta. Entries are NaN when the matrix
// cannot be inverted.
func waldStatistics(design *mat.Dense, y []float64, beta *mat.VecDense, lambda float64) ([]float64, []float64) {
	k := beta.Len()
	se := make([]float64, k)
	pv := make([]float64, k)

	info, _ := weightedSystem(design, y, linearPredictor(design, beta), lambda)
	var chol mat.Cholesky
	var cov mat.SymDense
	if ok := chol.Factorize(info); !ok || chol.InverseTo(&cov) != nil {
		for j := range se {
			se[j], pv[j] = math.NaN(), math.NaN()
		}
		return se, pv
	}

	for j := 0; j < k; j++ {
		se[j] = math.Sqrt(cov.At(j, j))
		z := beta.AtVec(j) / se[j]
		pv[j] = 2 * distuv.UnitNormal.Survival(math.Abs(z))
	}
	return se, pv
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func clamp(mu float64) float64 {
	return math.Min(math.Max(mu, muEpsilon), 1-muEpsilon)
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
