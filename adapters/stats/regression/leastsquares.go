package regression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"regnet/domain/core"
)

// ErrRankDeficient is returned by ordinary least squares when the design
// does not have full column rank, so the solution is not unique.
var ErrRankDeficient = errors.New("design matrix is rank deficient")

// rankTolerance is the relative singular value cutoff used to decide rank
const rankTolerance = 1e-12

// LeastSquares returns X minimizing ||A·X - B||² + lambda·||X||².
//
// With lambda == 0 this is ordinary least squares solved through the SVD of
// A; it fails with ErrRankDeficient if A (m×k) has rank below k. With
// lambda > 0 the ridge normal equations (AᵀA + λI)·X = AᵀB are solved by
// Cholesky factorization, which always has a unique finite solution.
func LeastSquares(a, b mat.Matrix, lambda float64) (*mat.Dense, error) {
	m, k := a.Dims()
	mb, _ := b.Dims()
	if m != mb {
		return nil, core.NewValidationError(core.KindShapeMismatch, "design has %d rows, response has %d", m, mb)
	}
	if lambda < 0 {
		return nil, core.NewValidationError(core.KindInvalidOption, "ridge penalty must be non-negative, got %g", lambda)
	}
	if lambda == 0 {
		return ordinary(a, b, k)
	}
	return ridge(a, b, k, lambda)
}

// Rank returns the numerical rank of a
func Rank(a mat.Matrix) (int, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return 0, core.NewConvergenceError("svd", 0, "SVD factorization failed")
	}
	return svd.Rank(rankTolerance), nil
}

func ordinary(a, b mat.Matrix, k int) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, core.NewConvergenceError("svd", 0, "SVD factorization failed")
	}
	rank := svd.Rank(rankTolerance)
	if rank < k {
		return nil, fmt.Errorf("%w: rank %d < %d unknowns", ErrRankDeficient, rank, k)
	}
	var x mat.Dense
	svd.SolveTo(&x, b, rank)
	return &x, nil
}

func ridge(a, b mat.Matrix, k int, lambda float64) (*mat.Dense, error) {
	gram := mat.NewSymDense(k, nil)
	gram.SymOuterK(1, a.T())
	for i := 0; i < k; i++ {
		gram.SetSym(i, i, gram.At(i, i)+lambda)
	}

	var atb mat.Dense
	atb.Mul(a.T(), b)

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, core.NewConvergenceError("ridge", 0, "regularized normal equations are not positive definite")
	}
	var x mat.Dense
	if err := chol.SolveTo(&x, &atb); err != nil {
		return nil, core.NewConvergenceError("ridge", 0, fmt.Sprintf("solve failed: %v", err))
	}
	return &x, nil
}
