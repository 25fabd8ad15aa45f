// Package inference scores TF to gene regulatory edges from aligned motif and
// expression data.
package inference

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"regnet/domain/network"
	"regnet/internal/alignment"
)

// Scores is a TF x gene score matrix produced by a Strategy, in the row and
// column order of the aligned regulatory network
type Scores struct {
	Data          *mat.Dense
	FallbackGenes []string
}

// Strategy is one inference method
type Strategy interface {
	Method() Method
	Score(ctx context.Context, aligned *alignment.Aligned) (*Scores, error)
}

// Engine runs one configured inference strategy. It is safe for concurrent use.
type Engine struct {
	opts     Options
	strategy Strategy
}

// NewEngine validates opts and selects the strategy for opts.Method
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	var s Strategy
	switch opts.Method {
	case Pearson:
		s = &pearsonStrategy{opts: opts}
	case Bere:
		s = &bereStrategy{opts: opts}
	}
	return &Engine{opts: opts, strategy: s}, nil
}

// Options returns the engine configuration
func (e *Engine) Options() Options { return e.opts }

// Infer aligns edges with expr, without randomization, and infers a network
func (e *Engine) Infer(ctx context.Context, edges []network.MotifEdge, expr *network.ExpressionMatrix) (*network.InferredNetwork, error) {
	aligned, err := alignment.Align(edges, expr, alignment.Options{})
	if err != nil {
		return nil, err
	}
	return e.InferAligned(ctx, aligned)
}

// InferAligned infers a network from already aligned inputs. Rows are the
// sorted TFs and columns the sorted gene universe.
func (e *Engine) InferAligned(ctx context.Context, aligned *alignment.Aligned) (*network.InferredNetwork, error) {
	scores, err := e.strategy.Score(ctx, aligned)
	if err != nil {
		return nil, err
	}
	if e.opts.MotifIncluded {
		applyMotifBoost(scores.Data, aligned.Network().Indicator())
	}

	m, err := network.NewMatrix(aligned.TFs(), aligned.Genes(), scores.Data)
	if err != nil {
		return nil, err
	}
	e.opts.Logger.Debug("inferred %s network: %d TFs x %d genes, %d fallback genes",
		e.opts.Method, len(m.RowIDs), len(m.ColIDs), len(scores.FallbackGenes))
	return &network.InferredNetwork{
		Matrix:        *m,
		Method:        e.opts.Method.String(),
		MotifIncluded: e.opts.MotifIncluded,
		FallbackGenes: scores.FallbackGenes,
	}, nil
}

// Infer is the one-shot form of NewEngine followed by Engine.Infer
func Infer(ctx context.Context, edges []network.MotifEdge, expr *network.ExpressionMatrix, opts Options) (*network.InferredNetwork, error) {
	e, err := NewEngine(opts)
	if err != nil {
		return nil, err
	}
	return e.Infer(ctx, edges, expr)
}

// applyMotifBoost adds the consensus range to every motif-supported edge so
// those edges rank above every unsupported one
func applyMotifBoost(consensus, indicator *mat.Dense) {
	boost := mat.Max(consensus) - mat.Min(consensus)
	if boost == 0 {
		boost = 1
	}
	var scaled mat.Dense
	scaled.Scale(boost, indicator)
	consensus.Add(consensus, &scaled)
}
