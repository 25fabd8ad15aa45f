package inference

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"regnet/adapters/stats/correlation"
	"regnet/adapters/stats/rank"
	"regnet/adapters/stats/regression"
	"regnet/domain/core"
	"regnet/internal/alignment"
)

type pearsonStrategy struct {
	opts Options
}

func (s *pearsonStrategy) Method() Method { return Pearson }

func (s *pearsonStrategy) Score(ctx context.Context, aligned *alignment.Aligned) (*Scores, error) {
	direct, err := DirectEvidence(aligned, s.opts.Correlation)
	if err != nil {
		return nil, err
	}
	return &Scores{Data: direct}, nil
}

type bereStrategy struct {
	opts Options
}

func (s *bereStrategy) Method() Method { return Bere }

func (s *bereStrategy) Score(ctx context.Context, aligned *alignment.Aligned) (*Scores, error) {
	w := s.opts.Weight
	tfs, genes := len(aligned.TFs()), len(aligned.Genes())
	consensus := mat.NewDense(tfs, genes, nil)
	out := &Scores{Data: consensus}

	if w < 1 {
		direct, err := DirectEvidence(aligned, s.opts.Correlation)
		if err != nil {
			return nil, err
		}
		if s.opts.RankTransform {
			direct = rank.Matrix(direct)
		}
		consensus.Scale(1-w, direct)
	}
	if w > 0 {
		indirect, fallback, err := IndirectEvidence(ctx, aligned, s.opts)
		if err != nil {
			return nil, err
		}
		if s.opts.RankTransform {
			indirect = rank.Matrix(indirect)
		}
		var scaled mat.Dense
		scaled.Scale(w, indirect)
		consensus.Add(consensus, &scaled)
		out.FallbackGenes = fallback
	}
	return out, nil
}

// DirectEvidence returns r² between every TF profile and every gene profile,
// TFs x genes, with undefined correlations scored 0
func DirectEvidence(aligned *alignment.Aligned, strategy correlation.Strategy) (*mat.Dense, error) {
	profiles, err := aligned.TFProfiles()
	if err != nil {
		return nil, err
	}
	r := correlation.Cross(profiles.Data, aligned.Expression().Data, strategy)
	r.MulElem(r, r)
	correlation.ZeroNaN(r)
	return r, nil
}

// IndirectEvidence fits, for every gene, a logistic regression of the gene's
// motif indicator over TFs on the TFs' expression profiles, and returns the
// fitted probabilities, TFs x genes. Genes whose fit fails are scored with
// their mean indicator and returned in the second result.
func IndirectEvidence(ctx context.Context, aligned *alignment.Aligned, opts Options) (*mat.Dense, []string, error) {
	opts = opts.withDefaults()
	profiles, err := aligned.TFProfiles()
	if err != nil {
		return nil, nil, err
	}
	design := designMatrix(profiles.Data)
	indicator := aligned.Network().Indicator()
	genes := aligned.Genes()
	tfs, _ := indicator.Dims()

	out := mat.NewDense(tfs, len(genes), nil)
	var fallback []string
	for j, gene := range genes {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		y := mat.Col(nil, j, indicator)
		pred, err := fitGene(design, y, opts, gene)
		if err != nil {
			if !core.IsConvergenceError(err) {
				return nil, nil, err
			}
			opts.Logger.Warn("gene %s: %v; scoring with mean motif indicator", gene, err)
			pred = constant(tfs, stat.Mean(y, nil))
			fallback = append(fallback, gene)
		}
		out.SetCol(j, pred)
		opts.Progress.Report("indirect evidence", j+1, len(genes))
	}
	return out, fallback, nil
}

func fitGene(design *mat.Dense, y []float64, opts Options, gene string) ([]float64, error) {
	if v, ok := constantResponse(y); ok {
		return constant(len(y), v), nil
	}
	if design == nil {
		// intercept-only model
		return constant(len(y), stat.Mean(y, nil)), nil
	}
	fit, err := regression.FitLogistic(design, y, opts.logisticConfig(gene))
	if err != nil {
		return nil, err
	}
	if opts.Backend == GLM && opts.PValueCutoff > 0 {
		fit = fit.Prune(opts.PValueCutoff)
	}
	return fit.Predict(design), nil
}

// designMatrix standardizes each condition column across TFs, imputes
// missing values with the column mean (0 after standardizing) and drops
// columns without variation. It returns nil when no column varies.
func designMatrix(profiles *mat.Dense) *mat.Dense {
	n, p := profiles.Dims()
	var cols [][]float64
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, profiles)
		observed := make([]float64, 0, n)
		for _, v := range col {
			if !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) < 2 {
			continue
		}
		mean, sd := stat.MeanStdDev(observed, nil)
		if sd == 0 || math.IsNaN(sd) {
			continue
		}
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = 0
				continue
			}
			col[i] = (v - mean) / sd
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return nil
	}
	out := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		out.SetCol(j, col)
	}
	return out
}

func constantResponse(y []float64) (float64, bool) {
	for _, v := range y[1:] {
		if v != y[0] {
			return 0, false
		}
	}
	return y[0], true
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
