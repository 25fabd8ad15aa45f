package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"regnet/domain/core"
	"regnet/domain/network"
	"regnet/domain/run"
	"regnet/internal"
	"regnet/internal/alignment"
	"regnet/internal/errors"
	"regnet/internal/inference"
	"regnet/internal/significance"
	"regnet/internal/transition"
	"regnet/ports"
)

// CodeVersion is recorded in every report fingerprint
const CodeVersion = "v0.1.0"

// AnalysisService runs complete analyses: both inferred networks, the
// observed transition, the null ensemble and significance scores
type AnalysisService struct {
	repo   ports.RunRepository
	logger *internal.Logger
}

// AnalysisRequest defines the inputs for one analysis
type AnalysisRequest struct {
	Edges     []network.MotifEdge
	Baseline  *network.ExpressionMatrix
	Alternate *network.ExpressionMatrix

	Inference     inference.Options
	Transition    transition.Options
	Null          transition.NullConfig
	Randomization alignment.Randomization
}

// NewAnalysisService creates an analysis service. repo may be nil, in which
// case reports are not persisted.
func NewAnalysisService(repo ports.RunRepository, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.NopLogger()
	}
	return &AnalysisService{repo: repo, logger: logger}
}

// Run executes the analysis. The real inference and the null ensemble run
// concurrently; significance is scored once both are done.
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*run.Report, error) {
	startTime := time.Now()

	if req.Inference.Logger == nil {
		req.Inference.Logger = s.logger
	}
	if req.Null.Logger == nil {
		req.Null.Logger = s.logger
	}
	engine, err := inference.NewEngine(req.Inference)
	if err != nil {
		return nil, err
	}

	inputs := transition.Inputs{Edges: req.Edges, Baseline: req.Baseline, Alternate: req.Alternate}
	var (
		baseline, alternate *network.InferredNetwork
		observed            *network.TransitionMatrix
		ensemble            *network.NullEnsemble
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if baseline, err = engine.Infer(gctx, req.Edges, req.Baseline); err != nil {
			return fmt.Errorf("baseline network: %w", err)
		}
		if alternate, err = engine.Infer(gctx, req.Edges, req.Alternate); err != nil {
			return fmt.Errorf("alternate network: %w", err)
		}
		if observed, err = transition.Estimate(baseline, alternate, req.Transition); err != nil {
			return fmt.Errorf("transition: %w", err)
		}
		return nil
	})
	if req.Null.Count > 0 {
		g.Go(func() error {
			var err error
			ensemble, err = transition.BuildNullEnsemble(gctx, inputs, transition.MemberOptions{
				Inference:     req.Inference,
				Transition:    req.Transition,
				Randomization: req.Randomization,
			}, req.Null)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	params := parametersOf(req)
	report := &run.Report{
		ID:          core.NewRunID(),
		CreatedAt:   core.Now(),
		Fingerprint: run.NewRunFingerprint(fingerprintInputs(req), params, CodeVersion),
		Parameters:  params,
		Baseline:    baseline,
		Alternate:   alternate,
		Transition:  observed,
	}

	if ensemble != nil {
		report.NullSize = ensemble.Size()
		report.NullFailures = ensemble.Failures
		if err := scoreSignificance(report, observed, ensemble); err != nil {
			if !core.IsValidationError(err) {
				return nil, err
			}
			s.logger.Warn("run %s: significance skipped: %v", report.ID, err)
		}
	}
	report.DurationMillis = time.Since(startTime).Milliseconds()

	if s.repo != nil {
		if err := s.repo.Save(ctx, report); err != nil {
			return nil, errors.Wrap(err, "failed to save analysis report")
		}
	}
	s.logger.Info("run %s: %d TFs, %d genes, null %d/%d in %dms",
		report.ID, len(observed.RowIDs), len(baseline.ColIDs), report.NullSize, req.Null.Count, report.DurationMillis)
	return report, nil
}

// Get returns a stored report
func (s *AnalysisService) Get(ctx context.Context, id core.RunID) (*run.Report, error) {
	if s.repo == nil {
		return nil, core.ErrRunNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns stored report summaries, newest first
func (s *AnalysisService) List(ctx context.Context, limit, offset int) ([]run.Summary, error) {
	if s.repo == nil {
		return []run.Summary{}, nil
	}
	return s.repo.List(ctx, limit, offset)
}

func scoreSignificance(report *run.Report, observed *network.TransitionMatrix, ensemble *network.NullEnsemble) error {
	z, err := significance.ZScores(observed, ensemble)
	if err != nil {
		return err
	}
	empirical, err := significance.EmpiricalPValues(observed, ensemble)
	if err != nil {
		return err
	}
	report.ZScores = z
	report.NormalPValues = significance.NormalPValues(z)
	report.EmpiricalP = empirical
	return nil
}

func parametersOf(req AnalysisRequest) run.Parameters {
	fallback := req.Transition.FallbackLambda
	if fallback == 0 {
		fallback = transition.DefaultFallbackLambda
	}
	return run.Parameters{
		Method:           req.Inference.Method.String(),
		Backend:          req.Inference.Backend.String(),
		Weight:           req.Inference.Weight,
		Lambda:           req.Inference.Lambda,
		PValueCutoff:     req.Inference.PValueCutoff,
		RankTransform:    req.Inference.RankTransform,
		MotifIncluded:    req.Inference.MotifIncluded,
		TransitionLambda: req.Transition.Lambda,
		FallbackLambda:   fallback,
		NullCount:        req.Null.Count,
		NullSeed:         req.Null.Seed,
		Randomization:    req.Randomization.String(),
	}
}

// fingerprintInputs hashes motif edges and both expression matrices
func fingerprintInputs(req AnalysisRequest) core.Hash {
	f := core.NewFingerprinter()
	for _, e := range req.Edges {
		f.Label(e.TF).Label(e.Gene).Value(e.Score)
	}
	for _, expr := range []*network.ExpressionMatrix{req.Baseline, req.Alternate} {
		if expr == nil {
			f.Label("")
			continue
		}
		for _, id := range expr.RowIDs {
			f.Label(id)
		}
		for _, id := range expr.ColIDs {
			f.Label(id)
		}
		for _, row := range expr.Rows() {
			for _, v := range row {
				f.Value(v)
			}
		}
	}
	return f.Sum()
}
