package main

import (
	"github.com/spf13/cobra"

	"regnet/adapters/loader"
	"regnet/domain/network"
	"regnet/internal"
	"regnet/internal/alignment"
	"regnet/internal/config"
	"regnet/internal/inference"
	"regnet/internal/transition"
)

// inferenceFlags mirrors inference.Options on the command line
type inferenceFlags struct {
	method        string
	backend       string
	weight        float64
	lambda        float64
	pValueCutoff  float64
	rankTransform bool
	motifIncluded bool
	maxIterations int
}

func addInferenceFlags(cmd *cobra.Command, defaults config.AnalysisConfig) *inferenceFlags {
	f := &inferenceFlags{}
	opts := defaults.InferenceOptions()
	cmd.Flags().StringVar(&f.method, "method", opts.Method.String(), "Inference method: pearson|bere")
	cmd.Flags().StringVar(&f.backend, "backend", opts.Backend.String(), "Indirect evidence regression: ridge|glm")
	cmd.Flags().Float64Var(&f.weight, "weight", opts.Weight, "Weight of indirect evidence in [0,1]")
	cmd.Flags().Float64Var(&f.lambda, "lambda", opts.Lambda, "Ridge penalty for the logistic fits")
	cmd.Flags().Float64Var(&f.pValueCutoff, "p-value-cutoff", opts.PValueCutoff, "Zero GLM coefficients above this p-value (0 keeps all)")
	cmd.Flags().BoolVar(&f.rankTransform, "rank", opts.RankTransform, "Rank-transform evidence before combining")
	cmd.Flags().BoolVar(&f.motifIncluded, "motif-included", opts.MotifIncluded, "Boost scores of TF-gene pairs with a motif")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", opts.MaxIterations, "IRLS iteration limit")
	return f
}

func (f *inferenceFlags) options(cmd *cobra.Command, defaults config.AnalysisConfig, logger *internal.Logger) (inference.Options, error) {
	opts := defaults.InferenceOptions()
	method, err := inference.ParseMethod(f.method)
	if err != nil {
		return opts, err
	}
	backend, err := inference.ParseBackend(f.backend)
	if err != nil {
		return opts, err
	}
	opts.Method = method
	opts.Backend = backend
	opts.Weight = f.weight
	opts.Lambda = f.lambda
	opts.PValueCutoff = f.pValueCutoff
	opts.MotifIncluded = f.motifIncluded
	opts.MaxIterations = f.maxIterations
	opts.RankTransform = method == inference.Bere
	if cmd.Flags().Changed("rank") {
		opts.RankTransform = f.rankTransform
	}
	opts.Logger = logger
	opts.Progress = internal.NewProgressLogger(logger, 10)
	return opts, nil
}

type transitionFlags struct {
	lambda         float64
	fallbackLambda float64
}

func addTransitionFlags(cmd *cobra.Command, defaults config.AnalysisConfig) *transitionFlags {
	f := &transitionFlags{}
	opts := defaults.TransitionOptions()
	cmd.Flags().Float64Var(&f.lambda, "transition-lambda", opts.Lambda, "Ridge penalty for the transition fit (0 = least squares)")
	cmd.Flags().Float64Var(&f.fallbackLambda, "fallback-lambda", opts.FallbackLambda, "Ridge penalty used when least squares is rank deficient")
	return f
}

func (f *transitionFlags) options() transition.Options {
	return transition.Options{Lambda: f.lambda, FallbackLambda: f.fallbackLambda}
}

type nullFlags struct {
	count         int
	workers       int
	seed          int64
	randomization string
}

func addNullFlags(cmd *cobra.Command, defaults config.AnalysisConfig) *nullFlags {
	f := &nullFlags{}
	cmd.Flags().IntVar(&f.count, "null-count", defaults.NullCount, "Null ensemble size (0 disables significance)")
	cmd.Flags().IntVar(&f.workers, "workers", defaults.NullWorkers, "Concurrent null members")
	cmd.Flags().Int64Var(&f.seed, "seed", defaults.NullSeed, "Base seed; member i uses seed+i")
	cmd.Flags().StringVar(&f.randomization, "randomization", defaults.Randomization.String(), "Null randomization: within-gene|by-gene-label")
	return f
}

func (f *nullFlags) config(logger *internal.Logger) (transition.NullConfig, alignment.Randomization, error) {
	randomization, err := alignment.ParseRandomization(f.randomization)
	if err != nil {
		return transition.NullConfig{}, alignment.None, err
	}
	return transition.NullConfig{
		Count:    f.count,
		Workers:  f.workers,
		Seed:     f.seed,
		Progress: internal.NewProgressLogger(logger, 10),
		Logger:   logger,
	}, randomization, nil
}

// loadInputs reads motifs plus one expression matrix per path
func loadInputs(motifPath string, expressionPaths ...string) ([]network.MotifEdge, []*network.ExpressionMatrix, error) {
	edges, err := loader.ReadMotifEdges(motifPath)
	if err != nil {
		return nil, nil, err
	}
	matrices := make([]*network.ExpressionMatrix, len(expressionPaths))
	for i, path := range expressionPaths {
		if matrices[i], err = loader.ReadExpressionMatrix(path); err != nil {
			return nil, nil, err
		}
	}
	return edges, matrices, nil
}
