package api

import (
	"fmt"

	"regnet/domain/network"
	"regnet/internal/alignment"
	"regnet/internal/config"
	"regnet/internal/errors"
	"regnet/internal/inference"
	"regnet/internal/transition"
)

// optionsRequest overrides inference defaults; nil fields keep the default
type optionsRequest struct {
	Method        *string  `json:"method"`
	Backend       *string  `json:"backend"`
	Weight        *float64 `json:"weight"`
	Lambda        *float64 `json:"lambda"`
	PValueCutoff  *float64 `json:"p_value_cutoff"`
	RankTransform *bool    `json:"rank_transform"`
	MotifIncluded *bool    `json:"motif_included"`
	MaxIterations *int     `json:"max_iterations"`
}

type transitionOptionsRequest struct {
	Lambda         *float64 `json:"lambda"`
	FallbackLambda *float64 `json:"fallback_lambda"`
}

type nullRequest struct {
	Count   *int   `json:"count"`
	Workers *int   `json:"workers"`
	Seed    *int64 `json:"seed"`
}

type inferRequest struct {
	Motifs     []network.MotifEdge       `json:"motifs" binding:"required"`
	Expression *network.ExpressionMatrix `json:"expression" binding:"required"`
	Options    optionsRequest            `json:"options"`
}

type transitionRequest struct {
	Baseline  *network.InferredNetwork `json:"baseline" binding:"required"`
	Alternate *network.InferredNetwork `json:"alternate" binding:"required"`
	Options   transitionOptionsRequest `json:"options"`
}

type analysisRequest struct {
	Motifs        []network.MotifEdge       `json:"motifs" binding:"required"`
	Baseline      *network.ExpressionMatrix `json:"baseline" binding:"required"`
	Alternate     *network.ExpressionMatrix `json:"alternate" binding:"required"`
	Options       optionsRequest            `json:"options"`
	Transition    transitionOptionsRequest  `json:"transition"`
	Null          nullRequest               `json:"null"`
	Randomization *string                   `json:"randomization"`
}

func (r optionsRequest) apply(defaults config.AnalysisConfig) (inference.Options, error) {
	opts := defaults.InferenceOptions()
	if r.Method != nil {
		method, err := inference.ParseMethod(*r.Method)
		if err != nil {
			return opts, err
		}
		opts.Method = method
		opts.RankTransform = method == inference.Bere
	}
	if r.Backend != nil {
		backend, err := inference.ParseBackend(*r.Backend)
		if err != nil {
			return opts, err
		}
		opts.Backend = backend
	}
	if r.Weight != nil {
		opts.Weight = *r.Weight
	}
	if r.Lambda != nil {
		opts.Lambda = *r.Lambda
	}
	if r.PValueCutoff != nil {
		opts.PValueCutoff = *r.PValueCutoff
	}
	if r.RankTransform != nil {
		opts.RankTransform = *r.RankTransform
	}
	if r.MotifIncluded != nil {
		opts.MotifIncluded = *r.MotifIncluded
	}
	if r.MaxIterations != nil {
		opts.MaxIterations = *r.MaxIterations
	}
	return opts, nil
}

func (r transitionOptionsRequest) apply(defaults config.AnalysisConfig) transition.Options {
	opts := defaults.TransitionOptions()
	if r.Lambda != nil {
		opts.Lambda = *r.Lambda
	}
	if r.FallbackLambda != nil {
		opts.FallbackLambda = *r.FallbackLambda
	}
	return opts
}

func (r nullRequest) apply(defaults config.AnalysisConfig) (transition.NullConfig, error) {
	cfg := defaults.NullConfig()
	if r.Count != nil {
		cfg.Count = *r.Count
	}
	if r.Workers != nil {
		cfg.Workers = *r.Workers
	}
	if r.Seed != nil {
		cfg.Seed = *r.Seed
	}
	if cfg.Count < 0 || cfg.Workers < 1 {
		return cfg, errors.InvalidInput(fmt.Sprintf("null count %d and workers %d must be non-negative and positive", cfg.Count, cfg.Workers))
	}
	return cfg, nil
}

func randomizationOf(name *string, defaults config.AnalysisConfig) (alignment.Randomization, error) {
	if name == nil {
		return defaults.Randomization, nil
	}
	return alignment.ParseRandomization(*name)
}
