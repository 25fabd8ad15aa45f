package transition

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"regnet/domain/core"
	"regnet/domain/network"
	"regnet/internal"
	"regnet/internal/alignment"
	"regnet/internal/inference"
	"regnet/ports"
)

// Inputs are the raw data of one analysis: shared motif edges and expression
// for the baseline and alternate conditions
type Inputs struct {
	Edges     []network.MotifEdge
	Baseline  *network.ExpressionMatrix
	Alternate *network.ExpressionMatrix
}

// MemberOptions configures how one null member is computed
type MemberOptions struct {
	Inference     inference.Options
	Transition    Options
	Randomization alignment.Randomization
}

// NullConfig sizes the null ensemble
type NullConfig struct {
	Count   int
	Workers int
	// Seed of member 0; member i uses Seed+i
	Seed     int64
	Progress ports.ProgressReporter
	Logger   *internal.Logger
}

// DefaultNullConfig returns 100 members on 4 workers
func DefaultNullConfig() NullConfig {
	return NullConfig{Count: 100, Workers: 4, Seed: 1}
}

// NullMember computes one null transition matrix: both expression matrices
// are randomized with seeds drawn from seed, both networks are inferred and
// the transition between them is estimated. It is a pure function of its
// arguments.
func NullMember(ctx context.Context, in Inputs, opts MemberOptions, seed int64) (*network.TransitionMatrix, error) {
	if opts.Randomization == alignment.None {
		return nil, core.NewValidationError(core.KindInvalidOption, "null members need a randomization")
	}
	engine, err := inference.NewEngine(opts.Inference)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	seeds := [2]int64{rng.Int63(), rng.Int63()}
	var nets [2]*network.InferredNetwork
	for k, expr := range []*network.ExpressionMatrix{in.Baseline, in.Alternate} {
		aligned, err := alignment.Align(in.Edges, expr, alignment.Options{Randomization: opts.Randomization, Seed: seeds[k]})
		if err != nil {
			return nil, err
		}
		if nets[k], err = engine.InferAligned(ctx, aligned); err != nil {
			return nil, err
		}
	}
	return Estimate(nets[0], nets[1], opts.Transition)
}

// BuildNullEnsemble computes cfg.Count null members on at most cfg.Workers
// goroutines. A member that fails is recorded in Failures and does not stop
// the others; only context cancellation aborts the build.
func BuildNullEnsemble(ctx context.Context, in Inputs, opts MemberOptions, cfg NullConfig) (*network.NullEnsemble, error) {
	if cfg.Count < 0 {
		return nil, core.NewValidationError(core.KindInvalidOption, "null count must be non-negative, got %d", cfg.Count)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Progress == nil {
		cfg.Progress = ports.NoProgress{}
	}
	if cfg.Logger == nil {
		cfg.Logger = internal.NopLogger()
	}
	// members report as a whole, not per gene
	opts.Inference.Progress = nil

	members := make([]*network.TransitionMatrix, cfg.Count)
	var (
		mu       sync.Mutex
		failures []network.NullFailure
		done     atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Count; i++ {
		seed := cfg.Seed + int64(i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			member, err := NullMember(gctx, in, opts, seed)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				cfg.Logger.Warn("null member %d (seed %d) failed: %v", i, seed, err)
				mu.Lock()
				failures = append(failures, network.NullFailure{Index: i, Seed: seed, Error: err.Error()})
				mu.Unlock()
			} else {
				members[i] = member
			}
			cfg.Progress.Report("null ensemble", int(done.Add(1)), cfg.Count)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("null ensemble: %w", err)
	}

	sort.Slice(failures, func(a, b int) bool { return failures[a].Index < failures[b].Index })
	ensemble := &network.NullEnsemble{Failures: failures}
	for _, m := range members {
		if m != nil {
			ensemble.Members = append(ensemble.Members, m)
		}
	}
	cfg.Logger.Info("null ensemble: %d members, %d failures", len(ensemble.Members), len(failures))
	return ensemble, nil
}
