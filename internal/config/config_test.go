package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regnet/internal/alignment"
	"regnet/internal/errors"
	"regnet/internal/inference"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("REGNET_METHOD", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, inference.Bere, cfg.Analysis.Method)
	assert.Equal(t, inference.Ridge, cfg.Analysis.Backend)
	assert.Equal(t, 1.0, cfg.Analysis.Weight)
	assert.Equal(t, 100, cfg.Analysis.NullCount)
	assert.Equal(t, alignment.WithinGene, cfg.Analysis.Randomization)

	opts := cfg.Analysis.InferenceOptions()
	assert.True(t, opts.RankTransform)
	assert.Equal(t, 50, opts.MaxIterations)
	assert.Equal(t, 1e-3, cfg.Analysis.TransitionOptions().FallbackLambda)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/regnet")
	t.Setenv("PORT", "9090")
	t.Setenv("REGNET_METHOD", "pearson")
	t.Setenv("REGNET_BACKEND", "glm")
	t.Setenv("REGNET_WEIGHT", "0.25")
	t.Setenv("REGNET_PVALUE_CUTOFF", "0.05")
	t.Setenv("REGNET_MOTIF_INCLUDED", "true")
	t.Setenv("REGNET_FIT_TIMEOUT", "2s")
	t.Setenv("REGNET_NULL_COUNT", "20")
	t.Setenv("REGNET_NULL_WORKERS", "8")
	t.Setenv("REGNET_NULL_SEED", "77")
	t.Setenv("REGNET_RANDOMIZATION", "by-gene-label")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/regnet", cfg.Database.URL)
	assert.Equal(t, "9090", cfg.Server.Port)

	a := cfg.Analysis
	assert.Equal(t, inference.Pearson, a.Method)
	assert.Equal(t, inference.GLM, a.Backend)
	assert.Equal(t, 0.25, a.Weight)
	assert.True(t, a.MotifIncluded)
	assert.Equal(t, 2*time.Second, a.FitTimeout)
	assert.Equal(t, alignment.ByGeneLabel, a.Randomization)

	null := a.NullConfig()
	assert.Equal(t, 20, null.Count)
	assert.Equal(t, 8, null.Workers)
	assert.Equal(t, int64(77), null.Seed)
	assert.False(t, a.InferenceOptions().RankTransform)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"REGNET_METHOD", "cd"},
		{"REGNET_BACKEND", "lasso"},
		{"REGNET_WEIGHT", "heavy"},
		{"REGNET_WEIGHT", "1.5"},
		{"REGNET_MAX_ITERATIONS", "many"},
		{"REGNET_FIT_TIMEOUT", "soon"},
		{"REGNET_NULL_WORKERS", "0"},
		{"REGNET_RANDOMIZATION", "everything"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
