package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"regnet/domain/network"
)

// NetworkGeneratorConfig configures the synthetic regulatory data generator
type NetworkGeneratorConfig struct {
	TFCount     int `json:"tf_count"`
	GeneCount   int `json:"gene_count"`
	SampleCount int `json:"sample_count"`
	// MotifDensity is the probability that a TF has a motif on a gene
	MotifDensity float64 `json:"motif_density"`
	// RewireRate is the fraction of regulatory effects that change in the alternate condition
	RewireRate  float64 `json:"rewire_rate"`
	NoiseSD     float64 `json:"noise_sd"`
	MissingRate float64 `json:"missing_rate"`
	Seed        int64   `json:"seed"`
}

// DefaultNetworkConfig returns a small dataset suitable for unit tests
func DefaultNetworkConfig() NetworkGeneratorConfig {
	return NetworkGeneratorConfig{
		TFCount:      6,
		GeneCount:    24,
		SampleCount:  10,
		MotifDensity: 0.35,
		RewireRate:   0.3,
		NoiseSD:      0.5,
		Seed:         42,
	}
}

// Dataset is a synthetic motif collection with expression for two conditions.
// Expression rows cover every gene and every TF.
type Dataset struct {
	Edges     []network.MotifEdge
	Baseline  *network.ExpressionMatrix
	Alternate *network.ExpressionMatrix
	TFs       []string
	Genes     []string
}

// NetworkDataGenerator produces deterministic synthetic regulatory data
type NetworkDataGenerator struct {
	config NetworkGeneratorConfig
	rng    *rand.Rand
}

// NewNetworkDataGenerator creates a generator seeded from config.Seed
func NewNetworkDataGenerator(config NetworkGeneratorConfig) *NetworkDataGenerator {
	return &NetworkDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the motif edges and both expression matrices. Every gene
// carries at least one motif, so the whole gene set survives alignment.
func (g *NetworkDataGenerator) Generate() (*Dataset, error) {
	c := g.config
	if c.TFCount < 1 || c.GeneCount < 1 || c.SampleCount < 1 {
		return nil, fmt.Errorf("generator needs at least one TF, gene and sample, got %d/%d/%d",
			c.TFCount, c.GeneCount, c.SampleCount)
	}

	tfs := make([]string, c.TFCount)
	for i := range tfs {
		tfs[i] = fmt.Sprintf("TF%02d", i+1)
	}
	genes := make([]string, c.GeneCount)
	for i := range genes {
		genes[i] = fmt.Sprintf("G%03d", i+1)
	}
	samples := make([]string, c.SampleCount)
	for i := range samples {
		samples[i] = fmt.Sprintf("S%02d", i+1)
	}

	edges, effects := g.motifs(tfs, genes)
	alternateEffects := g.rewire(effects)

	baseline, err := g.expression(tfs, genes, samples, effects)
	if err != nil {
		return nil, err
	}
	alternate, err := g.expression(tfs, genes, samples, alternateEffects)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		Edges:     edges,
		Baseline:  baseline,
		Alternate: alternate,
		TFs:       tfs,
		Genes:     genes,
	}, nil
}

// motifs draws motif edges and the regulatory effect sizes behind them,
// effects[tf][gene]
func (g *NetworkDataGenerator) motifs(tfs, genes []string) ([]network.MotifEdge, [][]float64) {
	effects := make([][]float64, len(tfs))
	for i := range effects {
		effects[i] = make([]float64, len(genes))
	}
	var edges []network.MotifEdge
	for j, gene := range genes {
		hit := false
		for i, tf := range tfs {
			if g.rng.Float64() >= g.config.MotifDensity {
				continue
			}
			hit = true
			edges = append(edges, network.MotifEdge{TF: tf, Gene: gene, Score: 1})
			effects[i][j] = g.effect()
		}
		if !hit {
			i := g.rng.Intn(len(tfs))
			edges = append(edges, network.MotifEdge{TF: tfs[i], Gene: gene, Score: 1})
			effects[i][j] = g.effect()
		}
	}
	return edges, effects
}

func (g *NetworkDataGenerator) effect() float64 {
	v := 0.5 + g.rng.Float64()
	if g.rng.Intn(2) == 0 {
		return -v
	}
	return v
}

func (g *NetworkDataGenerator) rewire(effects [][]float64) [][]float64 {
	out := make([][]float64, len(effects))
	for i, row := range effects {
		out[i] = append([]float64(nil), row...)
		for j, v := range out[i] {
			if v != 0 && g.rng.Float64() < g.config.RewireRate {
				out[i][j] = -v
			}
		}
	}
	return out
}

// expression simulates TF activity as standard normal and each gene as the
// effect-weighted sum of its regulators plus noise
func (g *NetworkDataGenerator) expression(tfs, genes, samples []string, effects [][]float64) (*network.ExpressionMatrix, error) {
	activity := make([][]float64, len(tfs))
	for i := range activity {
		activity[i] = make([]float64, len(samples))
		for k := range activity[i] {
			activity[i][k] = g.rng.NormFloat64()
		}
	}

	ids := make([]string, 0, len(tfs)+len(genes))
	values := make([][]float64, 0, len(tfs)+len(genes))
	for i, tf := range tfs {
		ids = append(ids, tf)
		values = append(values, g.withMissing(activity[i]))
	}
	for j, gene := range genes {
		row := make([]float64, len(samples))
		for k := range row {
			v := g.config.NoiseSD * g.rng.NormFloat64()
			for i := range tfs {
				v += effects[i][j] * activity[i][k]
			}
			row[k] = v
		}
		ids = append(ids, gene)
		values = append(values, g.withMissing(row))
	}
	return network.NewExpressionMatrix(ids, samples, values)
}

func (g *NetworkDataGenerator) withMissing(row []float64) []float64 {
	out := append([]float64(nil), row...)
	if g.config.MissingRate <= 0 {
		return out
	}
	for k := range out {
		if g.rng.Float64() < g.config.MissingRate {
			out[k] = math.NaN()
		}
	}
	return out
}
