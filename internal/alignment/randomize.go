package alignment

import (
	"fmt"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/mat"

	"regnet/domain/core"
)

// Randomization selects how aligned expression is permuted to build null
// distributions. Real analyses use None.
type Randomization int

const (
	None Randomization = iota
	// WithinGene shuffles each gene's values across samples independently,
	// keeping each gene's marginal distribution
	WithinGene
	// ByGeneLabel permutes which identifier owns which row of values
	ByGeneLabel
)

func (r Randomization) String() string {
	switch r {
	case None:
		return "none"
	case WithinGene:
		return "within-gene"
	case ByGeneLabel:
		return "by-gene-label"
	default:
		return fmt.Sprintf("randomization(%d)", int(r))
	}
}

// ParseRandomization maps "none", "within-gene" and "by-gene-label"
func ParseRandomization(s string) (Randomization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "within-gene", "within_gene", "within":
		return WithinGene, nil
	case "by-gene-label", "by_gene_label", "label":
		return ByGeneLabel, nil
	default:
		return None, core.NewValidationError(core.KindInvalidOption, "unknown randomization %q", s)
	}
}

func (r Randomization) validate() error {
	switch r {
	case None, WithinGene, ByGeneLabel:
		return nil
	default:
		return core.NewValidationError(core.KindInvalidOption, "unknown randomization %d", int(r))
	}
}

func (r Randomization) apply(data *mat.Dense, rng *rand.Rand) {
	switch r {
	case WithinGene:
		shuffleWithinRows(data, rng)
	case ByGeneLabel:
		shuffleRows(data, rng)
	}
}

// shuffleWithinRows performs an independent Fisher-Yates shuffle of each row
func shuffleWithinRows(data *mat.Dense, rng *rand.Rand) {
	rows, cols := data.Dims()
	for i := 0; i < rows; i++ {
		for j := cols - 1; j > 0; j-- {
			k := rng.Intn(j + 1)
			a, b := data.At(i, j), data.At(i, k)
			data.Set(i, j, b)
			data.Set(i, k, a)
		}
	}
}

// shuffleRows permutes whole rows, detaching values from their identifiers
func shuffleRows(data *mat.Dense, rng *rand.Rand) {
	rows, _ := data.Dims()
	perm := rng.Perm(rows)
	src := mat.DenseCopyOf(data)
	for i, p := range perm {
		data.SetRow(i, mat.Row(nil, p, src))
	}
}
