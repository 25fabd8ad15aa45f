package alignment

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"regnet/domain/core"
	"regnet/domain/network"
)

// MinConditions is the smallest number of expression columns for which
// correlations are considered stable
const MinConditions = 3

// Options controls alignment
type Options struct {
	Randomization Randomization
	// Seed drives the randomization; ignored when Randomization is None
	Seed int64
}

// Aligned is the validated, identifier-aligned input to every inference
// method. It can only be produced by Align.
type Aligned struct {
	network    *network.RegulatoryNetwork
	expression *network.ExpressionMatrix
	tfProfiles *network.Matrix
	missingTFs []string
	options    Options
}

// Network returns the regulatory network, sorted TFs x sorted gene universe
func (a *Aligned) Network() *network.RegulatoryNetwork { return a.network }

// Expression returns expression restricted to the gene universe, rows sorted
func (a *Aligned) Expression() *network.ExpressionMatrix { return a.expression }

// Genes returns the sorted gene universe
func (a *Aligned) Genes() []string { return a.network.ColIDs }

// TFs returns the sorted TF identifiers
func (a *Aligned) TFs() []string { return a.network.RowIDs }

// Options returns the options the alignment was produced with
func (a *Aligned) Options() Options { return a.options }

// TFProfiles returns the expression profiles of all TFs, rows in TFs() order.
// It fails with an identifier_mismatch ValidationError naming the TFs that
// have no expression row.
func (a *Aligned) TFProfiles() (*network.Matrix, error) {
	if len(a.missingTFs) > 0 {
		return nil, core.NewValidationError(core.KindIdentifierMismatch,
			"%d TF(s) have no expression profile: %s", len(a.missingTFs), strings.Join(preview(a.missingTFs), ", "))
	}
	return a.tfProfiles, nil
}

// Align intersects motif and expression identifiers and builds the aligned
// RegulatoryNetwork and ExpressionMatrix pair.
//
// The gene universe is the sorted intersection of motif genes and expression
// rows. Checks run in this order: too few conditions, duplicate expression
// rows, empty gene universe.
func Align(edges []network.MotifEdge, expr *network.ExpressionMatrix, opts Options) (*Aligned, error) {
	if expr == nil || expr.Data == nil {
		return nil, core.NewValidationError(core.KindShapeMismatch, "expression matrix is empty")
	}
	if n := len(expr.ColIDs); n < MinConditions {
		return nil, core.NewValidationError(core.KindInsufficientConditions,
			"insufficient conditions: expression matrix has %d condition(s), need at least %d", n, MinConditions)
	}
	if err := opts.Randomization.validate(); err != nil {
		return nil, err
	}

	exprIndex := make(map[string]int, len(expr.RowIDs))
	for i, g := range expr.RowIDs {
		if _, dup := exprIndex[g]; dup {
			return nil, core.NewValidationError(core.KindDuplicateIdentifier, "expression matrix repeats gene %q", g)
		}
		exprIndex[g] = i
	}

	genes := universe(edges, exprIndex)
	if len(genes) == 0 {
		return nil, core.NewValidationError(core.KindNoMatchedGenes,
			"no matched genes between %d motif edge(s) and %d expression row(s)", len(edges), len(expr.RowIDs))
	}

	reg, err := BuildRegulatoryNetwork(edges, genes)
	if err != nil {
		return nil, err
	}

	// rows needed downstream: the gene universe plus every TF with a profile
	var missing []string
	needed := make(map[string]struct{}, len(genes)+len(reg.RowIDs))
	for _, g := range genes {
		needed[g] = struct{}{}
	}
	for _, tf := range reg.RowIDs {
		if _, ok := exprIndex[tf]; !ok {
			missing = append(missing, tf)
			continue
		}
		needed[tf] = struct{}{}
	}
	rows := make([]string, 0, len(needed))
	for id := range needed {
		rows = append(rows, id)
	}
	sort.Strings(rows)

	working, err := expr.SelectRows(rows)
	if err != nil {
		return nil, err
	}
	if opts.Randomization != None {
		rng := rand.New(rand.NewSource(opts.Seed))
		opts.Randomization.apply(working.Data, rng)
	}

	geneExpr, err := working.SelectRows(genes)
	if err != nil {
		return nil, err
	}

	aligned := &Aligned{
		network:    reg,
		expression: &network.ExpressionMatrix{Matrix: *geneExpr},
		missingTFs: missing,
		options:    opts,
	}
	if len(missing) == 0 {
		profiles, err := working.SelectRows(reg.RowIDs)
		if err != nil {
			return nil, err
		}
		aligned.tfProfiles = profiles
	}
	return aligned, nil
}

// BuildRegulatoryNetwork converts motif edges into a TF x gene matrix over
// the given gene columns. TFs are sorted; edges on genes outside the columns
// are dropped; repeated (TF, gene) pairs are averaged; absent pairs are 0.
// TFs whose every edge was dropped are not included.
func BuildRegulatoryNetwork(edges []network.MotifEdge, genes []string) (*network.RegulatoryNetwork, error) {
	geneIndex := make(map[string]int, len(genes))
	for j, g := range genes {
		geneIndex[g] = j
	}

	type key struct{ tf, gene string }
	sums := make(map[key]float64)
	counts := make(map[key]int)
	tfSet := make(map[string]struct{})
	for _, e := range edges {
		if _, ok := geneIndex[e.Gene]; !ok {
			continue
		}
		k := key{e.TF, e.Gene}
		sums[k] += e.Score
		counts[k]++
		tfSet[e.TF] = struct{}{}
	}
	if len(tfSet) == 0 {
		return nil, core.NewValidationError(core.KindNoMatchedGenes, "no motif edge targets the gene universe")
	}

	tfs := make([]string, 0, len(tfSet))
	for tf := range tfSet {
		tfs = append(tfs, tf)
	}
	sort.Strings(tfs)
	tfIndex := make(map[string]int, len(tfs))
	for i, tf := range tfs {
		tfIndex[tf] = i
	}

	data := mat.NewDense(len(tfs), len(genes), nil)
	for k, sum := range sums {
		data.Set(tfIndex[k.tf], geneIndex[k.gene], sum/float64(counts[k]))
	}

	m, err := network.NewMatrix(tfs, genes, data)
	if err != nil {
		return nil, fmt.Errorf("build regulatory network: %w", err)
	}
	return &network.RegulatoryNetwork{Matrix: *m}, nil
}

func universe(edges []network.MotifEdge, exprIndex map[string]int) []string {
	set := make(map[string]struct{})
	for _, e := range edges {
		if _, ok := exprIndex[e.Gene]; ok {
			set[e.Gene] = struct{}{}
		}
	}
	genes := make([]string, 0, len(set))
	for g := range set {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	return genes
}

func preview(ids []string) []string {
	const limit = 10
	if len(ids) <= limit {
		return ids
	}
	out := append([]string(nil), ids[:limit]...)
	return append(out, fmt.Sprintf("and %d more", len(ids)-limit))
}
