// Package forest implements a random forest classifier: bootstrap-sampled
// CART trees split on Gini impurity over a random subset of features, with
// optional balanced class weights. Trees are grown concurrently on a worker
// pool; every tree draws from its own seeded generator, so a fit is fully
// determined by its Params regardless of scheduling.
package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/paveg/noshow/internal/dataset"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/parallel"
)

// Forest is a fitted random forest.
type Forest struct {
	params      Params
	features    []string
	classes     []int
	trees       []*Tree
	importances []float64
}

// Fit grows p.NEstimators trees on d. A nil pool fits the trees sequentially.
func Fit(ctx context.Context, d *dataset.Dataset, p Params, pool *parallel.WorkerPool) (*Forest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if d.Len() == 0 {
		return nil, errors.NewValueError("Forest", "cannot fit on an empty dataset")
	}
	if d.NumFeatures() == 0 {
		return nil, errors.NewValueError("Forest", "dataset has no features")
	}
	if pool == nil {
		pool = parallel.NewWorkerPool(1)
		defer pool.Close()
	}

	classes := d.Classes()
	classIndex := make(map[int]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	y := make([]int, d.Len())
	for i, label := range d.Y {
		y[i] = classIndex[label]
	}
	classWeights := weightsFor(p.ClassWeight, d.ClassCounts(), classes, d.Len())

	maxFeatures := p.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(d.NumFeatures()))))
	}
	maxFeatures = min(maxFeatures, d.NumFeatures())

	// Tree seeds are drawn up front so they do not depend on scheduling.
	master := dataset.NewRand(p.Seed)
	seeds := make([]uint64, p.NEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees, err := parallel.Map(ctx, pool, seeds, func(_ context.Context, i int, seed uint64) (*Tree, error) {
		rng := rand.New(rand.NewPCG(seed, uint64(i)))
		samples, weights := bootstrap(rng, y, classWeights)
		builder := newTreeBuilder(d.X, y, weights, len(classes), maxFeatures, p, rng)
		return builder.fit(samples), nil
	})
	if err != nil {
		return nil, err
	}

	return &Forest{
		params:      p,
		features:    append([]string(nil), d.Features...),
		classes:     classes,
		trees:       trees,
		importances: meanImportances(trees, d.NumFeatures()),
	}, nil
}

// weightsFor returns the per-class-index weight.
func weightsFor(cw ClassWeight, counts map[int]int, classes []int, n int) []float64 {
	weights := make([]float64, len(classes))
	for i, c := range classes {
		if cw == Balanced {
			weights[i] = float64(n) / (float64(len(classes)) * float64(counts[c]))
		} else {
			weights[i] = 1
		}
	}
	return weights
}

// bootstrap draws len(y) rows with replacement. It returns the distinct rows
// drawn and a per-row weight of draw count times class weight.
func bootstrap(rng *rand.Rand, y []int, classWeights []float64) ([]int, []float64) {
	n := len(y)
	counts := make([]int, n)
	for range n {
		counts[rng.IntN(n)]++
	}
	samples := make([]int, 0, n)
	weights := make([]float64, n)
	for i, c := range counts {
		if c == 0 {
			continue
		}
		samples = append(samples, i)
		weights[i] = float64(c) * classWeights[y[i]]
	}
	return samples, weights
}

// meanImportances averages the per-tree normalized impurity decreases over
// the trees that split at least once, and renormalizes to sum 1.
func meanImportances(trees []*Tree, nFeatures int) []float64 {
	mean := make([]float64, nFeatures)
	used := 0
	for _, t := range trees {
		total := 0.0
		for _, v := range t.importances {
			total += v
		}
		if t.NodeCount() <= 1 || total <= 0 {
			continue
		}
		used++
		for f, v := range t.importances {
			mean[f] += v / total
		}
	}
	if used == 0 {
		return mean
	}
	sum := 0.0
	for f := range mean {
		mean[f] /= float64(used)
		sum += mean[f]
	}
	for f := range mean {
		mean[f] /= sum
	}
	return mean
}

// PredictProba averages the leaf distributions of all trees. The result is
// aligned with Classes().
func (f *Forest) PredictProba(x []float64) []float64 {
	proba := make([]float64, len(f.classes))
	for _, t := range f.trees {
		for c, p := range t.Proba(x) {
			proba[c] += p
		}
	}
	for c := range proba {
		proba[c] /= float64(len(f.trees))
	}
	return proba
}

// Predict returns the class with the highest mean probability, the smaller
// label on ties.
func (f *Forest) Predict(x []float64) int {
	proba := f.PredictProba(x)
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return f.classes[best]
}

// PredictAll predicts every row of x.
func (f *Forest) PredictAll(x [][]float64) []int {
	out := make([]int, len(x))
	for i, row := range x {
		out[i] = f.Predict(row)
	}
	return out
}

// ProbaOf returns the probability of class for every row of x, 0 when the
// forest never saw that class.
func (f *Forest) ProbaOf(x [][]float64, class int) []float64 {
	idx := -1
	for i, c := range f.classes {
		if c == class {
			idx = i
		}
	}
	out := make([]float64, len(x))
	if idx < 0 {
		return out
	}
	for i, row := range x {
		out[i] = f.PredictProba(row)[idx]
	}
	return out
}

// FeatureImportances returns the mean decrease in impurity per feature,
// in Features() order, summing to 1 unless no tree ever split.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.importances...)
}

// Classes returns the labels seen during fitting, ascending.
func (f *Forest) Classes() []int {
	return append([]int(nil), f.classes...)
}

// Features returns the feature names the forest was fitted on.
func (f *Forest) Features() []string {
	return append([]string(nil), f.features...)
}

// Params returns the parameters the forest was fitted with.
func (f *Forest) Params() Params {
	return f.params
}

// Trees returns the fitted trees.
func (f *Forest) Trees() []*Tree {
	return f.trees
}

// String summarizes the forest
func (f *Forest) String() string {
	nodes, depth := 0, 0
	for _, t := range f.trees {
		nodes += t.NodeCount()
		depth = max(depth, t.Depth())
	}
	return fmt.Sprintf("Forest[%d trees, %d nodes, depth %d, %d features]: %s",
		len(f.trees), nodes, depth, len(f.features), f.params)
}
