package forest

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
)

const leaf = -1

// node is one tree node. Internal nodes send x[feature] <= threshold left.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	proba     []float64 // weighted class distribution, normalized
}

// Tree is a fitted CART classification tree.
type Tree struct {
	nodes       []node
	importances []float64 // raw impurity decrease per feature
}

// Proba returns the class distribution of the leaf x falls into.
func (t *Tree) Proba(x []float64) []float64 {
	i := 0
	for t.nodes[i].feature != leaf {
		n := &t.nodes[i]
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return t.nodes[i].proba
}

// NodeCount returns the number of nodes
func (t *Tree) NodeCount() int {
	return len(t.nodes)
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.nodes[i]
		if n.feature == leaf {
			return 0
		}
		return 1 + max(walk(n.left), walk(n.right))
	}
	return walk(0)
}

// treeBuilder grows one tree over weighted rows. Rows with zero weight are
// never passed to it.
type treeBuilder struct {
	x          [][]float64
	y          []int // class index per row
	w          []float64
	nClasses   int
	maxFeature int
	params     Params
	rng        *rand.Rand

	tree     *Tree
	features []int
}

type split struct {
	feature     int
	threshold   float64
	position    int
	improvement float64
}

func newTreeBuilder(x [][]float64, y []int, w []float64, nClasses, maxFeatures int, p Params, rng *rand.Rand) *treeBuilder {
	nFeatures := len(x[0])
	features := make([]int, nFeatures)
	for i := range features {
		features[i] = i
	}
	return &treeBuilder{
		x:          x,
		y:          y,
		w:          w,
		nClasses:   nClasses,
		maxFeature: maxFeatures,
		params:     p,
		rng:        rng,
		tree:       &Tree{importances: make([]float64, nFeatures)},
		features:   features,
	}
}

func (b *treeBuilder) fit(samples []int) *Tree {
	b.grow(samples, 0)
	return b.tree
}

func (b *treeBuilder) distribution(samples []int) ([]float64, float64) {
	dist := make([]float64, b.nClasses)
	total := 0.0
	for _, s := range samples {
		dist[b.y[s]] += b.w[s]
		total += b.w[s]
	}
	return dist, total
}

func (b *treeBuilder) grow(samples []int, depth int) int {
	dist, total := b.distribution(samples)
	impurity := gini(dist, total)

	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, node{feature: leaf, left: leaf, right: leaf, proba: normalize(dist, total)})

	n := len(samples)
	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		n < b.params.MinSamplesSplit ||
		n < 2*b.params.MinSamplesLeaf ||
		impurity <= 0 {
		return id
	}

	best, ok := b.bestSplit(samples, total, impurity)
	if !ok {
		return id
	}

	sortByFeature(b.x, samples, best.feature)
	leftSamples, rightSamples := samples[:best.position], samples[best.position:]
	b.tree.importances[best.feature] += best.improvement

	left := b.grow(leftSamples, depth+1)
	right := b.grow(rightSamples, depth+1)

	b.tree.nodes[id].feature = best.feature
	b.tree.nodes[id].threshold = best.threshold
	b.tree.nodes[id].left = left
	b.tree.nodes[id].right = right
	return id
}

// bestSplit visits features in random order until maxFeature non-constant
// ones have been evaluated, and returns the split with the largest weighted
// impurity decrease.
func (b *treeBuilder) bestSplit(samples []int, total, impurity float64) (split, bool) {
	b.rng.Shuffle(len(b.features), func(i, j int) {
		b.features[i], b.features[j] = b.features[j], b.features[i]
	})

	sorted := make([]int, len(samples))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)
	minLeaf := b.params.MinSamplesLeaf

	var best split
	found := false
	visited := 0
	for _, f := range b.features {
		if visited >= b.maxFeature {
			break
		}
		copy(sorted, samples)
		sortByFeature(b.x, sorted, f)
		first, last := b.x[sorted[0]][f], b.x[sorted[len(sorted)-1]][f]
		if first == last {
			continue
		}
		visited++

		clear(left)
		clear(right)
		leftW := 0.0
		for _, s := range sorted {
			right[b.y[s]] += b.w[s]
		}
		rightW := total

		for pos := 1; pos < len(sorted); pos++ {
			s := sorted[pos-1]
			left[b.y[s]] += b.w[s]
			right[b.y[s]] -= b.w[s]
			leftW += b.w[s]
			rightW -= b.w[s]

			lo, hi := b.x[s][f], b.x[sorted[pos]][f]
			if lo == hi || pos < minLeaf || len(sorted)-pos < minLeaf {
				continue
			}

			children := leftW*gini(left, leftW) + rightW*gini(right, rightW)
			improvement := total*impurity - children
			if improvement > 1e-12 && (!found || improvement > best.improvement) {
				threshold := lo + (hi-lo)/2
				if threshold >= hi || math.IsInf(threshold, 0) {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, position: pos, improvement: improvement}
				found = true
			}
		}
	}
	return best, found
}

func sortByFeature(x [][]float64, samples []int, f int) {
	slices.SortStableFunc(samples, func(a, b int) int {
		return cmp.Compare(x[a][f], x[b][f])
	})
}

func gini(dist []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, v := range dist {
		p := v / total
		sum += p * p
	}
	return 1 - sum
}

func normalize(dist []float64, total float64) []float64 {
	proba := make([]float64, len(dist))
	if total <= 0 {
		return proba
	}
	for i, v := range dist {
		proba[i] = v / total
	}
	return proba
}
