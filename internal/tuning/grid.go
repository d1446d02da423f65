// Package tuning runs an exhaustive cross-validated grid search over random
// forest hyper-parameters.
package tuning

import (
	"fmt"

	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/forest"
)

// Grid lists the values tried for each tunable parameter. A MaxDepth of 0
// means unlimited depth.
type Grid struct {
	NEstimators     []int `json:"n_estimators"`
	MaxDepth        []int `json:"max_depth"`
	MinSamplesSplit []int `json:"min_samples_split"`
	MinSamplesLeaf  []int `json:"min_samples_leaf"`
}

// Size returns the number of candidates
func (g Grid) Size() int {
	return len(g.NEstimators) * len(g.MaxDepth) * len(g.MinSamplesSplit) * len(g.MinSamplesLeaf)
}

// Candidates expands the grid onto base. Parameters vary in alphabetical
// order of their names with the last one fastest: max_depth, then
// min_samples_leaf, min_samples_split and n_estimators.
func (g Grid) Candidates(base forest.Params) ([]forest.Params, error) {
	if g.Size() == 0 {
		return nil, errors.NewValueError("GridSearch", "every grid axis needs at least one value")
	}
	candidates := make([]forest.Params, 0, g.Size())
	for _, depth := range g.MaxDepth {
		for _, leaf := range g.MinSamplesLeaf {
			for _, split := range g.MinSamplesSplit {
				for _, trees := range g.NEstimators {
					p := base
					p.MaxDepth = depth
					p.MinSamplesLeaf = leaf
					p.MinSamplesSplit = split
					p.NEstimators = trees
					if err := p.Validate(); err != nil {
						return nil, err
					}
					candidates = append(candidates, p)
				}
			}
		}
	}
	return candidates, nil
}

// Scoring selects the cross-validation metric.
type Scoring int

const (
	// F1 scores folds by the F1 of the positive class.
	F1 Scoring = iota
	// Recall scores folds by the recall of the positive class.
	Recall
)

// String returns the metric name
func (s Scoring) String() string {
	switch s {
	case F1:
		return "f1"
	case Recall:
		return "recall"
	default:
		return fmt.Sprintf("Scoring(%d)", int(s))
	}
}
