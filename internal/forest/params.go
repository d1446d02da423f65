package forest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/noshow/internal/errors"
)

// ClassWeight selects how training rows are weighted by class.
type ClassWeight int

const (
	// Uniform gives every row weight 1.
	Uniform ClassWeight = iota
	// Balanced weights class c by n / (classes * count_c) so every class
	// carries the same total weight.
	Balanced
)

// String returns the class weight name
func (w ClassWeight) String() string {
	switch w {
	case Uniform:
		return "uniform"
	case Balanced:
		return "balanced"
	default:
		return fmt.Sprintf("ClassWeight(%d)", int(w))
	}
}

// Params are the forest hyper-parameters.
type Params struct {
	NEstimators     int         `json:"n_estimators"`
	MaxDepth        int         `json:"max_depth"` // 0 means grow until pure
	MinSamplesSplit int         `json:"min_samples_split"`
	MinSamplesLeaf  int         `json:"min_samples_leaf"`
	MaxFeatures     int         `json:"max_features"` // 0 means sqrt(n_features)
	ClassWeight     ClassWeight `json:"class_weight"`
	Seed            int64       `json:"seed"`
}

// DefaultParams returns a 100-tree forest with unlimited depth, seeded with 42.
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		ClassWeight:     Uniform,
		Seed:            42,
	}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	const op = "Forest"
	switch {
	case p.NEstimators < 1:
		return errors.NewValueError(op, fmt.Sprintf("n_estimators must be positive, got %d", p.NEstimators))
	case p.MaxDepth < 0:
		return errors.NewValueError(op, fmt.Sprintf("max_depth must be non-negative, got %d", p.MaxDepth))
	case p.MinSamplesSplit < 2:
		return errors.NewValueError(op, fmt.Sprintf("min_samples_split must be at least 2, got %d", p.MinSamplesSplit))
	case p.MinSamplesLeaf < 1:
		return errors.NewValueError(op, fmt.Sprintf("min_samples_leaf must be positive, got %d", p.MinSamplesLeaf))
	case p.MaxFeatures < 0:
		return errors.NewValueError(op, fmt.Sprintf("max_features must be non-negative, got %d", p.MaxFeatures))
	case p.ClassWeight != Uniform && p.ClassWeight != Balanced:
		return errors.NewValueError(op, fmt.Sprintf("unknown class weight %d", int(p.ClassWeight)))
	}
	return nil
}

// String renders the tunable parameters, e.g.
// "max_depth=None min_samples_leaf=1 min_samples_split=2 n_estimators=100".
func (p Params) String() string {
	depth := "None"
	if p.MaxDepth > 0 {
		depth = strconv.Itoa(p.MaxDepth)
	}
	parts := []string{
		"max_depth=" + depth,
		"min_samples_leaf=" + strconv.Itoa(p.MinSamplesLeaf),
		"min_samples_split=" + strconv.Itoa(p.MinSamplesSplit),
		"n_estimators=" + strconv.Itoa(p.NEstimators),
	}
	if p.ClassWeight != Uniform {
		parts = append(parts, "class_weight="+p.ClassWeight.String())
	}
	return strings.Join(parts, " ")
}
