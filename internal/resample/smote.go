// Package resample balances a training set by synthesizing minority-class
// rows with SMOTE: each synthetic row lies on the segment between a minority
// row and one of its k nearest minority neighbours.
package resample

import (
	"context"
	"fmt"
	"sort"

	"github.com/paveg/noshow/internal/dataset"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/parallel"
)

const opSMOTE = "SMOTE"

// DefaultNeighbors is the neighbourhood size used when k is not positive.
const DefaultNeighbors = 5

// SMOTE oversamples every class other than the majority until it matches the
// majority count. The original rows come first, followed by the synthetic
// rows of each class in ascending label order. The neighbour count is capped
// at the class size minus one; a class with a single row cannot be
// oversampled. A nil pool searches neighbours sequentially.
func SMOTE(ctx context.Context, d *dataset.Dataset, k int, seed int64, pool *parallel.WorkerPool) (*dataset.Dataset, error) {
	if k <= 0 {
		k = DefaultNeighbors
	}
	if d.Len() == 0 {
		return nil, errors.NewValueError(opSMOTE, "cannot oversample an empty dataset")
	}
	if pool == nil {
		pool = parallel.NewWorkerPool(1)
		defer pool.Close()
	}

	counts := d.ClassCounts()
	classes := d.Classes()
	majority := classes[0]
	for _, c := range classes {
		if counts[c] > counts[majority] {
			majority = c
		}
	}

	rng := dataset.NewRand(seed)
	x := append([][]float64(nil), d.X...)
	y := append([]int(nil), d.Y...)

	for _, c := range classes {
		need := counts[majority] - counts[c]
		if c == majority || need == 0 {
			continue
		}
		if counts[c] < 2 {
			return nil, errors.NewValueError(opSMOTE,
				fmt.Sprintf("class %d has %d row; at least 2 are needed to interpolate", c, counts[c]))
		}

		members := make([][]float64, 0, counts[c])
		for i, label := range d.Y {
			if label == c {
				members = append(members, d.X[i])
			}
		}
		kc := min(k, len(members)-1)

		neighbors, err := NearestNeighbors(ctx, members, kc, pool)
		if err != nil {
			return nil, err
		}

		for range need {
			pick := rng.IntN(len(members) * kc)
			row, col := pick/kc, pick%kc
			gap := rng.Float64()
			base, other := members[row], members[neighbors[row][col]]
			synthetic := make([]float64, len(base))
			for f := range base {
				synthetic[f] = base[f] + gap*(other[f]-base[f])
			}
			x = append(x, synthetic)
			y = append(y, c)
		}
	}

	return dataset.New(d.Features, x, y)
}

// NearestNeighbors returns, for every row, the indices of its k nearest
// other rows by Euclidean distance, closest first and lower index on ties.
func NearestNeighbors(ctx context.Context, rows [][]float64, k int, pool *parallel.WorkerPool) ([][]int, error) {
	if k < 1 || k >= len(rows) {
		return nil, errors.NewValueError(opSMOTE,
			fmt.Sprintf("need 1 <= k < %d rows, got k=%d", len(rows), k))
	}
	return parallel.Map(ctx, pool, rows, func(_ context.Context, i int, row []float64) ([]int, error) {
		type candidate struct {
			index    int
			distance float64
		}
		best := make([]candidate, 0, k+1)
		for j, other := range rows {
			if j == i {
				continue
			}
			dist := squaredDistance(row, other)
			if len(best) == k && dist >= best[k-1].distance {
				continue
			}
			pos := sort.Search(len(best), func(p int) bool { return best[p].distance > dist })
			best = append(best, candidate{})
			copy(best[pos+1:], best[pos:])
			best[pos] = candidate{index: j, distance: dist}
			if len(best) > k {
				best = best[:k]
			}
		}
		out := make([]int, len(best))
		for p, c := range best {
			out[p] = c.index
		}
		return out, nil
	})
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
