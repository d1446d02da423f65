package resample_test

import (
	"context"
	"testing"

	"github.com/paveg/noshow/internal/dataset"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/parallel"
	"github.com/paveg/noshow/internal/resample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imbalanced(t *testing.T) *dataset.Dataset {
	t.Helper()
	var x [][]float64
	var y []int
	for i := range 20 {
		x = append(x, []float64{float64(i), 0})
		y = append(y, 0)
	}
	for i := range 5 {
		x = append(x, []float64{100 + float64(i), 10 + float64(i)})
		y = append(y, 1)
	}
	d, err := dataset.New([]string{"a", "b"}, x, y)
	require.NoError(t, err)
	return d
}

func TestSMOTE(t *testing.T) {
	d := imbalanced(t)
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	out, err := resample.SMOTE(context.Background(), d, 5, 42, pool)
	require.NoError(t, err)

	assert.Equal(t, 40, out.Len())
	assert.Equal(t, map[int]int{0: 20, 1: 20}, out.ClassCounts())
	assert.Equal(t, d.X, out.X[:d.Len()])
	assert.Equal(t, d.Y, out.Y[:d.Len()])

	// synthetic rows stay inside the minority cloud
	for _, row := range out.X[d.Len():] {
		assert.GreaterOrEqual(t, row[0], 100.0)
		assert.LessOrEqual(t, row[0], 104.0)
		assert.GreaterOrEqual(t, row[1], 10.0)
		assert.LessOrEqual(t, row[1], 14.0)
		// rows of this class lie on the line b = a - 90
		assert.InDelta(t, row[0]-90, row[1], 1e-9)
	}

	t.Run("deterministic for a seed", func(t *testing.T) {
		again, err := resample.SMOTE(context.Background(), d, 5, 42, nil)
		require.NoError(t, err)
		assert.Equal(t, out.X, again.X)

		other, err := resample.SMOTE(context.Background(), d, 5, 1, nil)
		require.NoError(t, err)
		assert.NotEqual(t, out.X, other.X)
	})

	t.Run("input untouched", func(t *testing.T) {
		assert.Equal(t, 25, d.Len())
	})
}

func TestSMOTEEdgeCases(t *testing.T) {
	t.Run("balanced input is returned as is", func(t *testing.T) {
		d, err := dataset.New([]string{"a"}, [][]float64{{1}, {2}, {3}, {4}}, []int{0, 1, 0, 1})
		require.NoError(t, err)

		out, err := resample.SMOTE(context.Background(), d, 5, 42, nil)
		require.NoError(t, err)
		assert.Equal(t, d.X, out.X)
		assert.Equal(t, d.Y, out.Y)
	})

	t.Run("neighbours capped by class size", func(t *testing.T) {
		d, err := dataset.New([]string{"a"}, [][]float64{{0}, {1}, {2}, {3}, {10}, {12}}, []int{0, 0, 0, 0, 1, 1})
		require.NoError(t, err)

		out, err := resample.SMOTE(context.Background(), d, 5, 42, nil)
		require.NoError(t, err)
		assert.Equal(t, map[int]int{0: 4, 1: 4}, out.ClassCounts())
		for _, row := range out.X[6:] {
			assert.GreaterOrEqual(t, row[0], 10.0)
			assert.LessOrEqual(t, row[0], 12.0)
		}
	})

	t.Run("single minority row", func(t *testing.T) {
		d, err := dataset.New([]string{"a"}, [][]float64{{0}, {1}, {2}}, []int{0, 0, 1})
		require.NoError(t, err)

		_, err = resample.SMOTE(context.Background(), d, 5, 42, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrValue)
	})

	t.Run("empty", func(t *testing.T) {
		d, err := dataset.New([]string{"a"}, nil, nil)
		require.NoError(t, err)
		_, err = resample.SMOTE(context.Background(), d, 5, 42, nil)
		assert.ErrorIs(t, err, errors.ErrValue)
	})
}

func TestNearestNeighbors(t *testing.T) {
	rows := [][]float64{{0}, {1}, {3}, {6}}
	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	neighbors, err := resample.NearestNeighbors(context.Background(), rows, 2, pool)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {0, 2}, {1, 0}, {2, 1}}, neighbors)

	_, err = resample.NearestNeighbors(context.Background(), rows, 4, pool)
	assert.ErrorIs(t, err, errors.ErrValue)

	_, err = resample.NearestNeighbors(context.Background(), rows, 0, pool)
	assert.ErrorIs(t, err, errors.ErrValue)
}
