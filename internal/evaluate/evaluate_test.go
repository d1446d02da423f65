package evaluate_test

import (
	"testing"

	"github.com/paveg/noshow/internal/dataset"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/evaluate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedModel predicts 1 when the first feature exceeds 0.5 and uses that
// feature as the positive-class probability.
type fixedModel struct{}

func (fixedModel) PredictAll(x [][]float64) []int {
	out := make([]int, len(x))
	for i, row := range x {
		if row[0] > 0.5 {
			out[i] = 1
		}
	}
	return out
}

func (fixedModel) ProbaOf(x [][]float64, class int) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = row[0]
		if class == 0 {
			out[i] = 1 - row[0]
		}
	}
	return out
}

type importantModel struct{ fixedModel }

func (importantModel) Features() []string { return []string{"score", "age", "sms_received"} }

func (importantModel) FeatureImportances() []float64 { return []float64{0.2, 0.5, 0.3} }

func TestConfusionMatrix(t *testing.T) {
	yTrue := []int{0, 0, 0, 0, 1, 1, 1, 1}
	yPred := []int{0, 0, 0, 1, 1, 1, 0, 0}

	m, err := evaluate.NewConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, evaluate.ConfusionMatrix{{3, 1}, {2, 2}}, m)
	assert.Equal(t, len(yTrue), m.Total())
	assert.Equal(t, 2, m.TruePositives())
	assert.Equal(t, 1, m.FalsePositives())
	assert.Equal(t, 2, m.FalseNegatives())
	assert.Equal(t, 3, m.TrueNegatives())
	assert.Equal(t, 3, m.Golearn()["0"]["0"])
	assert.Contains(t, m.String(), "No-show")

	_, err = evaluate.NewConfusionMatrix([]int{0, 2}, []int{0, 1})
	assert.ErrorIs(t, err, errors.ErrValue)

	_, err = evaluate.NewConfusionMatrix([]int{0, 1}, []int{0})
	assert.ErrorIs(t, err, errors.ErrValue)
}

func TestReport(t *testing.T) {
	r, err := evaluate.NewReport(
		[]int{0, 0, 0, 0, 1, 1, 1, 1},
		[]int{0, 0, 0, 1, 1, 1, 0, 0},
	)
	require.NoError(t, err)

	show, noShow := r.Classes[0], r.Classes[1]
	assert.Equal(t, "Show", show.Label)
	assert.InDelta(t, 0.6, show.Precision, 1e-9)
	assert.InDelta(t, 0.75, show.Recall, 1e-9)
	assert.InDelta(t, 2.0/3.0, show.F1, 1e-9)
	assert.Equal(t, 4, show.Support)

	assert.InDelta(t, 2.0/3.0, noShow.Precision, 1e-9)
	assert.InDelta(t, 0.5, noShow.Recall, 1e-9)
	assert.InDelta(t, 4.0/7.0, noShow.F1, 1e-9)
	assert.InDelta(t, 0.5, r.Recall(evaluate.Positive), 1e-9)

	assert.InDelta(t, 0.625, r.Accuracy, 1e-9)
	assert.InDelta(t, (0.6+2.0/3.0)/2, r.MacroAvg.Precision, 1e-9)
	assert.InDelta(t, (0.6+2.0/3.0)/2, r.WeightedAvg.Precision, 1e-9)
	assert.Equal(t, 8, r.MacroAvg.Support)

	text := r.String()
	assert.Contains(t, text, "precision")
	assert.Contains(t, text, "weighted avg")
}

func TestReportUndefinedScores(t *testing.T) {
	// no positive predictions: precision of the positive class is 0/0
	r, err := evaluate.NewReport([]int{0, 0, 1}, []int{0, 0, 0})
	require.NoError(t, err)

	assert.Equal(t, 0.0, r.Classes[1].Precision)
	assert.Equal(t, 0.0, r.Classes[1].Recall)
	assert.Equal(t, 0.0, r.Classes[1].F1)
	assert.InDelta(t, 2.0/3.0, r.Accuracy, 1e-9)
	assert.InDelta(t, (2.0/3.0)*2/3, r.WeightedAvg.Precision, 1e-9)
}

func TestScores(t *testing.T) {
	yTrue := []int{0, 0, 0, 0, 1, 1, 1, 1}
	yPred := []int{0, 0, 0, 1, 1, 1, 0, 0}

	assert.InDelta(t, 4.0/7.0, evaluate.F1Score(yTrue, yPred, 1), 1e-9)
	assert.InDelta(t, 0.5, evaluate.RecallScore(yTrue, yPred, 1), 1e-9)

	assert.Equal(t, 0.0, evaluate.F1Score([]int{0, 1}, []int{0, 0}, 1))
	assert.Equal(t, 0.0, evaluate.RecallScore([]int{0, 0}, []int{0, 1}, 1))
}

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name   string
		y      []int
		scores []float64
		want   float64
	}{
		{name: "perfect", y: []int{0, 0, 1, 1}, scores: []float64{0.1, 0.2, 0.8, 0.9}, want: 1},
		{name: "inverted", y: []int{0, 0, 1, 1}, scores: []float64{0.9, 0.8, 0.2, 0.1}, want: 0},
		{name: "one swap", y: []int{0, 0, 1, 1}, scores: []float64{0.1, 0.4, 0.35, 0.8}, want: 0.75},
		{name: "all tied", y: []int{0, 1, 0, 1}, scores: []float64{0.5, 0.5, 0.5, 0.5}, want: 0.5},
		{name: "partial tie", y: []int{0, 1, 1}, scores: []float64{0.3, 0.3, 0.9}, want: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auc, err := evaluate.ROCAUC(tt.y, tt.scores, 1)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, auc, 1e-12)
		})
	}

	_, err := evaluate.ROCAUC([]int{1, 1}, []float64{0.2, 0.4}, 1)
	assert.ErrorIs(t, err, errors.ErrValue)
}

func testSet(t *testing.T) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(
		[]string{"score", "age", "sms_received"},
		[][]float64{{0.1, 30, 0}, {0.7, 8, 1}, {0.4, 61, 0}, {0.9, 45, 1}, {0.2, 19, 0}},
		[]int{0, 0, 1, 1, 0},
	)
	require.NoError(t, err)
	return d
}

func TestEvaluate(t *testing.T) {
	test := testSet(t)

	e, err := evaluate.Evaluate(importantModel{}, test)
	require.NoError(t, err)

	assert.Equal(t, test.Len(), e.Report.Confusion.Total())
	assert.Equal(t, evaluate.ConfusionMatrix{{2, 1}, {1, 1}}, e.Report.Confusion)
	assert.Empty(t, e.ROCAUCError)
	assert.InDelta(t, 5.0/6.0, e.ROCAUC, 1e-12)
	assert.Equal(t, []evaluate.Importance{
		{Feature: "age", Score: 0.5},
		{Feature: "sms_received", Score: 0.3},
		{Feature: "score", Score: 0.2},
	}, e.Importances)

	t.Run("single-class test set", func(t *testing.T) {
		onlyShows := test.Subset([]int{0, 1, 4})
		e, err := evaluate.Evaluate(fixedModel{}, onlyShows)
		require.NoError(t, err)
		assert.Contains(t, e.ROCAUCError, "only one class")
		assert.Nil(t, e.Importances)
	})

	t.Run("empty test set", func(t *testing.T) {
		_, err := evaluate.Evaluate(fixedModel{}, test.Subset(nil))
		assert.ErrorIs(t, err, errors.ErrValue)
	})
}

func TestSample(t *testing.T) {
	test := testSet(t)

	s, err := evaluate.Sample(fixedModel{}, test, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Index)
	assert.Equal(t, 1, s.Predicted)
	assert.Equal(t, 1, s.Actual)
	assert.InDelta(t, 0.9, s.Probability, 1e-12)
	assert.Equal(t, evaluate.FeatureValue{Feature: "age", Value: 45}, s.Features[1])
	assert.Contains(t, s.String(), "predicted No-show")
	assert.Contains(t, s.String(), "actual No-show")

	for _, index := range []int{-1, 5, 10} {
		_, err := evaluate.Sample(fixedModel{}, test, index)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrValue)
	}
}

func TestSortedImportances(t *testing.T) {
	got := evaluate.SortedImportances([]string{"b", "a", "c"}, []float64{0.25, 0.25, 0.5})
	assert.Equal(t, []evaluate.Importance{
		{Feature: "c", Score: 0.5},
		{Feature: "a", Score: 0.25},
		{Feature: "b", Score: 0.25},
	}, got)
}
