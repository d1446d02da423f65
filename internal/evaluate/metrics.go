// Package evaluate scores a fitted classifier on held-out rows: confusion
// matrix, per-class precision/recall/F1, accuracy, ROC-AUC, ranked feature
// importances and a single illustrative prediction.
//
// Per-class counts and ratios are computed through golearn's evaluation
// package; undefined ratios (0/0) are reported as 0.
package evaluate

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/validation"
	"github.com/sjwhitworth/golearn/evaluation"
	"golang.org/x/exp/constraints"
)

// Negative and Positive are the two encoded classes: show and no-show.
const (
	Negative = 0
	Positive = 1
)

// ConfusionMatrix counts binary outcomes; rows are the actual class,
// columns the predicted class.
type ConfusionMatrix [2][2]int

// NewConfusionMatrix tallies predictions against labels, which must be 0 or 1.
func NewConfusionMatrix(yTrue, yPred []int) (ConfusionMatrix, error) {
	var m ConfusionMatrix
	if err := validation.ValidateLength(len(yTrue), len(yPred), "ConfusionMatrix", "predictions"); err != nil {
		return m, err
	}
	for i := range yTrue {
		a, p := yTrue[i], yPred[i]
		if !binary(a) || !binary(p) {
			return m, errors.NewValueError("ConfusionMatrix",
				fmt.Sprintf("row %d: labels must be 0 or 1, got actual %d predicted %d", i, a, p))
		}
		m[a][p]++
	}
	return m, nil
}

func binary(v int) bool {
	return v == Negative || v == Positive
}

// Total returns the number of rows counted.
func (m ConfusionMatrix) Total() int {
	return m[0][0] + m[0][1] + m[1][0] + m[1][1]
}

// TruePositives returns the no-shows predicted as no-shows.
func (m ConfusionMatrix) TruePositives() int { return m[1][1] }

// FalsePositives returns the shows predicted as no-shows.
func (m ConfusionMatrix) FalsePositives() int { return m[0][1] }

// FalseNegatives returns the no-shows predicted as shows.
func (m ConfusionMatrix) FalseNegatives() int { return m[1][0] }

// TrueNegatives returns the shows predicted as shows.
func (m ConfusionMatrix) TrueNegatives() int { return m[0][0] }

// Golearn converts the matrix to golearn's nested-map form.
func (m ConfusionMatrix) Golearn() evaluation.ConfusionMatrix {
	cm := make(evaluation.ConfusionMatrix, 2)
	for a := range m {
		row := make(map[string]int, 2)
		for p := range m[a] {
			row[label(p)] = m[a][p]
		}
		cm[label(a)] = row
	}
	return cm
}

// confusion builds golearn's matrix for arbitrary integer labels.
func confusion(yTrue, yPred []int) evaluation.ConfusionMatrix {
	cm := make(evaluation.ConfusionMatrix)
	for i := range yTrue {
		a, p := label(yTrue[i]), label(yPred[i])
		if cm[a] == nil {
			cm[a] = make(map[string]int)
		}
		cm[a][p]++
	}
	return cm
}

func label(class int) string {
	return strconv.Itoa(class)
}

// F1Score is the F1 of the positive class, 0 when undefined.
func F1Score(yTrue, yPred []int, positive int) float64 {
	return finite(evaluation.GetF1Score(label(positive), confusion(yTrue, yPred)))
}

// RecallScore is the recall of the positive class, 0 when undefined.
func RecallScore(yTrue, yPred []int, positive int) float64 {
	return finite(evaluation.GetRecall(label(positive), confusion(yTrue, yPred)))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ROCAUC is the area under the ROC curve of scores for the positive class,
// computed as the normalized Mann-Whitney rank statistic with tied scores
// sharing their average rank. It needs both classes present.
func ROCAUC(yTrue []int, scores []float64, positive int) (float64, error) {
	if err := validation.ValidateLength(len(yTrue), len(scores), "ROCAUC", "scores"); err != nil {
		return 0, err
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	ranks := make([]float64, len(scores))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var nPos, nNeg int
	rankSum := 0.0
	for i, y := range yTrue {
		if y == positive {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, errors.NewValueError("ROCAUC", "only one class present in labels; ROC AUC is undefined")
	}

	return (rankSum - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg)), nil
}

// mean returns the arithmetic mean, 0 for no values
func mean[T constraints.Integer | constraints.Float](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}
