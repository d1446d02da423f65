package evaluate

import (
	"fmt"
	"strings"

	"github.com/sjwhitworth/golearn/evaluation"
)

// ClassMetrics are the per-class scores of a classification report.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a binary classification report.
type Report struct {
	Confusion   ConfusionMatrix `json:"confusion_matrix"`
	Classes     [2]ClassMetrics `json:"classes"`
	Accuracy    float64         `json:"accuracy"`
	MacroAvg    ClassMetrics    `json:"macro_avg"`
	WeightedAvg ClassMetrics    `json:"weighted_avg"`
}

// ClassNames label the encoded classes in reports.
//
//nolint:gochecknoglobals // read-only table
var ClassNames = [2]string{"Show", "No-show"}

// NewReport scores predictions against labels.
func NewReport(yTrue, yPred []int) (*Report, error) {
	m, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	return ReportFromConfusion(m), nil
}

// ReportFromConfusion derives every score from a confusion matrix.
func ReportFromConfusion(m ConfusionMatrix) *Report {
	cm := m.Golearn()
	r := &Report{Confusion: m}

	var precision, recall, f1, support []float64
	for class := range r.Classes {
		metrics := ClassMetrics{
			Label:     ClassNames[class],
			Precision: finite(evaluation.GetPrecision(label(class), cm)),
			Recall:    finite(evaluation.GetRecall(label(class), cm)),
			Support:   m[class][0] + m[class][1],
		}
		metrics.F1 = finite(evaluation.GetF1Score(label(class), cm))
		r.Classes[class] = metrics

		precision = append(precision, metrics.Precision)
		recall = append(recall, metrics.Recall)
		f1 = append(f1, metrics.F1)
		support = append(support, float64(metrics.Support))
	}

	if m.Total() > 0 {
		r.Accuracy = finite(evaluation.GetAccuracy(cm))
	}

	r.MacroAvg = ClassMetrics{
		Label:     "macro avg",
		Precision: mean(precision),
		Recall:    mean(recall),
		F1:        mean(f1),
		Support:   m.Total(),
	}
	r.WeightedAvg = ClassMetrics{
		Label:     "weighted avg",
		Precision: weighted(precision, support),
		Recall:    weighted(recall, support),
		F1:        weighted(f1, support),
		Support:   m.Total(),
	}
	return r
}

func weighted(values, weights []float64) float64 {
	total := 0.0
	sum := 0.0
	for i, v := range values {
		sum += v * weights[i]
		total += weights[i]
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// Recall returns the recall of class.
func (r *Report) Recall(class int) float64 {
	return r.Classes[class].Recall
}

// String renders the report as an aligned table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	b.WriteString("\n")
	for _, c := range r.Classes {
		writeMetrics(&b, c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Confusion.Total())
	writeMetrics(&b, r.MacroAvg)
	writeMetrics(&b, r.WeightedAvg)
	return b.String()
}

func writeMetrics(b *strings.Builder, c ClassMetrics) {
	fmt.Fprintf(b, "%14s %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
}

// String renders the matrix with labelled rows and columns.
func (m ConfusionMatrix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%18s %10s %10s\n", "actual \\ predicted", ClassNames[0], ClassNames[1])
	for a := range m {
		fmt.Fprintf(&b, "%18s %10d %10d\n", ClassNames[a], m[a][0], m[a][1])
	}
	return b.String()
}
