package evaluate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paveg/noshow/internal/dataset"
	"github.com/paveg/noshow/internal/validation"
)

// Classifier is what evaluation needs from a fitted model.
type Classifier interface {
	PredictAll(x [][]float64) []int
	ProbaOf(x [][]float64, class int) []float64
}

// ImportanceSource is a model that scores its input features.
type ImportanceSource interface {
	Features() []string
	FeatureImportances() []float64
}

// Importance is one feature's share of the model's impurity decrease.
type Importance struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// Evaluation is the full score sheet of one model on one test set.
type Evaluation struct {
	Report      *Report      `json:"report"`
	ROCAUC      float64      `json:"roc_auc"`
	ROCAUCError string       `json:"roc_auc_error,omitempty"`
	Importances []Importance `json:"importances,omitempty"`
}

// Evaluate scores model on test. An undefined ROC-AUC (single-class test
// set) is recorded in ROCAUCError rather than failing the evaluation.
func Evaluate(model Classifier, test *dataset.Dataset) (*Evaluation, error) {
	if err := validation.ValidateNotEmpty(test.Len(), "Evaluate"); err != nil {
		return nil, err
	}

	report, err := NewReport(test.Y, model.PredictAll(test.X))
	if err != nil {
		return nil, err
	}
	e := &Evaluation{Report: report}

	auc, err := ROCAUC(test.Y, model.ProbaOf(test.X, Positive), Positive)
	if err != nil {
		e.ROCAUCError = err.Error()
	} else {
		e.ROCAUC = auc
	}

	if src, ok := model.(ImportanceSource); ok {
		e.Importances = SortedImportances(src.Features(), src.FeatureImportances())
	}
	return e, nil
}

// SortedImportances pairs features with scores, highest score first and
// feature name on ties.
func SortedImportances(features []string, scores []float64) []Importance {
	out := make([]Importance, 0, len(features))
	for i, f := range features {
		if i < len(scores) {
			out = append(out, Importance{Feature: f, Score: scores[i]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// FeatureValue is one named input of a sample prediction.
type FeatureValue struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// SamplePrediction shows the model's call on a single test row.
type SamplePrediction struct {
	Index       int            `json:"index"`
	Features    []FeatureValue `json:"features"`
	Predicted   int            `json:"predicted"`
	Actual      int            `json:"actual"`
	Probability float64        `json:"probability"` // of the positive class
}

// Sample predicts test row index. An index outside the test set is a ValueError.
func Sample(model Classifier, test *dataset.Dataset, index int) (*SamplePrediction, error) {
	if err := validation.ValidateIndex(index, test.Len(), "SamplePrediction"); err != nil {
		return nil, err
	}
	row := [][]float64{test.X[index]}

	features := make([]FeatureValue, len(test.Features))
	for i, name := range test.Features {
		features[i] = FeatureValue{Feature: name, Value: row[0][i]}
	}
	return &SamplePrediction{
		Index:       index,
		Features:    features,
		Predicted:   model.PredictAll(row)[0],
		Actual:      test.Y[index],
		Probability: model.ProbaOf(row, Positive)[0],
	}, nil
}

// String renders the sample as one line.
func (s *SamplePrediction) String() string {
	parts := make([]string, len(s.Features))
	for i, f := range s.Features {
		parts[i] = fmt.Sprintf("%s=%g", f.Feature, f.Value)
	}
	return fmt.Sprintf("test row %d [%s]: predicted %s (p=%.2f), actual %s",
		s.Index, strings.Join(parts, " "), className(s.Predicted), s.Probability, className(s.Actual))
}

func className(class int) string {
	if binary(class) {
		return ClassNames[class]
	}
	return label(class)
}
