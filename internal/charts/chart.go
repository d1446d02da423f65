// Package charts computes the descriptive views of the analysis: the
// statistics behind each chart, independent of how it is drawn. A Renderer
// turns a Chart into output; TextRenderer draws ASCII bars.
package charts

import (
	"fmt"
	"math"

	"github.com/paveg/noshow/internal/clean"
	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/evaluate"
	"github.com/paveg/noshow/internal/io"
	"golang.org/x/exp/constraints"
)

// Kind is the chart type.
type Kind int

const (
	// Bar is one value per category.
	Bar Kind = iota
	// GroupedBar is one value per category and series.
	GroupedBar
	// Histogram is a count per bin and series over shared bins.
	Histogram
	// Heatmap is a matrix of values with labelled rows and columns.
	Heatmap
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case Bar:
		return "bar"
	case GroupedBar:
		return "grouped_bar"
	case Histogram:
		return "histogram"
	case Heatmap:
		return "heatmap"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name in JSON reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Series is one named row of values aligned with Chart.Categories.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Chart is a computed view. For a Heatmap each series is a matrix row.
type Chart struct {
	Title      string   `json:"title"`
	Kind       Kind     `json:"kind"`
	XLabel     string   `json:"x_label,omitempty"`
	Categories []string `json:"categories"`
	Series     []Series `json:"series"`
}

// DefaultBins is the bin count of the distribution histograms.
const DefaultBins = 30

// DataViews computes the four views of the cleaned table: label counts,
// no-show by SMS, and the age and waiting-days distributions by label.
func DataViews(df *dataframe.DataFrame) ([]*Chart, error) {
	labels, labelValid, err := df.Int64Values(io.ColNoShow)
	if err != nil {
		return nil, err
	}

	counts := ShowCounts(labels, labelValid)

	sms, smsValid, err := df.Int64Values(io.ColSMSReceived)
	if err != nil {
		return nil, err
	}
	bySMS := NoShowBySMS(sms, smsValid, labels, labelValid)

	ages, ageValid, err := df.Int64Values(io.ColAge)
	if err != nil {
		return nil, err
	}
	age, err := LabelHistogram("Age distribution by no-show", io.ColAge, ages, ageValid, labels, labelValid, DefaultBins)
	if err != nil {
		return nil, err
	}

	waiting, waitingValid, err := df.Int64Values(io.ColWaitingDays)
	if err != nil {
		return nil, err
	}
	wait, err := LabelHistogram("Waiting days distribution by no-show", io.ColWaitingDays,
		waiting, waitingValid, labels, labelValid, DefaultBins)
	if err != nil {
		return nil, err
	}

	return []*Chart{counts, bySMS, age, wait}, nil
}

// ShowCounts counts rows per no-show label, nulls skipped.
func ShowCounts(labels []int64, valid []bool) *Chart {
	values := make([]float64, 2)
	for i, l := range labels {
		if valid[i] && (l == clean.Show || l == clean.NoShow) {
			values[l]++
		}
	}
	return &Chart{
		Title:      "Count of show vs no-show",
		Kind:       Bar,
		XLabel:     io.ColNoShow,
		Categories: classNames(),
		Series:     []Series{{Name: "count", Values: values}},
	}
}

// NoShowBySMS counts labels within each SMS-received group.
func NoShowBySMS(sms []int64, smsValid []bool, labels []int64, labelValid []bool) *Chart {
	show := make([]float64, 2)
	noShow := make([]float64, 2)
	for i := range sms {
		if !smsValid[i] || !labelValid[i] || (sms[i] != 0 && sms[i] != 1) {
			continue
		}
		switch labels[i] {
		case clean.Show:
			show[sms[i]]++
		case clean.NoShow:
			noShow[sms[i]]++
		}
	}
	return &Chart{
		Title:      "No-show by SMS received",
		Kind:       GroupedBar,
		XLabel:     io.ColSMSReceived,
		Categories: []string{"0", "1"},
		Series: []Series{
			{Name: evaluate.ClassNames[0], Values: show},
			{Name: evaluate.ClassNames[1], Values: noShow},
		},
	}
}

// LabelHistogram bins values into bins equal-width bins spanning all valid
// values, counted separately per no-show label. The last bin includes the
// maximum.
func LabelHistogram[T constraints.Integer | constraints.Float](
	title, xLabel string, values []T, valid []bool, labels []int64, labelValid []bool, bins int,
) (*Chart, error) {
	if bins < 1 {
		return nil, errors.NewValueError("Histogram", fmt.Sprintf("bins must be positive, got %d", bins))
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range values {
		if valid[i] && labelValid[i] {
			lo = math.Min(lo, float64(v))
			hi = math.Max(hi, float64(v))
		}
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	width := (hi - lo) / float64(bins)
	if width == 0 {
		width = 1
	}

	counts := [2][]float64{make([]float64, bins), make([]float64, bins)}
	for i, v := range values {
		if !valid[i] || !labelValid[i] || (labels[i] != clean.Show && labels[i] != clean.NoShow) {
			continue
		}
		bin := min(int((float64(v)-lo)/width), bins-1)
		counts[labels[i]][bin]++
	}

	categories := make([]string, bins)
	for b := range categories {
		categories[b] = fmt.Sprintf("[%.1f, %.1f)", lo+float64(b)*width, lo+float64(b+1)*width)
	}
	categories[bins-1] = fmt.Sprintf("[%.1f, %.1f]", lo+float64(bins-1)*width, lo+float64(bins)*width)

	return &Chart{
		Title:      title,
		Kind:       Histogram,
		XLabel:     xLabel,
		Categories: categories,
		Series: []Series{
			{Name: evaluate.ClassNames[0], Values: counts[0]},
			{Name: evaluate.ClassNames[1], Values: counts[1]},
		},
	}, nil
}

// Importances charts feature importances in the given order.
func Importances(importances []evaluate.Importance) *Chart {
	categories := make([]string, len(importances))
	values := make([]float64, len(importances))
	for i, imp := range importances {
		categories[i] = imp.Feature
		values[i] = imp.Score
	}
	return &Chart{
		Title:      "Feature importances",
		Kind:       Bar,
		XLabel:     "feature",
		Categories: categories,
		Series:     []Series{{Name: "importance", Values: values}},
	}
}

// ConfusionHeatmap charts a confusion matrix, rows actual, columns predicted.
func ConfusionHeatmap(title string, m evaluate.ConfusionMatrix) *Chart {
	series := make([]Series, len(m))
	for a := range m {
		series[a] = Series{
			Name:   evaluate.ClassNames[a],
			Values: []float64{float64(m[a][0]), float64(m[a][1])},
		}
	}
	return &Chart{
		Title:      title,
		Kind:       Heatmap,
		XLabel:     "predicted",
		Categories: classNames(),
		Series:     series,
	}
}

// ClassScores charts precision, recall and F1 for each class.
func ClassScores(title string, r *evaluate.Report) *Chart {
	series := make([]Series, len(r.Classes))
	for i, c := range r.Classes {
		series[i] = Series{Name: c.Label, Values: []float64{c.Precision, c.Recall, c.F1}}
	}
	return &Chart{
		Title:      title,
		Kind:       GroupedBar,
		XLabel:     "metric",
		Categories: []string{"precision", "recall", "f1-score"},
		Series:     series,
	}
}

func classNames() []string {
	return []string{evaluate.ClassNames[0], evaluate.ClassNames[1]}
}
