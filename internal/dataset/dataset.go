// Package dataset turns the cleaned appointment table into the numeric
// feature matrix and label vector the classifiers train on, and partitions
// them with class-stratified splits.
package dataset

import (
	"fmt"
	"sort"

	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/io"
	"github.com/paveg/noshow/internal/validation"
)

// DefaultFeatures are the model inputs, in matrix column order.
//
//nolint:gochecknoglobals // read-only table
var DefaultFeatures = []string{
	io.ColAge,
	io.ColGender,
	io.ColScholarship,
	io.ColHypertension,
	io.ColDiabetes,
	io.ColAlcoholism,
	io.ColHandicap,
	io.ColSMSReceived,
	io.ColWaitingDays,
}

// DefaultLabel is the target column.
const DefaultLabel = io.ColNoShow

// Dataset is a dense feature matrix with one integer class label per row.
// Rows are shared between a dataset and its subsets and must not be mutated.
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []int
}

// New creates a dataset, checking that X and Y line up.
func New(features []string, x [][]float64, y []int) (*Dataset, error) {
	if err := validation.ValidateLength(len(x), len(y), "Dataset", "labels"); err != nil {
		return nil, err
	}
	for i, row := range x {
		if len(row) != len(features) {
			return nil, errors.NewValidationError("Dataset", "",
				fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(features)))
		}
	}
	return &Dataset{Features: features, X: x, Y: y}, nil
}

// FromFrame extracts the feature columns and label column of df. Rows with a
// null feature or label are skipped; their count is returned.
func FromFrame(df *dataframe.DataFrame, features []string, label string) (*Dataset, int, error) {
	if len(features) == 0 {
		return nil, 0, errors.NewValueError("Dataset", "no feature columns given")
	}
	if err := validation.NewCompoundValidator(
		validation.NewColumnValidator(df, "Dataset", append([]string{label}, features...)...),
		validation.NewMinRowsValidator(df.Len(), 1, "Dataset"),
	).Validate(); err != nil {
		return nil, 0, err
	}

	n := df.Len()
	columns := make([][]float64, len(features))
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = true
	}
	for j, name := range features {
		values, ok, err := df.Float64Values(name)
		if err != nil {
			return nil, 0, err
		}
		columns[j] = values
		for i := range valid {
			valid[i] = valid[i] && ok[i]
		}
	}
	labels, labelValid, err := df.Int64Values(label)
	if err != nil {
		return nil, 0, err
	}

	x := make([][]float64, 0, n)
	y := make([]int, 0, n)
	dropped := 0
	for i := 0; i < n; i++ {
		if !valid[i] || !labelValid[i] {
			dropped++
			continue
		}
		row := make([]float64, len(features))
		for j := range features {
			row[j] = columns[j][i]
		}
		x = append(x, row)
		y = append(y, int(labels[i]))
	}

	return &Dataset{Features: append([]string(nil), features...), X: x, Y: y}, dropped, nil
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Y)
}

// NumFeatures returns the number of feature columns
func (d *Dataset) NumFeatures() int {
	return len(d.Features)
}

// Subset returns the rows at indices, in that order.
func (d *Dataset) Subset(indices []int) *Dataset {
	x := make([][]float64, len(indices))
	y := make([]int, len(indices))
	for i, idx := range indices {
		x[i] = d.X[idx]
		y[i] = d.Y[idx]
	}
	return &Dataset{Features: d.Features, X: x, Y: y}
}

// ClassCounts counts rows per label.
func (d *Dataset) ClassCounts() map[int]int {
	return classCounts(d.Y)
}

// Classes returns the distinct labels in ascending order.
func (d *Dataset) Classes() []int {
	return sortedClasses(classCounts(d.Y))
}

// Proportion returns the share of rows labelled class.
func (d *Dataset) Proportion(class int) float64 {
	if d.Len() == 0 {
		return 0
	}
	return float64(classCounts(d.Y)[class]) / float64(d.Len())
}

func classCounts(y []int) map[int]int {
	counts := make(map[int]int)
	for _, label := range y {
		counts[label]++
	}
	return counts
}

func sortedClasses(counts map[int]int) []int {
	classes := make([]int, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}
