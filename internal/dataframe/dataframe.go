// Package dataframe provides the in-memory appointment table: an ordered set
// of Arrow-backed columns plus the row operations the pipeline needs.
package dataframe

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/series"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new DataFrame from a slice of ISeries. The frame takes
// ownership of the series.
func New(series ...ISeries) *DataFrame {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		if _, exists := columns[name]; !exists {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// Len returns the number of rows (assumes all columns have same length)
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	s, exists := df.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame sharing the specified columns.
// Unknown names are skipped.
func (df *DataFrame) Select(names ...string) *DataFrame {
	selected := make([]ISeries, 0, len(names))
	for _, name := range names {
		if s, exists := df.columns[name]; exists {
			s.Retain()
			selected = append(selected, s)
		}
	}
	return New(selected...)
}

// WithColumns returns a new DataFrame where each given series replaces the
// column of the same name, or is appended when no such column exists.
// Existing columns are shared; the new series are owned by the result.
func (df *DataFrame) WithColumns(replacements ...ISeries) *DataFrame {
	byName := make(map[string]ISeries, len(replacements))
	for _, s := range replacements {
		byName[s.Name()] = s
	}

	result := make([]ISeries, 0, len(df.order)+len(replacements))
	for _, name := range df.order {
		if s, ok := byName[name]; ok {
			result = append(result, s)
			delete(byName, name)
			continue
		}
		existing := df.columns[name]
		existing.Retain()
		result = append(result, existing)
	}
	for _, s := range replacements {
		if _, pending := byName[s.Name()]; pending {
			result = append(result, s)
		}
	}

	return New(result...)
}

// Take returns a new DataFrame holding the given rows, in the given order.
// Null slots stay null.
func (df *DataFrame) Take(indices []int, mem memory.Allocator) (*DataFrame, error) {
	n := df.Len()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, errors.NewValidationError("Take", "",
				fmt.Sprintf("index %d out of bounds [0, %d)", idx, n))
		}
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	taken := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		s, err := takeSeries(df.columns[name], indices, mem)
		if err != nil {
			for _, done := range taken {
				done.Release()
			}
			return nil, err
		}
		taken = append(taken, s)
	}
	return New(taken...), nil
}

// Filter returns the rows where keep is true.
func (df *DataFrame) Filter(keep []bool, mem memory.Allocator) (*DataFrame, error) {
	if len(keep) != df.Len() {
		return nil, errors.NewValidationError("Filter", "",
			fmt.Sprintf("mask length %d does not match %d rows", len(keep), df.Len()))
	}
	indices := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			indices = append(indices, i)
		}
	}
	return df.Take(indices, mem)
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}

	for _, name := range df.order {
		s := df.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s", name, s.DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, s := range df.columns {
		s.Release()
	}
}

func takeSeries(s ISeries, indices []int, mem memory.Allocator) (ISeries, error) {
	arr := s.Array()
	defer arr.Release()

	switch typed := arr.(type) {
	case *array.String:
		return takeTyped(s.Name(), typed, indices, mem, typed.Value)
	case *array.Int64:
		return takeTyped(s.Name(), typed, indices, mem, typed.Value)
	case *array.Float64:
		return takeTyped(s.Name(), typed, indices, mem, typed.Value)
	case *array.Boolean:
		return takeTyped(s.Name(), typed, indices, mem, typed.Value)
	case *array.Timestamp:
		return takeTyped(s.Name(), typed, indices, mem, func(i int) time.Time {
			return typed.Value(i).ToTime(arrow.Second)
		})
	default:
		return nil, errors.NewValidationError("Take", s.Name(),
			fmt.Sprintf("unsupported type: %s", arr.DataType()))
	}
}

// takeTyped gathers values and validity for one typed column
func takeTyped[T any](
	name string, arr arrow.Array, indices []int, mem memory.Allocator, value func(int) T,
) (ISeries, error) {
	values := make([]T, len(indices))
	valid := make([]bool, len(indices))
	for i, src := range indices {
		if arr.IsNull(src) {
			continue
		}
		values[i] = value(src)
		valid[i] = true
	}
	s, err := series.NewNullable(name, values, valid, mem)
	if err != nil {
		return nil, err
	}
	return s, nil
}
