package dataframe

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/noshow/internal/errors"
)

// Int64Values returns the values and validity of an int64 column.
func (df *DataFrame) Int64Values(column string) ([]int64, []bool, error) {
	return typedValues(df, "Int64Values", column, func(arr *array.Int64, i int) int64 {
		return arr.Value(i)
	})
}

// StringValues returns the values and validity of a string column.
func (df *DataFrame) StringValues(column string) ([]string, []bool, error) {
	return typedValues(df, "StringValues", column, func(arr *array.String, i int) string {
		return arr.Value(i)
	})
}

// TimeValues returns the values and validity of a timestamp column.
func (df *DataFrame) TimeValues(column string) ([]time.Time, []bool, error) {
	return typedValues(df, "TimeValues", column, func(arr *array.Timestamp, i int) time.Time {
		return arr.Value(i).ToTime(arrow.Second)
	})
}

// Float64Values returns a numeric column widened to float64.
// Int64, float64 and boolean columns are accepted.
func (df *DataFrame) Float64Values(column string) ([]float64, []bool, error) {
	s, ok := df.columns[column]
	if !ok {
		return nil, nil, columnNotFound("Float64Values", column)
	}
	arr := s.Array()
	defer arr.Release()

	var at func(int) float64
	switch typed := arr.(type) {
	case *array.Int64:
		at = func(i int) float64 { return float64(typed.Value(i)) }
	case *array.Float64:
		at = typed.Value
	case *array.Boolean:
		at = func(i int) float64 {
			if typed.Value(i) {
				return 1
			}
			return 0
		}
	default:
		return nil, nil, errors.NewValidationError("Float64Values", column,
			fmt.Sprintf("column of type %s is not numeric", arr.DataType()))
	}

	values := make([]float64, arr.Len())
	valid := make([]bool, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		values[i] = at(i)
		valid[i] = true
	}
	return values, valid, nil
}

func typedValues[A arrow.Array, T any](
	df *DataFrame, op, column string, value func(A, int) T,
) ([]T, []bool, error) {
	s, ok := df.columns[column]
	if !ok {
		return nil, nil, columnNotFound(op, column)
	}
	arr := s.Array()
	defer arr.Release()

	typed, ok := arr.(A)
	if !ok {
		return nil, nil, errors.NewValidationError(op, column,
			fmt.Sprintf("unexpected column type %s", arr.DataType()))
	}

	values := make([]T, typed.Len())
	valid := make([]bool, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if typed.IsNull(i) {
			continue
		}
		values[i] = value(typed, i)
		valid[i] = true
	}
	return values, valid, nil
}

func columnNotFound(op, column string) error {
	return errors.NewColumnNotFoundError(op, column)
}
