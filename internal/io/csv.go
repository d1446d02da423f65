package io

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	stdio "io"
	"strconv"
	"strings"

	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/series"
)

const (
	opLoad   = "Load"
	opRead   = "ReadCSV"
	opExport = "Export"

	trueStr  = "true"
	falseStr = "false"
)

// Read reads CSV data and returns a DataFrame with one column per schema
// field, named by Field.Name. Columns not declared in the schema are ignored.
func (r *CSVReader) Read() (*dataframe.DataFrame, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace

	positions, err := r.resolvePositions(csvReader)
	if err != nil {
		return nil, err
	}

	// Transpose data to work with columns
	columns := make([][]string, len(r.schema.Fields))
	var lines []int
	for {
		record, err := csvReader.Read()
		if stderrors.Is(err, stdio.EOF) {
			break
		}
		if err != nil {
			return nil, wrapReadError(err)
		}
		line, _ := csvReader.FieldPos(0)
		lines = append(lines, line)
		for i, pos := range positions {
			columns[i] = append(columns[i], record[pos])
		}
	}

	seriesList := make([]dataframe.ISeries, 0, len(r.schema.Fields))
	for i, field := range r.schema.Fields {
		s, err := r.createSeries(field, columns[i], lines)
		if err != nil {
			for _, done := range seriesList {
				done.Release()
			}
			return nil, err
		}
		seriesList = append(seriesList, s)
	}

	return dataframe.New(seriesList...), nil
}

// resolvePositions maps each schema field to its record position
func (r *CSVReader) resolvePositions(csvReader *csv.Reader) ([]int, error) {
	positions := make([]int, len(r.schema.Fields))

	if !r.options.Header {
		for i := range positions {
			positions[i] = i
		}
		csvReader.FieldsPerRecord = len(positions)
		return positions, nil
	}

	header, err := csvReader.Read()
	if stderrors.Is(err, stdio.EOF) {
		return nil, errors.NewParseError(opRead, "", 1, "missing header row", nil)
	}
	if err != nil {
		return nil, wrapReadError(err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for i, field := range r.schema.Fields {
		pos, ok := index[field.Header]
		if !ok {
			return nil, errors.NewParseError(opRead, field.Header, 1, "declared column missing from header", nil)
		}
		positions[i] = pos
	}
	return positions, nil
}

// createSeries converts one column of cell text to its declared kind
func (r *CSVReader) createSeries(field Field, data []string, lines []int) (dataframe.ISeries, error) {
	switch field.Kind {
	case KindInt:
		return buildSeries(r, field, data, lines, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		})
	case KindFloat:
		return buildSeries(r, field, data, lines, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		})
	case KindBool:
		return buildSeries(r, field, data, lines, parseBool)
	default:
		return buildSeries(r, field, data, lines, func(s string) (string, error) {
			return s, nil
		})
	}
}

// buildSeries parses every cell, treating empty cells as nulls when the field
// allows it and failing with a ParseError otherwise
func buildSeries[T any](
	r *CSVReader, field Field, data []string, lines []int, parse func(string) (T, error),
) (dataframe.ISeries, error) {
	values := make([]T, len(data))
	valid := make([]bool, len(data))

	for i, raw := range data {
		cell := strings.TrimSpace(raw)
		if cell == "" {
			if !field.Nullable {
				return nil, errors.NewParseError(opRead, field.Header, lines[i], "empty value in non-nullable column", nil)
			}
			continue
		}
		v, err := parse(cell)
		if err != nil {
			return nil, errors.NewParseError(opRead, field.Header, lines[i],
				fmt.Sprintf("invalid %s %q", field.Kind, cell), err)
		}
		values[i] = v
		valid[i] = true
	}

	s, err := series.NewNullable(field.Name, values, valid, r.mem)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case trueStr, "1":
		return true, nil
	case falseStr, "0":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

// wrapReadError turns encoding/csv failures, including inconsistent field
// counts, into ParseErrors
func wrapReadError(err error) error {
	var parseErr *csv.ParseError
	if stderrors.As(err, &parseErr) {
		return errors.NewParseError(opRead, "", parseErr.Line, parseErr.Err.Error(), err)
	}
	return errors.NewParseError(opRead, "", 0, "reading CSV", err)
}

// Write writes the DataFrame to CSV format
func (w *CSVWriter) Write(df *dataframe.DataFrame) error {
	csvWriter := csv.NewWriter(w.writer)
	if w.options.Delimiter != 0 {
		csvWriter.Comma = w.options.Delimiter
	}

	columns := df.Columns()
	if w.options.Header {
		if err := csvWriter.Write(columns); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	row := make([]string, len(columns))
	for i := 0; i < df.Len(); i++ {
		for j, name := range columns {
			column, _ := df.Column(name)
			row[j] = column.GetAsString(i)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
