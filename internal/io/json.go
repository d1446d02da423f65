package io

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/noshow/internal/dataframe"
)

// JSONWriter writes DataFrames as JSON Lines, one object per row. Null
// cells are written as JSON null.
type JSONWriter struct {
	writer io.Writer
}

// NewJSONWriter creates a new JSON Lines writer
func NewJSONWriter(writer io.Writer) *JSONWriter {
	return &JSONWriter{writer: writer}
}

// Write writes the DataFrame to JSON Lines format
func (w *JSONWriter) Write(df *dataframe.DataFrame) error {
	record := recordOf(df)
	defer record.Release()

	if err := array.RecordToJSON(record, w.writer); err != nil {
		return fmt.Errorf("writing json lines: %w", err)
	}
	return nil
}
