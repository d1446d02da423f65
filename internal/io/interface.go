// Package io provides schema-checked CSV input and table export for the
// appointment table.
//
// Key components:
//   - Schema/Field declare every expected column and its type up front
//   - CSVReader loads a file into a DataFrame, failing fast on structure or
//     type mismatches instead of coercing
//   - CSVWriter, JSONWriter and ParquetWriter write a DataFrame back out;
//     WriteFile picks one by file extension
//
// Memory management: readers allocate through the supplied Arrow allocator;
// callers release the returned DataFrame.
package io

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/errors"
)

// DataReader defines the interface for reading data from various sources
type DataReader interface {
	// Read reads data from the source and returns a DataFrame
	Read() (*dataframe.DataFrame, error)
}

// DataWriter defines the interface for writing data to various destinations
type DataWriter interface {
	// Write writes the DataFrame to the destination
	Write(df *dataframe.DataFrame) error
}

// CSVOptions contains configuration options for CSV operations
type CSVOptions struct {
	// Delimiter is the field delimiter (default: comma)
	Delimiter rune
	// Comment is the comment character (default: 0 = disabled)
	Comment rune
	// Header indicates whether the first row contains headers.
	// Without a header, columns are matched to the schema by position.
	Header bool
	// SkipInitialSpace indicates whether to skip initial whitespace
	SkipInitialSpace bool
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:        ',',
		Comment:          0,
		Header:           true,
		SkipInitialSpace: false,
	}
}

// CSVReader reads CSV data and converts it to DataFrames
type CSVReader struct {
	reader  io.Reader
	schema  Schema
	options CSVOptions
	mem     memory.Allocator
}

// NewCSVReader creates a new CSV reader for the given schema
func NewCSVReader(reader io.Reader, schema Schema, options CSVOptions, mem memory.Allocator) *CSVReader {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &CSVReader{
		reader:  reader,
		schema:  schema,
		options: options,
		mem:     mem,
	}
}

// CSVWriter writes DataFrames to CSV format
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a new CSV writer with the specified options
func NewCSVWriter(writer io.Writer, options CSVOptions) *CSVWriter {
	return &CSVWriter{
		writer:  writer,
		options: options,
	}
}

// ReadCSVFile opens path and reads it with the given schema.
// A missing or unreadable file is reported as an IOError.
func ReadCSVFile(path string, schema Schema, options CSVOptions, mem memory.Allocator) (*dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError(opLoad, path, err)
	}
	defer f.Close()

	return NewCSVReader(f, schema, options, mem).Read()
}

// WriteCSVFile writes df to path, creating or truncating it.
func WriteCSVFile(path string, df *dataframe.DataFrame, options CSVOptions) error {
	return writeFile(path, df, func(w io.Writer) DataWriter { return NewCSVWriter(w, options) })
}

// WriteFile exports df in the format named by the path extension: .csv,
// .json or .jsonl (JSON Lines) and .parquet.
func WriteFile(path string, df *dataframe.DataFrame) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return WriteCSVFile(path, df, DefaultCSVOptions())
	case ".json", ".jsonl":
		return writeFile(path, df, func(w io.Writer) DataWriter { return NewJSONWriter(w) })
	case ".parquet":
		return writeFile(path, df, func(w io.Writer) DataWriter { return NewParquetWriter(w, DefaultParquetOptions()) })
	default:
		return errors.NewConfigError("export_cleaned",
			fmt.Sprintf("unsupported export format %q (want .csv, .json, .jsonl or .parquet)", ext))
	}
}

func writeFile(path string, df *dataframe.DataFrame, newWriter func(io.Writer) DataWriter) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIOError(opExport, path, err)
	}
	if err := newWriter(f).Write(df); err != nil {
		f.Close()
		return errors.NewIOError(opExport, path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewIOError(opExport, path, err)
	}
	return nil
}
