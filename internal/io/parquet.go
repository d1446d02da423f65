package io

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/noshow/internal/dataframe"
)

// ParquetOptions contains configuration options for Parquet export
type ParquetOptions struct {
	// Compression is snappy, gzip, lz4, zstd or uncompressed (default: snappy)
	Compression string
	// RowGroupSize is the maximum number of rows per row group
	RowGroupSize int64
}

// DefaultParquetOptions returns default Parquet options
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression:  "snappy",
		RowGroupSize: 64 * 1024,
	}
}

// ParquetWriter writes DataFrames as a Parquet file
type ParquetWriter struct {
	writer  io.Writer
	options ParquetOptions
}

// NewParquetWriter creates a new Parquet writer with the specified options
func NewParquetWriter(writer io.Writer, options ParquetOptions) *ParquetWriter {
	return &ParquetWriter{
		writer:  writer,
		options: options,
	}
}

// Write writes the DataFrame as a single Parquet file. Column types carry
// over from the Arrow arrays, timestamps included.
func (w *ParquetWriter) Write(df *dataframe.DataFrame) error {
	codec, err := compressionCodec(w.options.Compression)
	if err != nil {
		return err
	}

	record := recordOf(df)
	defer record.Release()
	table := array.NewTableFromRecords(record.Schema(), []arrow.Record{record})
	defer table.Release()

	rowGroup := w.options.RowGroupSize
	if rowGroup <= 0 {
		rowGroup = DefaultParquetOptions().RowGroupSize
	}
	props := parquet.NewWriterProperties(parquet.WithCompression(codec))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(memory.NewGoAllocator()))

	// pqarrow closes any sink that is an io.Closer; the caller owns w.writer.
	sink := struct{ io.Writer }{w.writer}
	if err := pqarrow.WriteTable(table, sink, rowGroup, props, arrowProps); err != nil {
		return fmt.Errorf("writing parquet table: %w", err)
	}
	return nil
}

func compressionCodec(name string) (compress.Compression, error) {
	switch name {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("unsupported parquet compression %q", name)
	}
}

// recordOf wraps the frame's columns in an Arrow record without copying.
// Series.Array retains, so the extra references are dropped once the record
// holds its own. The caller releases the record.
func recordOf(df *dataframe.DataFrame) arrow.Record {
	names := df.Columns()
	fields := make([]arrow.Field, len(names))
	columns := make([]arrow.Array, len(names))
	for i, name := range names {
		s, _ := df.Column(name)
		columns[i] = s.Array()
		fields[i] = arrow.Field{Name: name, Type: columns[i].DataType(), Nullable: true}
	}
	record := array.NewRecord(arrow.NewSchema(fields, nil), columns, int64(df.Len()))
	for _, c := range columns {
		c.Release()
	}
	return record
}
