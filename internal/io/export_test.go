package io_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/io"
	"github.com/paveg/noshow/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanedFrame(t *testing.T, mem memory.Allocator) *dataframe.DataFrame {
	t.Helper()
	waiting, err := series.NewNullable("waiting_days", []int64{0, 3}, []bool{false, true}, mem)
	require.NoError(t, err)
	scheduled := []time.Time{
		time.Date(2016, 4, 29, 18, 38, 8, 0, time.UTC),
		time.Date(2016, 4, 26, 8, 0, 0, 0, time.UTC),
	}
	return dataframe.New(
		series.New("patient_id", []string{"29872499824296", "558997776694438"}, mem),
		series.New("scheduled_day", scheduled, mem),
		waiting,
	)
}

func TestJSONWriter(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := cleanedFrame(t, mem)
	defer df.Release()

	var buf bytes.Buffer
	require.NoError(t, io.NewJSONWriter(&buf).Write(df))

	var rows []map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)
	assert.Equal(t, "29872499824296", rows[0]["patient_id"])
	assert.Nil(t, rows[0]["waiting_days"])
	assert.InDelta(t, 3.0, rows[1]["waiting_days"], 0)
	assert.Contains(t, rows[1], "scheduled_day")
}

func TestParquetWriter(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := cleanedFrame(t, mem)
	defer df.Release()

	t.Run("round trip through pqarrow", func(t *testing.T) {
		for _, codec := range []string{"snappy", "gzip", "zstd", "uncompressed"} {
			var buf bytes.Buffer
			opts := io.DefaultParquetOptions()
			opts.Compression = codec
			require.NoError(t, io.NewParquetWriter(&buf, opts).Write(df), codec)

			table, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(buf.Bytes()),
				parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
			require.NoError(t, err, codec)

			assert.Equal(t, int64(2), table.NumRows(), codec)
			assert.Equal(t, int64(3), table.NumCols(), codec)
			assert.Equal(t, "scheduled_day", table.Schema().Field(1).Name, codec)
			assert.Equal(t, 1, table.Column(2).NullN(), codec)
			table.Release()
		}
	})

	t.Run("leaves the sink open", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cleaned.parquet")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, io.NewParquetWriter(f, io.DefaultParquetOptions()).Write(df))
		require.NoError(t, f.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		table, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(data),
			parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
		require.NoError(t, err)
		defer table.Release()
		assert.Equal(t, int64(2), table.NumRows())
	})

	t.Run("unknown compression", func(t *testing.T) {
		opts := io.DefaultParquetOptions()
		opts.Compression = "brotli-9000"
		err := io.NewParquetWriter(&bytes.Buffer{}, opts).Write(df)
		assert.Error(t, err)
	})
}

func TestWriteFile(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := cleanedFrame(t, mem)
	defer df.Release()
	dir := t.TempDir()

	for _, name := range []string{"cleaned.csv", "cleaned.jsonl", "cleaned.json", "cleaned.parquet"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, io.WriteFile(path, df))
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}

	t.Run("unsupported extension", func(t *testing.T) {
		err := io.WriteFile(filepath.Join(dir, "cleaned.xlsx"), df)
		assert.ErrorIs(t, err, errors.ErrConfig)
	})

	t.Run("unwritable path", func(t *testing.T) {
		err := io.WriteFile(filepath.Join(dir, "missing", "cleaned.csv"), df)
		assert.ErrorIs(t, err, errors.ErrIO)
		assert.Contains(t, err.Error(), "cannot write")
	})
}
