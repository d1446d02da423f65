package io_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/io"
	"github.com/paveg/noshow/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appointmentsCSV = `PatientId,AppointmentID,Gender,ScheduledDay,AppointmentDay,Age,Neighbourhood,Scholarship,Hipertension,Diabetes,Alcoholism,Handcap,SMS_received,No-show
29872499824296,5642903,F,2016-04-29T18:38:08Z,2016-04-29T00:00:00Z,62,JARDIM DA PENHA,0,1,0,0,0,0,No
558997776694438,5642503,M,2016-04-29T16:08:27Z,2016-04-29T00:00:00Z,56,JARDIM DA PENHA,0,0,0,0,0,0,No
4262962299951,5642549,F,2016-04-29T16:19:04Z,,62,MATA DA PRAIA,0,0,0,0,0,0,Yes
`

func readAppointments(t *testing.T, data string) (*dataframe.DataFrame, error) {
	t.Helper()
	reader := io.NewCSVReader(strings.NewReader(data), io.AppointmentSchema(), io.DefaultCSVOptions(), memory.NewGoAllocator())
	return reader.Read()
}

func TestCSVReader(t *testing.T) {
	t.Run("reads the appointment layout", func(t *testing.T) {
		df, err := readAppointments(t, appointmentsCSV)
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, 3, df.Len())
		assert.Equal(t, io.AppointmentSchema().Names(), df.Columns())

		ages, _, err := df.Int64Values(io.ColAge)
		require.NoError(t, err)
		assert.Equal(t, []int64{62, 56, 62}, ages)

		labels, _, err := df.StringValues(io.ColNoShow)
		require.NoError(t, err)
		assert.Equal(t, []string{"No", "No", "Yes"}, labels)

		ids, _, err := df.StringValues(io.ColPatientID)
		require.NoError(t, err)
		assert.Equal(t, "29872499824296", ids[0])
	})

	t.Run("empty nullable cell loads as null", func(t *testing.T) {
		df, err := readAppointments(t, appointmentsCSV)
		require.NoError(t, err)
		defer df.Release()

		col, ok := df.Column(io.ColAppointmentDay)
		require.True(t, ok)
		assert.True(t, col.IsNull(2))
		assert.Equal(t, 1, col.NullCount())
	})

	t.Run("empty scheduled day loads as null", func(t *testing.T) {
		df, err := readAppointments(t, strings.Replace(appointmentsCSV, ",2016-04-29T16:08:27Z,", ",,", 1))
		require.NoError(t, err)
		defer df.Release()

		col, ok := df.Column(io.ColScheduledDay)
		require.True(t, ok)
		assert.True(t, col.IsNull(1))
		assert.Equal(t, 1, col.NullCount())
	})

	t.Run("ignores undeclared columns and follows header order", func(t *testing.T) {
		data := "b,extra,a\n2,x,1\n4,y,3\n"
		schema := io.NewSchema(
			io.Field{Header: "a", Name: "a", Kind: io.KindInt},
			io.Field{Header: "b", Name: "b", Kind: io.KindFloat},
		)
		df, err := io.NewCSVReader(strings.NewReader(data), schema, io.DefaultCSVOptions(), nil).Read()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, []string{"a", "b"}, df.Columns())
		b, _, err := df.Float64Values("b")
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 4}, b)
	})

	t.Run("positional columns without header", func(t *testing.T) {
		schema := io.NewSchema(
			io.Field{Header: "flag", Name: "flag", Kind: io.KindBool},
			io.Field{Header: "name", Name: "name", Kind: io.KindString},
		)
		options := io.DefaultCSVOptions()
		options.Header = false
		options.Delimiter = ';'

		df, err := io.NewCSVReader(strings.NewReader("1;a\nfalse;b\n"), schema, options, nil).Read()
		require.NoError(t, err)
		defer df.Release()

		values, _, err := df.Float64Values("flag")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0}, values)
	})
}

func TestCSVReaderErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		contains string
	}{
		{
			name:     "empty input",
			data:     "",
			contains: "missing header row",
		},
		{
			name:     "missing declared column",
			data:     "PatientId,Gender\n1,F\n",
			contains: "declared column missing from header",
		},
		{
			name:     "inconsistent column count",
			data:     strings.Replace(appointmentsCSV, ",62,MATA DA PRAIA,", ",62,", 1),
			contains: "line 4",
		},
		{
			name:     "type mismatch",
			data:     strings.Replace(appointmentsCSV, ",56,", ",fifty-six,", 1),
			contains: `invalid int "fifty-six"`,
		},
		{
			name:     "empty non-nullable cell",
			data:     strings.Replace(appointmentsCSV, ",56,", ",,", 1),
			contains: "empty value in non-nullable column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readAppointments(t, tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrParse)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestCSVReaderTypeMismatchLine(t *testing.T) {
	_, err := readAppointments(t, strings.Replace(appointmentsCSV, ",56,", ",abc,", 1))
	require.Error(t, err)

	var pipelineErr *errors.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, "Age", pipelineErr.Column)
	assert.Equal(t, 3, pipelineErr.Row)
}

func TestReadCSVFile(t *testing.T) {
	t.Run("missing file is an IOError", func(t *testing.T) {
		_, err := io.ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"), io.AppointmentSchema(), io.DefaultCSVOptions(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrIO)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("reads from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "appointments.csv")
		require.NoError(t, os.WriteFile(path, []byte(appointmentsCSV), 0o600))

		df, err := io.ReadCSVFile(path, io.AppointmentSchema(), io.DefaultCSVOptions(), nil)
		require.NoError(t, err)
		defer df.Release()
		assert.Equal(t, 3, df.Len())
	})
}

func TestCSVWriter(t *testing.T) {
	mem := memory.NewGoAllocator()
	waiting, err := series.NewNullable("waiting_days", []int64{0, 3}, []bool{false, true}, mem)
	require.NoError(t, err)
	df := dataframe.New(series.New("gender", []int64{0, 1}, mem), waiting)
	defer df.Release()

	var buf bytes.Buffer
	require.NoError(t, io.NewCSVWriter(&buf, io.DefaultCSVOptions()).Write(df))
	assert.Equal(t, "gender,waiting_days\n0,\n1,3\n", buf.String())

	path := filepath.Join(t.TempDir(), "cleaned.csv")
	require.NoError(t, io.WriteCSVFile(path, df, io.DefaultCSVOptions()))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(written))
}
