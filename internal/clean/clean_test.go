package clean_test

import (
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/noshow/internal/clean"
	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "PatientId,AppointmentID,Gender,ScheduledDay,AppointmentDay,Age,Neighbourhood," +
	"Scholarship,Hipertension,Diabetes,Alcoholism,Handcap,SMS_received,No-show\n"

// Rows cover: same-day booking, a multi-day wait, a negative age, an unknown
// gender, an unparsable appointment and an unknown label.
const messyRows = `1,10,F,2016-04-29T18:38:08Z,2016-04-29T00:00:00Z,62,CENTRO,0,1,0,0,0,0,No
2,11,M,2016-04-20T08:00:00Z,2016-04-29T00:00:00Z,56,CENTRO,0,0,0,0,0,1,Yes
3,12,F,2016-04-21T08:00:00Z,2016-04-29T00:00:00Z,-1,CENTRO,0,0,0,0,0,0,No
4,13,X,2016-04-22T08:00:00Z,2016-04-29T00:00:00Z,30,CENTRO,0,0,0,0,0,0,No
5,14,F,2016-04-23T08:00:00Z,not-a-date,10,CENTRO,0,0,0,0,0,1,Yes
6,15,M,2016-05-01 10:00:00,2016-05-03,0,CENTRO,0,0,0,0,0,0,Maybe
`

func load(t *testing.T, rows string) *dataframe.DataFrame {
	t.Helper()
	reader := io.NewCSVReader(strings.NewReader(header+rows), io.AppointmentSchema(), io.DefaultCSVOptions(), memory.NewGoAllocator())
	df, err := reader.Read()
	require.NoError(t, err)
	return df
}

func TestClean(t *testing.T) {
	t.Run("drop policy", func(t *testing.T) {
		df := load(t, messyRows)
		defer df.Release()

		result, err := clean.Clean(df, clean.DefaultOptions(), memory.NewGoAllocator())
		require.NoError(t, err)
		defer result.Frame.Release()

		assert.Equal(t, clean.Stats{
			InputRows:            6,
			NegativeAge:          1,
			UnknownGender:        1,
			UnknownNoShow:        1,
			DroppedUnknown:       2,
			UnparsedAppointments: 1,
			MissingWaitingDays:   1,
			OutputRows:           3,
		}, result.Stats)

		ids, _, err := result.Frame.StringValues(io.ColPatientID)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "5"}, ids)

		waiting, valid, err := result.Frame.Int64Values(io.ColWaitingDays)
		require.NoError(t, err)
		assert.Equal(t, []int64{-1, 8, 0}, waiting)
		assert.Equal(t, []bool{true, true, false}, valid)

		gender, _, err := result.Frame.Int64Values(io.ColGender)
		require.NoError(t, err)
		assert.Equal(t, []int64{clean.Female, clean.Male, clean.Female}, gender)

		labels, _, err := result.Frame.Int64Values(io.ColNoShow)
		require.NoError(t, err)
		assert.Equal(t, []int64{clean.Show, clean.NoShow, clean.NoShow}, labels)

		ages, _, err := result.Frame.Int64Values(io.ColAge)
		require.NoError(t, err)
		for _, age := range ages {
			assert.GreaterOrEqual(t, age, int64(0))
		}
	})

	t.Run("keep policy leaves nulls", func(t *testing.T) {
		df := load(t, messyRows)
		defer df.Release()

		result, err := clean.Clean(df, clean.Options{UnknownCategory: clean.PolicyKeep}, nil)
		require.NoError(t, err)
		defer result.Frame.Release()

		assert.Equal(t, 5, result.Stats.OutputRows)
		assert.Equal(t, 0, result.Stats.DroppedUnknown)

		_, genderValid, err := result.Frame.Int64Values(io.ColGender)
		require.NoError(t, err)
		assert.Equal(t, []bool{true, true, false, true, true}, genderValid)

		_, labelValid, err := result.Frame.Int64Values(io.ColNoShow)
		require.NoError(t, err)
		assert.Equal(t, []bool{true, true, true, true, false}, labelValid)

		waiting, _, err := result.Frame.Int64Values(io.ColWaitingDays)
		require.NoError(t, err)
		assert.Equal(t, int64(1), waiting[4])
	})

	t.Run("fail policy", func(t *testing.T) {
		df := load(t, messyRows)
		defer df.Release()

		result, err := clean.Clean(df, clean.Options{UnknownCategory: clean.PolicyFail}, nil)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, errors.ErrValue)

		var pipelineErr *errors.PipelineError
		require.ErrorAs(t, err, &pipelineErr)
		assert.Equal(t, io.ColGender, pipelineErr.Column)
		assert.Contains(t, pipelineErr.Message, "record 4")
	})

	t.Run("timestamps become typed columns", func(t *testing.T) {
		df := load(t, messyRows)
		defer df.Release()

		result, err := clean.Clean(df, clean.DefaultOptions(), nil)
		require.NoError(t, err)
		defer result.Frame.Release()

		scheduled, _, err := result.Frame.TimeValues(io.ColScheduledDay)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2016, 4, 29, 18, 38, 8, 0, time.UTC), scheduled[0])

		_, appointmentValid, err := result.Frame.TimeValues(io.ColAppointmentDay)
		require.NoError(t, err)
		assert.Equal(t, []bool{true, true, false}, appointmentValid)
	})

	t.Run("unparsable scheduled timestamp", func(t *testing.T) {
		df := load(t, "1,10,F,yesterday,2016-04-29T00:00:00Z,62,CENTRO,0,0,0,0,0,0,No\n")
		defer df.Release()

		_, err := clean.Clean(df, clean.DefaultOptions(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrParse)
		assert.Contains(t, err.Error(), "scheduled_day")
	})

	t.Run("empty scheduled timestamp", func(t *testing.T) {
		df := load(t, "1,10,F,2016-04-20T08:00:00Z,2016-04-29T00:00:00Z,62,CENTRO,0,0,0,0,0,0,No\n"+
			"2,11,M,,2016-04-29T00:00:00Z,56,CENTRO,0,0,0,0,0,1,Yes\n")
		defer df.Release()

		result, err := clean.Clean(df, clean.DefaultOptions(), nil)
		require.NoError(t, err)
		defer result.Frame.Release()

		assert.Equal(t, 2, result.Stats.OutputRows)
		assert.Equal(t, 1, result.Stats.MissingScheduled)
		assert.Equal(t, 1, result.Stats.MissingWaitingDays)

		waiting, valid, err := result.Frame.Int64Values(io.ColWaitingDays)
		require.NoError(t, err)
		assert.Equal(t, int64(8), waiting[0])
		assert.Equal(t, []bool{true, false}, valid)

		_, scheduledValid, err := result.Frame.TimeValues(io.ColScheduledDay)
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false}, scheduledValid)
	})

	t.Run("missing column", func(t *testing.T) {
		df := load(t, messyRows)
		defer df.Release()
		partial := df.Select(io.ColGender, io.ColNoShow)
		defer partial.Release()

		_, err := clean.Clean(partial, clean.DefaultOptions(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrValue)
	})

	t.Run("input is untouched", func(t *testing.T) {
		df := load(t, messyRows)
		defer df.Release()

		result, err := clean.Clean(df, clean.DefaultOptions(), nil)
		require.NoError(t, err)
		defer result.Frame.Release()

		assert.Equal(t, 6, df.Len())
		assert.False(t, df.HasColumn(io.ColWaitingDays))
		labels, _, err := df.StringValues(io.ColNoShow)
		require.NoError(t, err)
		assert.Equal(t, "Maybe", labels[5])
	})
}

func TestWaitingDays(t *testing.T) {
	base := time.Date(2016, 4, 29, 18, 38, 8, 0, time.UTC)
	tests := []struct {
		name        string
		appointment time.Time
		want        int64
	}{
		{name: "same instant", appointment: base, want: 0},
		{name: "midnight same day", appointment: time.Date(2016, 4, 29, 0, 0, 0, 0, time.UTC), want: -1},
		{name: "exactly one day", appointment: base.Add(24 * time.Hour), want: 1},
		{name: "just under two days", appointment: base.Add(47 * time.Hour), want: 1},
		{name: "exactly one day back", appointment: base.Add(-24 * time.Hour), want: -1},
		{name: "a day and a bit back", appointment: base.Add(-25 * time.Hour), want: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clean.WaitingDays(base, tt.appointment))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2016, 4, 29, 18, 38, 8, 0, time.UTC)
	for _, s := range []string{"2016-04-29T18:38:08Z", "2016-04-29 18:38:08", "2016-04-29T18:38:08", " 2016-04-29T18:38:08Z "} {
		got, err := clean.ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	day, err := clean.ParseTimestamp("2016-04-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, 4, 29, 0, 0, 0, 0, time.UTC), day)

	_, err = clean.ParseTimestamp("29/04/2016")
	assert.Error(t, err)
}

func TestEncodings(t *testing.T) {
	for _, g := range []string{"F", "M"} {
		code, ok := clean.EncodeGender(g)
		require.True(t, ok)
		back, ok := clean.DecodeGender(code)
		require.True(t, ok)
		assert.Equal(t, g, back)
	}
	for _, l := range []string{"No", "Yes"} {
		code, ok := clean.EncodeNoShow(l)
		require.True(t, ok)
		back, ok := clean.DecodeNoShow(code)
		require.True(t, ok)
		assert.Equal(t, l, back)
	}

	_, ok := clean.EncodeGender("f")
	assert.False(t, ok)
	_, ok = clean.EncodeNoShow("yes")
	assert.False(t, ok)
	_, ok = clean.DecodeNoShow(2)
	assert.False(t, ok)

	assert.Equal(t, "No-show", clean.ClassName(1))
	assert.Equal(t, "Show", clean.ClassName(0))
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"drop", "fail", "keep"} {
		p, err := clean.ParsePolicy(name)
		require.NoError(t, err)
		assert.Equal(t, clean.Policy(name), p)
	}

	_, err := clean.ParsePolicy("ignore")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfig)
}
