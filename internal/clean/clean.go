// Package clean turns the loaded appointment table into the modelling table:
// it parses the scheduling timestamps, derives waiting_days, drops rows with
// a negative age and encodes gender and the no-show label as integers.
package clean

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/noshow/internal/dataframe"
	"github.com/paveg/noshow/internal/errors"
	"github.com/paveg/noshow/internal/io"
	"github.com/paveg/noshow/internal/series"
	"github.com/paveg/noshow/internal/validation"
)

const opClean = "Clean"

// Policy decides what happens to a row whose gender or no-show value is
// outside the known vocabulary.
type Policy string

const (
	// PolicyDrop removes the row and counts it.
	PolicyDrop Policy = "drop"
	// PolicyFail aborts cleaning with a ValueError.
	PolicyFail Policy = "fail"
	// PolicyKeep keeps the row with a null encoding.
	PolicyKeep Policy = "keep"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyDrop, PolicyFail, PolicyKeep:
		return p, nil
	default:
		return "", errors.NewConfigError("unknown_category", fmt.Sprintf("unknown policy %q", s))
	}
}

// Options configures cleaning
type Options struct {
	UnknownCategory Policy
}

// DefaultOptions drops rows with unknown categories.
func DefaultOptions() Options {
	return Options{UnknownCategory: PolicyDrop}
}

// Stats counts what cleaning did to the table.
type Stats struct {
	InputRows            int `json:"input_rows"`
	NegativeAge          int `json:"negative_age"`
	UnknownGender        int `json:"unknown_gender"`
	UnknownNoShow        int `json:"unknown_no_show"`
	DroppedUnknown       int `json:"dropped_unknown"`
	MissingScheduled     int `json:"missing_scheduled"`
	UnparsedAppointments int `json:"unparsed_appointments"`
	MissingWaitingDays   int `json:"missing_waiting_days"`
	OutputRows           int `json:"output_rows"`
}

// Result is the cleaned table and its statistics.
type Result struct {
	Frame *dataframe.DataFrame
	Stats Stats
}

// Clean derives the modelling table from a loaded appointment table. The
// input is not modified; the caller owns and releases Result.Frame.
func Clean(df *dataframe.DataFrame, opts Options, mem memory.Allocator) (*Result, error) {
	if err := validation.ValidateColumns(df, opClean,
		io.ColScheduledDay, io.ColAppointmentDay, io.ColAge, io.ColGender, io.ColNoShow); err != nil {
		return nil, err
	}
	if opts.UnknownCategory == "" {
		opts.UnknownCategory = PolicyDrop
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	n := df.Len()
	stats := Stats{InputRows: n}

	scheduled, scheduledValid, missing, err := parseScheduled(df)
	if err != nil {
		return nil, err
	}
	stats.MissingScheduled = missing
	appointment, appointmentValid, unparsed, err := parseAppointments(df)
	if err != nil {
		return nil, err
	}
	stats.UnparsedAppointments = unparsed

	waiting := make([]int64, n)
	waitingValid := make([]bool, n)
	for i := range waiting {
		if scheduledValid[i] && appointmentValid[i] {
			waiting[i] = WaitingDays(scheduled[i], appointment[i])
			waitingValid[i] = true
		}
	}

	keep, err := ageMask(df, &stats)
	if err != nil {
		return nil, err
	}

	gender, genderValid, err := encodeColumn(df, io.ColGender, EncodeGender, keep, opts.UnknownCategory, &stats.UnknownGender)
	if err != nil {
		return nil, err
	}
	noShow, noShowValid, err := encodeColumn(df, io.ColNoShow, EncodeNoShow, keep, opts.UnknownCategory, &stats.UnknownNoShow)
	if err != nil {
		return nil, err
	}
	if opts.UnknownCategory == PolicyDrop {
		for i := range keep {
			if keep[i] && (!genderValid[i] || !noShowValid[i]) {
				keep[i] = false
				stats.DroppedUnknown++
			}
		}
	}

	replacements := make([]dataframe.ISeries, 0, 5)
	release := func() {
		for _, s := range replacements {
			s.Release()
		}
	}
	for _, build := range []func() (dataframe.ISeries, error){
		func() (dataframe.ISeries, error) { return newSeries(io.ColScheduledDay, scheduled, scheduledValid, mem) },
		func() (dataframe.ISeries, error) {
			return newSeries(io.ColAppointmentDay, appointment, appointmentValid, mem)
		},
		func() (dataframe.ISeries, error) { return newSeries(io.ColGender, gender, genderValid, mem) },
		func() (dataframe.ISeries, error) { return newSeries(io.ColNoShow, noShow, noShowValid, mem) },
		func() (dataframe.ISeries, error) { return newSeries(io.ColWaitingDays, waiting, waitingValid, mem) },
	} {
		s, err := build()
		if err != nil {
			release()
			return nil, err
		}
		replacements = append(replacements, s)
	}

	derived := df.WithColumns(replacements...)
	defer derived.Release()

	cleaned, err := derived.Filter(keep, mem)
	if err != nil {
		return nil, err
	}

	if col, ok := cleaned.Column(io.ColWaitingDays); ok {
		stats.MissingWaitingDays = col.NullCount()
	}
	stats.OutputRows = cleaned.Len()

	return &Result{Frame: cleaned, Stats: stats}, nil
}

// parseScheduled parses the booking timestamps. Empty cells become nulls;
// text that is present but unparsable is fatal.
func parseScheduled(df *dataframe.DataFrame) ([]time.Time, []bool, int, error) {
	raw, valid, err := df.StringValues(io.ColScheduledDay)
	if err != nil {
		return nil, nil, 0, err
	}
	parsed := make([]time.Time, len(raw))
	ok := make([]bool, len(raw))
	missing := 0
	for i, s := range raw {
		if !valid[i] {
			missing++
			continue
		}
		t, err := ParseTimestamp(s)
		if err != nil {
			return nil, nil, 0, errors.NewParseError(opClean, io.ColScheduledDay, 0,
				fmt.Sprintf("record %d: %v", i+1, err), err)
		}
		parsed[i] = t
		ok[i] = true
	}
	return parsed, ok, missing, nil
}

// parseAppointments parses appointment timestamps leniently: unparsable
// values become nulls
func parseAppointments(df *dataframe.DataFrame) ([]time.Time, []bool, int, error) {
	raw, valid, err := df.StringValues(io.ColAppointmentDay)
	if err != nil {
		return nil, nil, 0, err
	}
	parsed := make([]time.Time, len(raw))
	ok := make([]bool, len(raw))
	unparsed := 0
	for i, s := range raw {
		if !valid[i] {
			continue
		}
		t, err := ParseTimestamp(s)
		if err != nil {
			unparsed++
			continue
		}
		parsed[i] = t
		ok[i] = true
	}
	return parsed, ok, unparsed, nil
}

func ageMask(df *dataframe.DataFrame, stats *Stats) ([]bool, error) {
	ages, valid, err := df.Int64Values(io.ColAge)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, len(ages))
	for i, age := range ages {
		if valid[i] && age >= 0 {
			keep[i] = true
			continue
		}
		stats.NegativeAge++
	}
	return keep, nil
}

// encodeColumn maps a string column through encode for the rows still kept.
// Unknown values become nulls, or an error under PolicyFail.
func encodeColumn(
	df *dataframe.DataFrame, column string, encode func(string) (int64, bool),
	keep []bool, policy Policy, unknown *int,
) ([]int64, []bool, error) {
	raw, valid, err := df.StringValues(column)
	if err != nil {
		return nil, nil, err
	}
	encoded := make([]int64, len(raw))
	ok := make([]bool, len(raw))
	for i, s := range raw {
		if valid[i] {
			encoded[i], ok[i] = encode(s)
		}
		if ok[i] || !keep[i] {
			continue
		}
		*unknown++
		if policy == PolicyFail {
			return nil, nil, errors.NewValidationError(opClean, column,
				fmt.Sprintf("record %d: value %q is outside the known categories", i+1, s))
		}
	}
	return encoded, ok, nil
}

func newSeries[T any](name string, values []T, valid []bool, mem memory.Allocator) (dataframe.ISeries, error) {
	s, err := series.NewNullable(name, values, valid, mem)
	if err != nil {
		return nil, err
	}
	return s, nil
}
