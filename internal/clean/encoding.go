package clean

import (
	"fmt"
	"strings"
	"time"
)

// Encoded label values.
const (
	Female int64 = 0
	Male   int64 = 1

	Show   int64 = 0
	NoShow int64 = 1
)

// timestampLayouts are tried in order when parsing appointment timestamps.
//
//nolint:gochecknoglobals // read-only table
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

const day = 24 * time.Hour

// ParseTimestamp parses a scheduling timestamp in any accepted layout, in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// WaitingDays returns the whole days from scheduled to appointment, rounded
// toward negative infinity. An appointment at midnight of the day it was
// booked later in the afternoon is -1.
func WaitingDays(scheduled, appointment time.Time) int64 {
	gap := appointment.Sub(scheduled)
	days := gap / day
	if gap%day != 0 && gap < 0 {
		days--
	}
	return int64(days)
}

// EncodeGender maps "F" to 0 and "M" to 1.
func EncodeGender(s string) (int64, bool) {
	switch s {
	case "F":
		return Female, true
	case "M":
		return Male, true
	default:
		return 0, false
	}
}

// DecodeGender is the inverse of EncodeGender.
func DecodeGender(v int64) (string, bool) {
	switch v {
	case Female:
		return "F", true
	case Male:
		return "M", true
	default:
		return "", false
	}
}

// EncodeNoShow maps "No" to 0 and "Yes" to 1.
func EncodeNoShow(s string) (int64, bool) {
	switch s {
	case "No":
		return Show, true
	case "Yes":
		return NoShow, true
	default:
		return 0, false
	}
}

// DecodeNoShow is the inverse of EncodeNoShow.
func DecodeNoShow(v int64) (string, bool) {
	switch v {
	case Show:
		return "No", true
	case NoShow:
		return "Yes", true
	default:
		return "", false
	}
}

// ClassName is the display name of an encoded no-show label.
func ClassName(v int) string {
	if int64(v) == NoShow {
		return "No-show"
	}
	return "Show"
}
