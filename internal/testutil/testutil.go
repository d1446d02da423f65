// Package testutil provides shared fixtures for tests: allocators with
// cleanup and synthetic appointment files in the public dataset layout.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/noshow/internal/dataset"
)

// AppointmentHeader is the header line of the public appointment dataset.
const AppointmentHeader = "PatientId,AppointmentID,Gender,ScheduledDay,AppointmentDay,Age,Neighbourhood," +
	"Scholarship,Hipertension,Diabetes,Alcoholism,Handcap,SMS_received,No-show"

const timestampLayout = "2006-01-02T15:04:05Z"

var neighbourhoods = []string{"CENTRO", "JARDIM CAMBURI", "MARIA ORTIZ", "RESISTENCIA", "ITARARE", "JESUS DE NAZARETH"}

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator with automatic cleanup for tests.
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{
		Allocator: memory.NewGoAllocator(),
		cleanup:   func() {},
	}
}

// GenerateAppointments renders n synthetic appointments as CSV text.
//
// Roughly one in five patients misses the appointment. The chance of a
// no-show grows with the booking lead time, falls with age and rises for
// SMS recipients, so a forest has signal to learn. The output only
// depends on n and seed.
func GenerateAppointments(n int, seed int64) string {
	rng := dataset.NewRand(seed)
	base := time.Date(2016, time.April, 1, 0, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString(AppointmentHeader)
	b.WriteByte('\n')

	for i := range n {
		gender := "F"
		if rng.Float64() < 0.35 {
			gender = "M"
		}
		age := rng.IntN(90)
		wait := 0
		if rng.Float64() < 0.6 {
			wait = 1 + rng.IntN(40)
		}
		sms := 0
		if wait > 2 && rng.Float64() < 0.5 {
			sms = 1
		}
		scholarship := flag(rng.Float64() < 0.1)
		hypertension := flag(age > 40 && rng.Float64() < 0.4)
		diabetes := flag(age > 40 && rng.Float64() < 0.15)
		alcoholism := flag(rng.Float64() < 0.03)
		handicap := 0
		if rng.Float64() < 0.02 {
			handicap = 1 + rng.IntN(2)
		}

		p := 0.05 + 0.45*(1-math.Exp(-float64(wait)/12)) + 0.08*float64(sms) + 0.1*float64(scholarship)
		if age < 30 {
			p += 0.08
		}
		label := "No"
		if rng.Float64() < p*0.7 {
			label = "Yes"
		}

		scheduledDate := base.AddDate(0, 0, rng.IntN(30))
		scheduled := scheduledDate.Add(time.Duration(7*3600+rng.IntN(11*3600)) * time.Second)
		appointment := scheduledDate.AddDate(0, 0, wait)

		fmt.Fprintf(&b, "%d,%d,%s,%s,%s,%d,%s,%d,%d,%d,%d,%d,%d,%s\n",
			1_000_000+rng.IntN(n*3+1), 5_000_000+i, gender,
			scheduled.Format(timestampLayout), appointment.Format(timestampLayout),
			age, neighbourhoods[rng.IntN(len(neighbourhoods))],
			scholarship, hypertension, diabetes, alcoholism, handicap, sms, label)
	}
	return b.String()
}

// WriteAppointmentsCSV writes GenerateAppointments output to a file in a
// test-scoped temporary directory and returns its path.
func WriteAppointmentsCSV(tb testing.TB, n int, seed int64) string {
	tb.Helper()
	return WriteTempFile(tb, "appointments.csv", GenerateAppointments(n, seed))
}

// WriteTempFile writes content under a test-scoped temporary directory.
func WriteTempFile(tb testing.TB, name, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
