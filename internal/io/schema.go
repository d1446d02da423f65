package io

import "fmt"

// Canonical column names of the appointment table.
const (
	ColPatientID      = "patient_id"
	ColAppointmentID  = "appointment_id"
	ColGender         = "gender"
	ColScheduledDay   = "scheduled_day"
	ColAppointmentDay = "appointment_day"
	ColAge            = "age"
	ColNeighbourhood  = "neighbourhood"
	ColScholarship    = "scholarship"
	ColHypertension   = "hypertension"
	ColDiabetes       = "diabetes"
	ColAlcoholism     = "alcoholism"
	ColHandicap       = "handicap"
	ColSMSReceived    = "sms_received"
	ColNoShow         = "no_show"
	ColWaitingDays    = "waiting_days"
)

// Kind is the declared type of a column.
type Kind int

const (
	// KindString keeps the cell text as-is.
	KindString Kind = iota
	// KindInt parses the cell as a base-10 int64.
	KindInt
	// KindFloat parses the cell as a float64.
	KindFloat
	// KindBool parses true/false (case-insensitive) and 0/1.
	KindBool
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field declares one expected input column.
type Field struct {
	Header   string // Column title in the source file
	Name     string // Canonical column name in the loaded table
	Kind     Kind
	Nullable bool // Empty cells load as nulls instead of failing
}

// Schema is the ordered set of columns a reader expects.
type Schema struct {
	Fields []Field
}

// NewSchema creates a schema from fields
func NewSchema(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// Names returns the canonical column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by canonical name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AppointmentSchema declares the medical appointment dataset layout.
// Timestamps load as text and are parsed by the cleaning stage.
func AppointmentSchema() Schema {
	return NewSchema(
		Field{Header: "PatientId", Name: ColPatientID, Kind: KindString},
		Field{Header: "AppointmentID", Name: ColAppointmentID, Kind: KindInt},
		Field{Header: "Gender", Name: ColGender, Kind: KindString},
		Field{Header: "ScheduledDay", Name: ColScheduledDay, Kind: KindString, Nullable: true},
		Field{Header: "AppointmentDay", Name: ColAppointmentDay, Kind: KindString, Nullable: true},
		Field{Header: "Age", Name: ColAge, Kind: KindInt},
		Field{Header: "Neighbourhood", Name: ColNeighbourhood, Kind: KindString, Nullable: true},
		Field{Header: "Scholarship", Name: ColScholarship, Kind: KindInt},
		Field{Header: "Hipertension", Name: ColHypertension, Kind: KindInt},
		Field{Header: "Diabetes", Name: ColDiabetes, Kind: KindInt},
		Field{Header: "Alcoholism", Name: ColAlcoholism, Kind: KindInt},
		Field{Header: "Handcap", Name: ColHandicap, Kind: KindInt},
		Field{Header: "SMS_received", Name: ColSMSReceived, Kind: KindInt},
		Field{Header: "No-show", Name: ColNoShow, Kind: KindString},
	)
}
