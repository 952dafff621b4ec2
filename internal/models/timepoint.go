package models

import "fmt"

// Timepoint is an assessment occasion in the trial. Values are ordered:
// comparisons between Timepoints follow trial chronology, not label text.
type Timepoint int

const (
	// TimepointBaseline is the pre-treatment assessment.
	TimepointBaseline Timepoint = iota
	// TimepointMonth3 is the 3-month follow-up.
	TimepointMonth3
	// TimepointMonth6 is the 6-month follow-up.
	TimepointMonth6
	// TimepointMonth9 is the 9-month follow-up.
	TimepointMonth9
	// TimepointMonth12 is the 12-month follow-up.
	TimepointMonth12
)

var timepointLabels = [...]string{
	TimepointBaseline: "baseline",
	TimepointMonth3:   "3_months",
	TimepointMonth6:   "6_months",
	TimepointMonth9:   "9_months",
	TimepointMonth12:  "12_months",
}

// AllTimepoints returns the five trial timepoints in chronological order.
func AllTimepoints() []Timepoint {
	return []Timepoint{
		TimepointBaseline,
		TimepointMonth3,
		TimepointMonth6,
		TimepointMonth9,
		TimepointMonth12,
	}
}

// Valid returns true if the timepoint is one of the five trial occasions.
func (t Timepoint) Valid() bool {
	return t >= TimepointBaseline && t <= TimepointMonth12
}

// String returns the file label of the timepoint (e.g. "3_months").
func (t Timepoint) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Timepoint(%d)", int(t))
	}
	return timepointLabels[t]
}

// ParseTimepoint maps a file label to its Timepoint.
// Any label outside the five trial occasions is a SchemaError.
func ParseTimepoint(label string) (Timepoint, error) {
	for i, l := range timepointLabels {
		if l == label {
			return Timepoint(i), nil
		}
	}
	return 0, &SchemaError{Column: "timepoint", Reason: fmt.Sprintf("unknown timepoint %q", label)}
}

// MarshalText implements encoding.TextMarshaler.
func (t Timepoint) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid timepoint %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timepoint) UnmarshalText(text []byte) error {
	v, err := ParseTimepoint(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
