package models

import "fmt"

// SeverityBand is the clinical severity category of a subscale score.
// Bands are ordered from least to most severe, so b1 < b2 means b2 is
// more severe than b1.
type SeverityBand int

// BandUnset marks a long record that has not been classified yet. It is not
// Valid, so writers and the archive reject it.
const BandUnset SeverityBand = -1

const (
	// BandNormal is within the normal range.
	BandNormal SeverityBand = iota
	// BandMild is mildly elevated.
	BandMild
	// BandModerate is moderately elevated.
	BandModerate
	// BandSevere is severely elevated.
	BandSevere
	// BandExtremelySevere is the highest category.
	BandExtremelySevere
)

var bandLabels = [...]string{
	BandNormal:          "Normal",
	BandMild:            "Mild",
	BandModerate:        "Moderate",
	BandSevere:          "Severe",
	BandExtremelySevere: "Extremely Severe",
}

// AllSeverityBands returns the bands from least to most severe.
func AllSeverityBands() []SeverityBand {
	return []SeverityBand{BandNormal, BandMild, BandModerate, BandSevere, BandExtremelySevere}
}

// Valid returns true if the band is one of the five categories.
func (b SeverityBand) Valid() bool {
	return b >= BandNormal && b <= BandExtremelySevere
}

// String returns the display label of the band.
func (b SeverityBand) String() string {
	if b == BandUnset {
		return "unset"
	}
	if !b.Valid() {
		return fmt.Sprintf("SeverityBand(%d)", int(b))
	}
	return bandLabels[b]
}

// MoreSevereThan reports whether b ranks above other.
func (b SeverityBand) MoreSevereThan(other SeverityBand) bool {
	return b > other
}

// ParseSeverityBand maps a display label back to its band.
func ParseSeverityBand(label string) (SeverityBand, error) {
	for i, l := range bandLabels {
		if l == label {
			return SeverityBand(i), nil
		}
	}
	return 0, &SchemaError{Column: "severity_band", Reason: fmt.Sprintf("unknown severity band %q", label)}
}

// MarshalText implements encoding.TextMarshaler.
func (b SeverityBand) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid severity band %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *SeverityBand) UnmarshalText(text []byte) error {
	v, err := ParseSeverityBand(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
