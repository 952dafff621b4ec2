package models

import (
	"fmt"
	"strings"
)

// Subscale identifies one of the three DASS-21 symptom domains.
// The set is closed: a Subscale outside it is a data-integrity fault.
type Subscale int

const (
	// SubscaleAnxiety is the anxiety domain (column DASS_Anxiety).
	SubscaleAnxiety Subscale = iota
	// SubscaleDepression is the depression domain (column DASS_Depression).
	SubscaleDepression
	// SubscaleStress is the stress domain (column DASS_Stress).
	SubscaleStress
)

// columnPrefix is prepended to subscale names to form table column labels.
const columnPrefix = "DASS_"

var subscaleNames = [...]string{
	SubscaleAnxiety:    "Anxiety",
	SubscaleDepression: "Depression",
	SubscaleStress:     "Stress",
}

// AllSubscales returns the subscales in table column order.
func AllSubscales() []Subscale {
	return []Subscale{SubscaleAnxiety, SubscaleDepression, SubscaleStress}
}

// Valid returns true if the subscale is one of the three DASS-21 domains.
func (s Subscale) Valid() bool {
	return s >= SubscaleAnxiety && s <= SubscaleStress
}

// Name returns the bare domain name (e.g. "Depression").
func (s Subscale) Name() string {
	if !s.Valid() {
		return fmt.Sprintf("Subscale(%d)", int(s))
	}
	return subscaleNames[s]
}

// Column returns the table column label (e.g. "DASS_Depression").
func (s Subscale) Column() string {
	return columnPrefix + s.Name()
}

// String returns the column label, which is also the long-form subscale value.
func (s Subscale) String() string {
	return s.Column()
}

// ParseSubscale accepts either a column label ("DASS_Stress") or a bare
// domain name ("Stress"). Anything else is an UnknownSubscaleError.
func ParseSubscale(label string) (Subscale, error) {
	name := strings.TrimPrefix(label, columnPrefix)
	for i, n := range subscaleNames {
		if n == name {
			return Subscale(i), nil
		}
	}
	return 0, &UnknownSubscaleError{Label: label}
}

// MarshalText implements encoding.TextMarshaler.
func (s Subscale) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, &UnknownSubscaleError{Label: s.Name()}
	}
	return []byte(s.Column()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Subscale) UnmarshalText(text []byte) error {
	v, err := ParseSubscale(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
