package models

import (
	"fmt"
	"strings"
)

// Group is a trial arm. A participant's group is fixed for the whole trial.
type Group int

const (
	// GroupIntervention receives the treatment after baseline.
	GroupIntervention Group = iota
	// GroupControl receives no treatment.
	GroupControl
)

var groupLabels = [...]string{
	GroupIntervention: "intervention",
	GroupControl:      "control",
}

// AllGroups returns the trial arms in enumeration order.
func AllGroups() []Group {
	return []Group{GroupIntervention, GroupControl}
}

// Valid returns true if the group is a recognized arm.
func (g Group) Valid() bool {
	return g == GroupIntervention || g == GroupControl
}

// String returns the file label of the group.
func (g Group) String() string {
	if !g.Valid() {
		return fmt.Sprintf("Group(%d)", int(g))
	}
	return groupLabels[g]
}

// Prefix returns the upper-cased initial used in participant IDs.
func (g Group) Prefix() string {
	return strings.ToUpper(g.String()[:1])
}

// ParseGroup maps a file label to its Group.
func ParseGroup(label string) (Group, error) {
	for i, l := range groupLabels {
		if l == label {
			return Group(i), nil
		}
	}
	return 0, &SchemaError{Column: "group", Reason: fmt.Sprintf("unknown group %q", label)}
}

// MarshalText implements encoding.TextMarshaler.
func (g Group) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("invalid group %d", int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Group) UnmarshalText(text []byte) error {
	v, err := ParseGroup(string(text))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// Participant is a trial subject.
type Participant struct {
	ID    string `json:"id"`
	Group Group  `json:"group"`
}

// ParticipantID formats the identifier for the seq-th (1-based) member of a group,
// e.g. "I01" or "C20".
func ParticipantID(g Group, seq int) string {
	return fmt.Sprintf("%s%02d", g.Prefix(), seq)
}

// ParticipantSeq returns the numeric sequence of a participant ID, reading
// the digits after the group prefix ("I07" -> 7). IDs without digits there
// return 0.
func ParticipantSeq(id string) int {
	if id == "" {
		return 0
	}
	n := 0
	for _, c := range id[1:] {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
