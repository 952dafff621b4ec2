package models

import "github.com/nvandessel/dasstrial/internal/constants"

// ItemResponse is a single questionnaire answer for one participant at one timepoint.
type ItemResponse struct {
	Participant Participant `json:"participant"`
	Timepoint   Timepoint   `json:"timepoint"`

	// Question is the 1-based item number (1..21).
	Question int `json:"question"`

	// Value is the response in [0,3].
	Value int `json:"value"`
}

// WideRecord is one row of the item-level table: a participant at a timepoint,
// with all 21 items and the three pre-scaling subscale totals.
//
// Group and Timepoint hold the labels as they appear in the table; they are
// parsed into enums when the record is reshaped.
type WideRecord struct {
	ID        string `json:"id"`
	Group     string `json:"group"`
	Timepoint string `json:"timepoint"`

	// Items holds Q1..Q21 at indices 0..20.
	Items [constants.NumQuestions]int `json:"items"`

	// Totals holds the raw subscale sums indexed by Subscale.
	Totals [constants.NumSubscales]int `json:"totals"`
}

// Total returns the raw total for the given subscale.
func (w WideRecord) Total(s Subscale) int {
	return w.Totals[s]
}

// SubscaleRecord is a raw subscale total for a participant at a timepoint.
type SubscaleRecord struct {
	ParticipantID string    `json:"participant_id"`
	Timepoint     Timepoint `json:"timepoint"`
	Subscale      Subscale  `json:"subscale"`

	// Total is the sum of the subscale's seven items, in [0,21].
	Total int `json:"total"`
}

// ScoredRecord is a SubscaleRecord rescaled to the 42-item convention.
type ScoredRecord struct {
	SubscaleRecord

	// Score is Total multiplied by the scale factor, in [0,42].
	Score int `json:"score"`
}

// RawTotal recovers the pre-scaling total from the score.
func (r ScoredRecord) RawTotal() int {
	return r.Score / constants.ScaleFactor
}

// LongRecord is one row of the analysis table: one participant, timepoint and subscale.
type LongRecord struct {
	ID        string       `json:"id"`
	Group     Group        `json:"group"`
	Timepoint Timepoint    `json:"timepoint"`
	Subscale  Subscale     `json:"subscale"`
	Score     int          `json:"score"`
	Band      SeverityBand `json:"severity_band"`
}

// Less orders long records the way the pipeline emits them: by group
// (intervention first), participant sequence, timepoint and subscale, using
// ordinal (not lexical) order throughout.
func (r LongRecord) Less(other LongRecord) bool {
	if r.Group != other.Group {
		return r.Group < other.Group
	}
	if a, b := ParticipantSeq(r.ID), ParticipantSeq(other.ID); a != b {
		return a < b
	}
	if r.ID != other.ID {
		return r.ID < other.ID
	}
	if r.Timepoint != other.Timepoint {
		return r.Timepoint < other.Timepoint
	}
	return r.Subscale < other.Subscale
}
