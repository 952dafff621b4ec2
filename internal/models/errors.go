package models

import "fmt"

// ConfigurationError reports invalid simulation or pipeline parameters.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// PartitionError reports an item-to-subscale mapping that is not an exact
// partition of the 21 questions.
type PartitionError struct {
	Question string
	Reason   string
}

func (e *PartitionError) Error() string {
	if e.Question == "" {
		return fmt.Sprintf("partition error: %s", e.Reason)
	}
	return fmt.Sprintf("partition error: %s: %s", e.Question, e.Reason)
}

// UnknownSubscaleError reports a subscale label outside the three DASS-21 domains.
type UnknownSubscaleError struct {
	Label string
}

func (e *UnknownSubscaleError) Error() string {
	return fmt.Sprintf("unknown subscale %q", e.Label)
}

// SchemaError reports malformed tabular data: missing columns, out-of-range
// values, unknown labels or a wrong row count.
type SchemaError struct {
	// Row is the 1-based data row, or 0 when the error is not row-specific.
	Row    int
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("schema error: row %d, column %s: %s", e.Row, e.Column, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("schema error: row %d: %s", e.Row, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("schema error: column %s: %s", e.Column, e.Reason)
	default:
		return fmt.Sprintf("schema error: %s", e.Reason)
	}
}

// AtRow returns a copy of a SchemaError bound to the given row. Other errors
// are returned unchanged.
func AtRow(err error, row int) error {
	if se, ok := err.(*SchemaError); ok {
		cp := *se
		cp.Row = row
		return &cp
	}
	return err
}
