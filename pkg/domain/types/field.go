package types

import "fmt"

// LogicalField is a recognized column role of a corpus spreadsheet
type LogicalField string

const (
	FieldQuestion LogicalField = "question"
	FieldAnswer   LogicalField = "answer"
	FieldCategory LogicalField = "category"
)

// AllLogicalFields returns all recognized logical fields
func AllLogicalFields() []LogicalField {
	return []LogicalField{
		FieldQuestion,
		FieldAnswer,
		FieldCategory,
	}
}

// IsValid checks if the logical field is recognized
func (f LogicalField) IsValid() bool {
	switch f {
	case FieldQuestion, FieldAnswer, FieldCategory:
		return true
	default:
		return false
	}
}

// Required reports whether a source file must contain this column
func (f LogicalField) Required() bool {
	return f == FieldQuestion || f == FieldAnswer
}

// String returns the string representation of the logical field
func (f LogicalField) String() string {
	return string(f)
}

// ParseLogicalField parses a string into a LogicalField
func ParseLogicalField(s string) (LogicalField, error) {
	f := LogicalField(s)
	if !f.IsValid() {
		return "", fmt.Errorf("unknown logical field: %s", s)
	}
	return f, nil
}
