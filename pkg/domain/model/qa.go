package model

import (
	"fmt"
	"strings"
)

// DefaultCategory is used for records whose source provides no category
const DefaultCategory = "uncategorized"

// RecordID identifies a QARecord. It is derived from the source file stem and
// the row position inside that file, so it is stable across rebuilds as long
// as the row itself does not move.
type RecordID string

// NewRecordID builds the id of the rowIndex-th data row of a source file
func NewRecordID(sourceStem string, rowIndex int) RecordID {
	return RecordID(fmt.Sprintf("%s-%d", sourceStem, rowIndex))
}

// String returns the string representation of RecordID
func (id RecordID) String() string {
	return string(id)
}

// QARecord is one question/answer pair of the corpus
type QARecord struct {
	ID       RecordID
	Question string
	Answer   string
	Category string
	Source   string // file stem the record was read from
	Row      int    // 0-based data row index inside Source
}

// Validate checks the record invariants: non-empty id, question and answer
func (r *QARecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record id is empty")
	}
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("record %s has empty question", r.ID)
	}
	if strings.TrimSpace(r.Answer) == "" {
		return fmt.Errorf("record %s has empty answer", r.ID)
	}
	return nil
}
