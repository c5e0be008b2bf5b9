package model

import (
	"fmt"

	"github.com/secmon-lab/madoguchi/pkg/domain/types"
)

// LoadError is a recoverable problem found while reading a corpus source.
// Row is -1 for file-level errors.
type LoadError struct {
	Kind    types.LoadErrorKind
	Source  string // file path
	Row     int
	Column  string
	Message string
}

func (e *LoadError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Source, e.Message)
	}
	return fmt.Sprintf("%s: %s row %d: %s", e.Kind, e.Source, e.Row, e.Message)
}

// Corpus is the outcome of one corpus load
type Corpus struct {
	Records []*QARecord
	Errors  []*LoadError
}

// Categories returns distinct categories in first-seen order
func (c *Corpus) Categories() []string {
	seen := make(map[string]struct{})
	var categories []string
	for _, r := range c.Records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		categories = append(categories, r.Category)
	}
	return categories
}
