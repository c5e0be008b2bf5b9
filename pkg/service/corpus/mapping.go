package corpus

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/domain/types"
	"golang.org/x/text/unicode/norm"
)

// Columns maps each logical field to the header names accepted for it.
// Header matching ignores case, surrounding spaces and full/half width differences.
type Columns struct {
	Question []string
	Answer   []string
	Category []string
}

// Aliases returns the accepted header names of field
func (c Columns) Aliases(field types.LogicalField) []string {
	switch field {
	case types.FieldQuestion:
		return c.Question
	case types.FieldAnswer:
		return c.Answer
	case types.FieldCategory:
		return c.Category
	default:
		return nil
	}
}

// Source is one corpus location. Path may be a glob pattern.
type Source struct {
	Path string
	// Sheet selects a worksheet of xlsx files; empty means the first sheet
	Sheet string
	// Category is used for rows with no category cell
	Category string
}

// Mapping is the column mapping and category policy applied to every source
type Mapping struct {
	Columns            Columns
	DefaultCategory    string
	CategoryFromSource bool
}

// DefaultMapping returns the mapping used when no configuration file is given
func DefaultMapping() *Mapping {
	return &Mapping{
		Columns: Columns{
			Question: []string{"質問", "question", "q", "query"},
			Answer:   []string{"回答", "answer", "a", "答え", "response"},
			Category: []string{"カテゴリ", "カテゴリー", "category"},
		},
		DefaultCategory: model.DefaultCategory,
	}
}

// Validate checks that every required field has at least one header alias
// and that no header is claimed by two fields.
func (m *Mapping) Validate() error {
	owner := make(map[string]types.LogicalField)
	for _, field := range types.AllLogicalFields() {
		aliases := m.Columns.Aliases(field)
		if field.Required() && len(aliases) == 0 {
			return goerr.Wrap(ErrInvalidMapping, "no column alias for required field", goerr.V("field", field))
		}
		for _, alias := range aliases {
			key := normalizeHeader(alias)
			if key == "" {
				return goerr.Wrap(ErrInvalidMapping, "empty column alias", goerr.V("field", field))
			}
			if prev, ok := owner[key]; ok && prev != field {
				return goerr.Wrap(ErrInvalidMapping, "column alias used by two fields",
					goerr.V("alias", alias), goerr.V("field", field), goerr.V("other", prev))
			}
			owner[key] = field
		}
	}
	return nil
}

// resolveColumns finds the position of each logical field in header.
// The first matching header cell wins.
func (m *Mapping) resolveColumns(header []string) map[types.LogicalField]int {
	positions := make(map[types.LogicalField]int)
	for _, field := range types.AllLogicalFields() {
		accepted := make(map[string]struct{})
		for _, alias := range m.Columns.Aliases(field) {
			accepted[normalizeHeader(alias)] = struct{}{}
		}
		for i, cell := range header {
			if _, ok := accepted[normalizeHeader(cell)]; ok {
				positions[field] = i
				break
			}
		}
	}
	return positions
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}
