package usecase

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"golang.org/x/text/unicode/norm"
)

// keywordSearch ranks records by the share of query tokens found in their
// question, answer or category. Records matching no token are left out.
func keywordSearch(records []*model.QARecord, query string, k int) []model.SearchResult {
	tokens := keywordTokens(query)
	if len(tokens) == 0 || k <= 0 {
		return []model.SearchResult{}
	}

	var out []model.SearchResult
	for _, r := range records {
		blob := foldText(r.Question + "\n" + r.Answer + "\n" + r.Category)
		matched := 0
		for _, tok := range tokens {
			if strings.Contains(blob, tok) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		out = append(out, model.SearchResult{
			ID:       r.ID,
			Question: r.Question,
			Answer:   r.Answer,
			Category: r.Category,
			Score:    float64(matched) / float64(len(tokens)),
		})
	}

	sortResults(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// sortResults orders by score descending, then id ascending
func sortResults(results []model.SearchResult) {
	slices.SortFunc(results, func(a, b model.SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func foldText(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

func keywordTokens(q string) []string {
	fields := strings.FieldsFunc(foldText(q), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
