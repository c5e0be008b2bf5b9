package http

import (
	"net/http"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
)

type faqItem struct {
	ID       model.RecordID `json:"id"`
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Category string         `json:"category"`
}

type faqResponse struct {
	Items      []faqItem `json:"items"`
	TotalCount int       `json:"total_count"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
}

// intParam parses an optional integer query parameter
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, goerr.Wrap(usecase.ErrInvalidQuery, "parameter is not an integer",
			goerr.V("name", name), goerr.V("value", raw))
	}
	return v, nil
}

func (s *Server) faqHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := intParam(r, "limit")
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	page, err := s.search.ListFAQ(ctx, usecase.FAQFilter{
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	out := faqResponse{
		Items:      make([]faqItem, 0, len(page.Records)),
		TotalCount: page.Total,
		Offset:     offset,
		Limit:      limit,
	}
	for _, rec := range page.Records {
		out.Items = append(out.Items, faqItem{
			ID:       rec.ID,
			Question: rec.Question,
			Answer:   rec.Answer,
			Category: rec.Category,
		})
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categories, err := s.search.Categories(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"categories": categories})
}
