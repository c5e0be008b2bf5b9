package http

import (
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
)

type searchRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type candidate struct {
	ID         model.RecordID `json:"id"`
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Category   string         `json:"category"`
	Similarity float64        `json:"similarity"`
}

type searchResponse struct {
	Query      string           `json:"query"`
	Mode       model.SearchMode `json:"mode"`
	Candidates []candidate      `json:"candidates"`
	TotalFound int              `json:"total_found"`
	Message    string           `json:"message,omitempty"`
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req searchRequest
	if err := decodeJSON(r, w, &req); err != nil {
		handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidQuery, "cannot read search request", goerr.V("error", err.Error())))
		return
	}

	resp, err := s.search.Search(ctx, req.Question, req.K)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	out := searchResponse{
		Query:      resp.Query,
		Mode:       resp.Mode,
		Candidates: make([]candidate, 0, len(resp.Results)),
		TotalFound: len(resp.Results),
	}
	for _, res := range resp.Results {
		out.Candidates = append(out.Candidates, candidate{
			ID:         res.ID,
			Question:   res.Question,
			Answer:     res.Answer,
			Category:   res.Category,
			Similarity: res.Score,
		})
	}
	if len(out.Candidates) == 0 {
		out.Message = msgNoResults
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

type answerResponse struct {
	ID       model.RecordID `json:"id"`
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Category string         `json:"category"`
}

func (s *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidQuery, "id is required"))
		return
	}

	rec, err := s.search.Answer(ctx, model.RecordID(id))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, answerResponse{
		ID:       rec.ID,
		Question: rec.Question,
		Answer:   rec.Answer,
		Category: rec.Category,
	})
}
