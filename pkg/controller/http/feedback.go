package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
)

// feedbackRequest accepts the answer id under any of the names clients send
type feedbackRequest struct {
	AnswerID      string `json:"answerId"`
	AnswerIDSnake string `json:"answer_id"`
	MessageID     string `json:"message_id"`
	Helpful       bool   `json:"helpful"`
	Comment       string `json:"comment"`
	Question      string `json:"question"`
}

func (x feedbackRequest) answerID() string {
	for _, id := range []string{x.AnswerID, x.AnswerIDSnake, x.MessageID} {
		if id != "" {
			return id
		}
	}
	return ""
}

type feedbackItem struct {
	ID        model.FeedbackID `json:"id"`
	AnswerID  model.RecordID   `json:"answer_id"`
	Helpful   bool             `json:"helpful"`
	Comment   string           `json:"comment,omitempty"`
	Question  string           `json:"question,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func toFeedbackItem(fb *model.Feedback) feedbackItem {
	return feedbackItem{
		ID:        fb.ID,
		AnswerID:  fb.AnswerID,
		Helpful:   fb.Helpful,
		Comment:   fb.Comment,
		Question:  fb.Question,
		CreatedAt: fb.CreatedAt,
	}
}

func (s *Server) postFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req feedbackRequest
	if err := decodeJSON(r, w, &req); err != nil {
		handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidFeedback, "cannot read feedback request", goerr.V("error", err.Error())))
		return
	}

	fb, err := s.feedback.Record(ctx, usecase.FeedbackInput{
		AnswerID: model.RecordID(req.answerID()),
		Helpful:  req.Helpful,
		Comment:  req.Comment,
		Question: req.Question,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]any{
		"status":   "success",
		"message":  "Feedback received",
		"feedback": toFeedbackItem(fb),
	})
}

func (s *Server) listFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit, err := intParam(r, "limit")
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	filter := model.FeedbackFilter{
		AnswerID: model.RecordID(q.Get("answer_id")),
		Limit:    limit,
	}
	if raw := q.Get("helpful"); raw != "" {
		helpful, err := strconv.ParseBool(raw)
		if err != nil {
			handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidQuery, "helpful must be true or false", goerr.V("value", raw)))
			return
		}
		filter.Helpful = &helpful
	}

	list, err := s.feedback.List(ctx, filter)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	items := make([]feedbackItem, 0, len(list))
	for _, fb := range list {
		items = append(items, toFeedbackItem(fb))
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"feedback": items})
}
