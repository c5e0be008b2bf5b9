package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
)

// FAQFilter narrows an FAQ listing. Limit 0 means no limit.
type FAQFilter struct {
	Category string
	Limit    int
	Offset   int
}

// FAQPage is one page of corpus records
type FAQPage struct {
	Records []*model.QARecord
	Total   int
}

// corpusView returns the records to browse. The serving snapshot is used when
// present so browsing matches search; otherwise the corpus is read directly.
func (uc *SearchUseCase) corpusView(ctx context.Context) (*snapshot, error) {
	if snap := uc.current.Load(); snap != nil {
		return snap, nil
	}
	corpus, err := uc.loader.Load(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load corpus")
	}
	return newSnapshot(nil, corpus), nil
}

// ListFAQ returns corpus records in corpus order
func (uc *SearchUseCase) ListFAQ(ctx context.Context, filter FAQFilter) (*FAQPage, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, goerr.Wrap(ErrInvalidQuery, "limit and offset must not be negative",
			goerr.V("limit", filter.Limit), goerr.V("offset", filter.Offset))
	}
	view, err := uc.corpusView(ctx)
	if err != nil {
		return nil, err
	}

	matched := view.records
	if filter.Category != "" {
		matched = make([]*model.QARecord, 0, len(view.records))
		for _, r := range view.records {
			if r.Category == filter.Category {
				matched = append(matched, r)
			}
		}
	}

	page := &FAQPage{Total: len(matched), Records: []*model.QARecord{}}
	if filter.Offset >= len(matched) {
		return page, nil
	}
	end := len(matched)
	if filter.Limit > 0 {
		end = min(filter.Offset+filter.Limit, len(matched))
	}
	page.Records = matched[filter.Offset:end]
	return page, nil
}

// Categories returns distinct categories in corpus order
func (uc *SearchUseCase) Categories(ctx context.Context) ([]string, error) {
	view, err := uc.corpusView(ctx)
	if err != nil {
		return nil, err
	}
	if view.categories == nil {
		return []string{}, nil
	}
	return view.categories, nil
}

// Answer returns the record with id
func (uc *SearchUseCase) Answer(ctx context.Context, id model.RecordID) (*model.QARecord, error) {
	view, err := uc.corpusView(ctx)
	if err != nil {
		return nil, err
	}
	r, ok := view.byID[id]
	if !ok {
		return nil, goerr.Wrap(ErrAnswerNotFound, "no record with id", goerr.V(AnswerIDKey, id))
	}
	return r, nil
}

// Stats describes the serving index
func (uc *SearchUseCase) Stats() model.IndexStats {
	uc.mu.RLock()
	stats := model.IndexStats{
		State:         uc.state,
		EverReady:     uc.everReady,
		LastRefreshAt: uc.lastRefresh,
	}
	if uc.lastErr != nil {
		stats.LastError = uc.lastErr.Error()
	}
	uc.mu.RUnlock()

	if snap := uc.current.Load(); snap != nil {
		m := snap.index.Manifest()
		stats.Records = m.Count
		stats.ModelID = m.ModelID
		stats.Dimension = m.Dim
		stats.Metric = m.Metric
		stats.Fingerprint = m.Fingerprint
		stats.BuiltAt = m.BuiltAt
		stats.LoadErrors = snap.loadErrors
	}
	return stats
}
