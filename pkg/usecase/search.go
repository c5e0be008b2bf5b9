package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/interfaces"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/domain/types"
	"github.com/secmon-lab/madoguchi/pkg/service/vectorindex"
	"github.com/secmon-lab/madoguchi/pkg/utils/async"
	"github.com/secmon-lab/madoguchi/pkg/utils/errutil"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultK             = 5
	DefaultMaxK          = 20
	DefaultSearchTimeout = 30 * time.Second
)

// SearchConfig holds the search tunables
type SearchConfig struct {
	DefaultK int
	MaxK     int
	// MinScore drops vector hits scoring below it; 0 keeps everything
	MinScore float64
	// Timeout bounds embedding plus index lookup of one query
	Timeout  time.Duration
	Wait     types.WaitPolicy
	Fallback types.FallbackPolicy
}

// DefaultSearchConfig returns the configuration used when none is given
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultK: DefaultK,
		MaxK:     DefaultMaxK,
		Timeout:  DefaultSearchTimeout,
		Wait:     types.WaitPolicyBlock,
		Fallback: types.FallbackNone,
	}
}

// RefreshAction tells what a refresh did
type RefreshAction string

const (
	RefreshKept   RefreshAction = "kept"   // in-memory index already fresh
	RefreshLoaded RefreshAction = "loaded" // persisted index was fresh
	RefreshBuilt  RefreshAction = "built"  // index rebuilt from the corpus
)

// RefreshResult summarizes one refresh
type RefreshResult struct {
	Action     RefreshAction
	Manifest   vectorindex.Manifest
	Embedded   int
	Reused     int
	LoadErrors []*model.LoadError
}

// snapshot is an immutable index generation together with the corpus it was built from
type snapshot struct {
	index      *vectorindex.Index
	records    []*model.QARecord
	byID       map[model.RecordID]*model.QARecord
	categories []string
	loadErrors int
}

func newSnapshot(idx *vectorindex.Index, corpus *model.Corpus) *snapshot {
	byID := make(map[model.RecordID]*model.QARecord, len(corpus.Records))
	for _, r := range corpus.Records {
		byID[r.ID] = r
	}
	return &snapshot{
		index:      idx,
		records:    corpus.Records,
		byID:       byID,
		categories: corpus.Categories(),
		loadErrors: len(corpus.Errors),
	}
}

// SearchUseCase answers queries against the current index snapshot and owns
// the index lifecycle: Uninitialized -> Loading -> Ready, Ready -> Rebuilding -> Ready.
type SearchUseCase struct {
	loader   interfaces.CorpusLoader
	embedder interfaces.Embedder
	store    vectorindex.Store
	cfg      SearchConfig
	now      func() time.Time

	current atomic.Pointer[snapshot]
	group   singleflight.Group
	buildMu sync.Mutex

	mu          sync.RWMutex
	state       types.IndexState
	everReady   bool
	lastRefresh time.Time
	lastErr     error
}

// SearchOption configures a SearchUseCase
type SearchOption func(*SearchUseCase)

// WithIndexStore persists built indexes to store and reuses them across restarts
func WithIndexStore(store vectorindex.Store) SearchOption {
	return func(uc *SearchUseCase) {
		uc.store = store
	}
}

// WithSearchConfig replaces the default search configuration
func WithSearchConfig(cfg SearchConfig) SearchOption {
	return func(uc *SearchUseCase) {
		uc.cfg = cfg
	}
}

// WithNow replaces the clock used for build timestamps
func WithNow(now func() time.Time) SearchOption {
	return func(uc *SearchUseCase) {
		uc.now = now
	}
}

// NewSearchUseCase creates a SearchUseCase in the Uninitialized state
func NewSearchUseCase(loader interfaces.CorpusLoader, embedder interfaces.Embedder, opts ...SearchOption) *SearchUseCase {
	uc := &SearchUseCase{
		loader:   loader,
		embedder: embedder,
		cfg:      DefaultSearchConfig(),
		now:      func() time.Time { return time.Now().UTC() },
		state:    types.IndexStateUninitialized,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.cfg.DefaultK <= 0 {
		uc.cfg.DefaultK = DefaultK
	}
	if uc.cfg.MaxK <= 0 {
		uc.cfg.MaxK = DefaultMaxK
	}
	if uc.cfg.DefaultK > uc.cfg.MaxK {
		uc.cfg.DefaultK = uc.cfg.MaxK
	}
	if uc.cfg.Timeout <= 0 {
		uc.cfg.Timeout = DefaultSearchTimeout
	}
	if !uc.cfg.Wait.IsValid() {
		uc.cfg.Wait = types.WaitPolicyBlock
	}
	if !uc.cfg.Fallback.IsValid() {
		uc.cfg.Fallback = types.FallbackNone
	}
	return uc
}

// State returns the current index state
func (uc *SearchUseCase) State() types.IndexState {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.state
}

// EverReady reports whether an index has been served at least once
func (uc *SearchUseCase) EverReady() bool {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.everReady
}

// ClampK applies the default and the upper bound to a requested k
func (uc *SearchUseCase) ClampK(k int) int {
	if k <= 0 {
		return uc.cfg.DefaultK
	}
	return min(k, uc.cfg.MaxK)
}

// Search embeds query and returns the nearest answers. k <= 0 means the default.
func (uc *SearchUseCase) Search(ctx context.Context, query string, k int) (*model.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerr.Wrap(ErrInvalidQuery, "query is empty")
	}
	k = uc.ClampK(k)

	snap, err := uc.acquire(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	vector, err := uc.embedder.EmbedOne(ctx, query)
	if err != nil {
		if uc.cfg.Fallback == types.FallbackKeyword {
			logging.From(ctx).Warn("embedding failed, using keyword fallback", "error", err.Error())
			return &model.SearchResponse{
				Query:   query,
				Mode:    model.SearchModeKeyword,
				// keyword scores are token overlap ratios, not cosine similarities
				Results: keywordSearch(snap.records, query, k),
			}, nil
		}
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrEmbeddingFailed, err), "failed to embed query")
	}

	hits, err := snap.index.Query(vector, k)
	if err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrEmbeddingFailed, err), "query vector does not fit the index",
			goerr.V("model", uc.embedder.ModelID()))
	}

	results := make([]model.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, model.SearchResult{
			ID:       h.Entry.ID,
			Question: h.Entry.Question,
			Answer:   h.Entry.Answer,
			Category: h.Entry.Category,
			Score:    h.Score,
		})
	}

	return &model.SearchResponse{
		Query:   query,
		Mode:    model.SearchModeVector,
		Results: uc.filter(results),
	}, nil
}

func (uc *SearchUseCase) filter(results []model.SearchResult) []model.SearchResult {
	if uc.cfg.MinScore <= 0 {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if r.Score >= uc.cfg.MinScore {
			out = append(out, r)
		}
	}
	return out
}

// acquire returns the snapshot to serve from. Without one, it either waits
// for the cold start or rejects, depending on the wait policy.
func (uc *SearchUseCase) acquire(ctx context.Context) (*snapshot, error) {
	if snap := uc.current.Load(); snap != nil {
		return snap, nil
	}

	if uc.cfg.Wait == types.WaitPolicyReject {
		if uc.State() == types.IndexStateUninitialized {
			async.Dispatch(ctx, "index-cold-start", func(ctx context.Context) error {
				_, err := uc.Refresh(ctx, false)
				return err
			})
		}
		return nil, goerr.Wrap(ErrServiceUnavailable, "index is not ready", goerr.V(StateKey, uc.State()))
	}

	if _, err := uc.Refresh(ctx, false); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, goerr.Wrap(ErrServiceUnavailable, "gave up waiting for index", goerr.V("error", err.Error()))
		}
		return nil, goerr.Wrap(ErrServiceUnavailable, "index could not be prepared", goerr.V("error", err.Error()))
	}
	snap := uc.current.Load()
	if snap == nil {
		return nil, goerr.Wrap(ErrServiceUnavailable, "index is not ready", goerr.V(StateKey, uc.State()))
	}
	return snap, nil
}

// Warmup prepares the index before the first query
func (uc *SearchUseCase) Warmup(ctx context.Context) error {
	_, err := uc.Refresh(ctx, false)
	return err
}

// Refresh brings the index in line with the corpus. Concurrent callers share
// one run; ctx only bounds how long this caller waits for it. With force the
// index is rebuilt even when it looks fresh.
func (uc *SearchUseCase) Refresh(ctx context.Context, force bool) (*RefreshResult, error) {
	key := "refresh"
	if force {
		key = "refresh-force"
	}
	ch := uc.group.DoChan(key, func() (any, error) {
		return uc.refresh(context.WithoutCancel(ctx), force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RefreshResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (uc *SearchUseCase) refresh(ctx context.Context, force bool) (*RefreshResult, error) {
	uc.buildMu.Lock()
	defer uc.buildMu.Unlock()

	prev := uc.current.Load()
	if prev == nil {
		uc.setState(types.IndexStateLoading)
	} else {
		uc.setState(types.IndexStateRebuilding)
	}

	result, next, err := uc.prepare(ctx, prev, force)
	if err != nil {
		uc.finish(prev, err)
		errutil.Handle(ctx, err, "index refresh failed")
		return nil, err
	}
	if next != nil {
		uc.current.Store(next)
	}
	uc.finish(uc.current.Load(), nil)

	logging.From(ctx).Info("index refreshed",
		"action", result.Action,
		"records", result.Manifest.Count,
		"embedded", result.Embedded,
		"reused", result.Reused,
		"load_errors", len(result.LoadErrors),
		"model", result.Manifest.ModelID,
	)
	return result, nil
}

// prepare returns the snapshot to install, or nil when prev stays
func (uc *SearchUseCase) prepare(ctx context.Context, prev *snapshot, force bool) (*RefreshResult, *snapshot, error) {
	corpus, err := uc.loader.Load(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to load corpus")
	}
	if len(corpus.Records) == 0 {
		return nil, nil, goerr.Wrap(ErrEmptyCorpus, "no records to index", goerr.V("load_errors", len(corpus.Errors)))
	}

	fingerprint := vectorindex.Fingerprint(corpus.Records)
	modelID := uc.embedder.ModelID()
	count := len(corpus.Records)

	if !force && prev != nil && prev.index.Manifest().Fresh(fingerprint, count, modelID) {
		return &RefreshResult{Action: RefreshKept, Manifest: prev.index.Manifest(), LoadErrors: corpus.Errors}, nil, nil
	}

	var persisted *vectorindex.Index
	if uc.store != nil {
		persisted = uc.loadPersisted(ctx)
		if !force && persisted != nil && persisted.Manifest().Fresh(fingerprint, count, modelID) {
			return &RefreshResult{
				Action:     RefreshLoaded,
				Manifest:   persisted.Manifest(),
				LoadErrors: corpus.Errors,
			}, newSnapshot(persisted, corpus), nil
		}
	}

	// a forced rebuild re-embeds everything
	var donors []*vectorindex.Index
	if !force {
		if prev != nil {
			donors = append(donors, prev.index)
		}
		if persisted != nil {
			donors = append(donors, persisted)
		}
	}

	idx, embedded, reused, err := uc.build(ctx, corpus.Records, fingerprint, modelID, donors)
	if err != nil {
		return nil, nil, err
	}

	if uc.store != nil {
		if err := vectorindex.Save(ctx, uc.store, idx); err != nil {
			// the new index still serves from memory; the next start rebuilds
			errutil.Handle(ctx, err, "failed to persist index")
		}
	}

	return &RefreshResult{
		Action:     RefreshBuilt,
		Manifest:   idx.Manifest(),
		Embedded:   embedded,
		Reused:     reused,
		LoadErrors: corpus.Errors,
	}, newSnapshot(idx, corpus), nil
}

// loadPersisted returns the stored index, or nil when it is absent or unusable
func (uc *SearchUseCase) loadPersisted(ctx context.Context) *vectorindex.Index {
	idx, err := vectorindex.Load(ctx, uc.store)
	switch {
	case err == nil:
		return idx
	case errors.Is(err, vectorindex.ErrNotFound):
		logging.From(ctx).Info("no persisted index", "location", uc.store.Location())
	default:
		logging.From(ctx).Warn("persisted index is unusable, rebuilding",
			"location", uc.store.Location(),
			"error", err.Error(),
		)
	}
	return nil
}

// build embeds questions not covered by a reusable vector and builds a new index.
// Vectors are reused only from indexes built with the same model.
func (uc *SearchUseCase) build(ctx context.Context, records []*model.QARecord, fingerprint, modelID string, candidates []*vectorindex.Index) (*vectorindex.Index, int, int, error) {
	var donors []*vectorindex.Index
	for _, idx := range candidates {
		if idx.Manifest().ModelID == modelID {
			donors = append(donors, idx)
		}
	}

	vectors := make(map[string][]float32, len(records))
	var pending []string
	for _, r := range records {
		if _, ok := vectors[r.Question]; ok {
			continue
		}
		var found []float32
		for _, d := range donors {
			if v, ok := d.VectorFor(r.Question); ok {
				found = v
				break
			}
		}
		vectors[r.Question] = found
		if found == nil {
			pending = append(pending, r.Question)
		}
	}
	reused := len(vectors) - len(pending)

	if len(pending) > 0 {
		embedded, err := uc.embedder.Embed(ctx, pending)
		if err != nil {
			return nil, 0, 0, goerr.Wrap(err, "failed to embed corpus",
				goerr.V("pending", len(pending)), goerr.V("model", modelID))
		}
		for i, text := range pending {
			vectors[text] = embedded[i]
		}
	}

	entries := make([]vectorindex.Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, vectorindex.Entry{
			ID:       r.ID,
			Question: r.Question,
			Answer:   r.Answer,
			Category: r.Category,
			Vector:   vectors[r.Question],
		})
	}

	idx, err := vectorindex.Build(entries, vectorindex.Meta{
		ModelID:     modelID,
		Fingerprint: fingerprint,
		BuiltAt:     uc.now(),
	})
	if err != nil {
		return nil, 0, 0, goerr.Wrap(err, "failed to build index")
	}
	return idx, len(pending), reused, nil
}

func (uc *SearchUseCase) setState(s types.IndexState) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.state = s
}

// finish settles the state after a refresh: Ready when a snapshot serves, else Uninitialized
func (uc *SearchUseCase) finish(serving *snapshot, err error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.lastRefresh = uc.now()
	uc.lastErr = err
	if serving != nil {
		uc.state = types.IndexStateReady
		uc.everReady = true
	} else {
		uc.state = types.IndexStateUninitialized
	}
}
