package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/domain/types"
	"github.com/secmon-lab/madoguchi/pkg/service/vectorindex"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
)

func TestSearchSingleRecord(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewSearchUseCase(
		newStubLoader(qa("A-0", "営業時間は？", "9:00-18:00", "総務")),
		newHashEmbedder(),
	)
	gt.Value(t, uc.State()).Equal(types.IndexStateUninitialized)

	resp, err := uc.Search(ctx, "営業時間は？", 0)
	gt.NoError(t, err).Required()
	gt.Value(t, resp.Mode).Equal(model.SearchModeVector)
	gt.Array(t, resp.Results).Length(1)
	gt.Value(t, resp.Results[0].ID).Equal(model.RecordID("A-0"))
	gt.Value(t, resp.Results[0].Answer).Equal("9:00-18:00")
	gt.Bool(t, resp.Results[0].Score > 0.999).True()
	gt.Value(t, uc.State()).Equal(types.IndexStateReady)
	gt.Bool(t, uc.EverReady()).True()
}

func manyRecords(n int) []*model.QARecord {
	records := make([]*model.QARecord, n)
	for i := range records {
		records[i] = qa(fmt.Sprintf("F-%d", i), fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i), fmt.Sprintf("cat%d", i%3))
	}
	return records
}

func TestSearchKAndDeterminism(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewSearchUseCase(newStubLoader(manyRecords(30)...), newHashEmbedder())

	first, err := uc.Search(ctx, "question 7", 0)
	gt.NoError(t, err).Required()
	gt.Array(t, first.Results).Length(usecase.DefaultK)
	gt.Value(t, first.Results[0].ID).Equal(model.RecordID("F-7"))

	again, err := uc.Search(ctx, "  question 7 ", 0)
	gt.NoError(t, err).Required()
	gt.Value(t, again.Results).Equal(first.Results)

	wide, err := uc.Search(ctx, "question 7", 1000)
	gt.NoError(t, err).Required()
	gt.Array(t, wide.Results).Length(usecase.DefaultMaxK)

	for i := 1; i < len(wide.Results); i++ {
		gt.Bool(t, wide.Results[i-1].Score >= wide.Results[i].Score).True()
	}

	gt.Number(t, uc.ClampK(-1)).Equal(usecase.DefaultK)
	gt.Number(t, uc.ClampK(3)).Equal(3)
	gt.Number(t, uc.ClampK(21)).Equal(usecase.DefaultMaxK)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	uc := usecase.NewSearchUseCase(newStubLoader(qa("A-0", "q", "a", "")), newHashEmbedder())
	_, err := uc.Search(context.Background(), "   ", 5)
	gt.Error(t, err).Is(usecase.ErrInvalidQuery)
}

func TestSearchMinScore(t *testing.T) {
	cfg := usecase.DefaultSearchConfig()
	cfg.MinScore = 0.99
	uc := usecase.NewSearchUseCase(newStubLoader(manyRecords(10)...), newHashEmbedder(), usecase.WithSearchConfig(cfg))

	resp, err := uc.Search(context.Background(), "question 3", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, resp.Results).Length(1)

	none, err := uc.Search(context.Background(), "something else entirely", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, none.Results).Length(0)
}

func TestFailedRebuildKeepsServingPreviousIndex(t *testing.T) {
	ctx := context.Background()
	loader := newStubLoader(qa("A-0", "営業時間は？", "9:00-18:00", ""))
	embedder := newHashEmbedder()
	uc := usecase.NewSearchUseCase(loader, embedder)
	gt.NoError(t, uc.Warmup(ctx)).Required()

	loader.Set(
		qa("A-0", "営業時間は？", "9:00-18:00", ""),
		qa("A-1", "定休日は？", "土日祝", ""),
	)
	embedder.SetFail(true)
	_, err := uc.Refresh(ctx, false)
	gt.Value(t, err).NotNil()
	gt.Value(t, uc.State()).Equal(types.IndexStateReady)
	gt.Bool(t, uc.Stats().LastError != "").True()
	gt.Number(t, uc.Stats().Records).Equal(1)

	// query embedding works again, index is still the old one
	embedder.SetFail(false)
	resp, err := uc.Search(ctx, "営業時間は？", 5)
	gt.NoError(t, err).Required()
	gt.Array(t, resp.Results).Length(1)
	gt.Value(t, resp.Results[0].ID).Equal(model.RecordID("A-0"))

	res, err := uc.Refresh(ctx, false)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Action).Equal(usecase.RefreshBuilt)
	gt.Number(t, res.Reused).Equal(1)
	gt.Number(t, res.Embedded).Equal(1)
	gt.Number(t, uc.Stats().Records).Equal(2)
	gt.String(t, uc.Stats().LastError).Equal("")
}

func TestColdStartFailureIsUnavailable(t *testing.T) {
	ctx := context.Background()
	embedder := newHashEmbedder()
	embedder.SetFail(true)
	uc := usecase.NewSearchUseCase(newStubLoader(qa("A-0", "q", "a", "")), embedder)

	_, err := uc.Search(ctx, "q", 5)
	gt.Error(t, err).Is(usecase.ErrServiceUnavailable)
	gt.Value(t, uc.State()).Equal(types.IndexStateUninitialized)
	gt.Bool(t, uc.EverReady()).False()

	embedder.SetFail(false)
	resp, err := uc.Search(ctx, "q", 5)
	gt.NoError(t, err).Required()
	gt.Array(t, resp.Results).Length(1)
}

func TestEmptyCorpusFailsBuild(t *testing.T) {
	uc := usecase.NewSearchUseCase(newStubLoader(), newHashEmbedder())
	err := uc.Warmup(context.Background())
	gt.Error(t, err).Is(usecase.ErrEmptyCorpus)
	gt.Value(t, uc.State()).Equal(types.IndexStateUninitialized)
}

func TestRejectPolicyWhileLoading(t *testing.T) {
	ctx := context.Background()
	cfg := usecase.DefaultSearchConfig()
	cfg.Wait = types.WaitPolicyReject
	uc := usecase.NewSearchUseCase(newStubLoader(qa("A-0", "q", "a", "")), newHashEmbedder(), usecase.WithSearchConfig(cfg))

	_, err := uc.Search(ctx, "q", 5)
	gt.Error(t, err).Is(usecase.ErrServiceUnavailable)

	// the rejected query kicked off the cold start in the background
	deadline := time.Now().Add(5 * time.Second)
	for !uc.EverReady() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	gt.Bool(t, uc.EverReady()).True()

	resp, err := uc.Search(ctx, "q", 5)
	gt.NoError(t, err).Required()
	gt.Array(t, resp.Results).Length(1)
}

func TestSearchDuringRebuildUsesSnapshot(t *testing.T) {
	ctx := context.Background()
	loader := newStubLoader(qa("A-0", "営業時間は？", "9:00-18:00", ""))
	embedder := newHashEmbedder()
	uc := usecase.NewSearchUseCase(loader, embedder)
	gt.NoError(t, uc.Warmup(ctx)).Required()

	loader.Set(
		qa("A-0", "営業時間は？", "9:00-18:00", ""),
		qa("A-1", "定休日は？", "土日祝", ""),
	)
	entered, release := embedder.Block()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := uc.Refresh(ctx, false)
		gt.NoError(t, err)
	}()

	<-entered
	gt.Value(t, uc.State()).Equal(types.IndexStateRebuilding)

	resp, err := uc.Search(ctx, "定休日は？", 5)
	gt.NoError(t, err).Required()
	gt.Array(t, resp.Results).Length(1)
	gt.Value(t, resp.Results[0].ID).Equal(model.RecordID("A-0"))

	release()
	wg.Wait()

	gt.Value(t, uc.State()).Equal(types.IndexStateReady)
	resp, err = uc.Search(ctx, "定休日は？", 5)
	gt.NoError(t, err).Required()
	gt.Value(t, resp.Results[0].ID).Equal(model.RecordID("A-1"))
}

func TestConcurrentColdStartBuildsOnce(t *testing.T) {
	ctx := context.Background()
	embedder := newHashEmbedder()
	uc := usecase.NewSearchUseCase(newStubLoader(manyRecords(12)...), embedder)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := uc.Search(ctx, fmt.Sprintf("question %d", i), 3)
			gt.NoError(t, err)
		}(i)
	}
	wg.Wait()
	gt.Number(t, embedder.Embedded()).Equal(12)
}

func TestPersistedIndexIsReused(t *testing.T) {
	ctx := context.Background()
	store, err := vectorindex.NewFileStore(t.TempDir())
	gt.NoError(t, err).Required()
	records := manyRecords(6)

	first := newHashEmbedder()
	uc1 := usecase.NewSearchUseCase(newStubLoader(records...), first, usecase.WithIndexStore(store))
	res, err := uc1.Refresh(ctx, false)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Action).Equal(usecase.RefreshBuilt)
	gt.Number(t, first.Embedded()).Equal(6)

	second := newHashEmbedder()
	uc2 := usecase.NewSearchUseCase(newStubLoader(records...), second, usecase.WithIndexStore(store))
	res, err = uc2.Refresh(ctx, false)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Action).Equal(usecase.RefreshLoaded)
	gt.Number(t, second.Embedded()).Equal(0)

	res, err = uc2.Refresh(ctx, false)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Action).Equal(usecase.RefreshKept)

	a, err := uc1.Search(ctx, "question 2", 3)
	gt.NoError(t, err).Required()
	b, err := uc2.Search(ctx, "question 2", 3)
	gt.NoError(t, err).Required()
	gt.Value(t, b.Results).Equal(a.Results)

	// a stale persisted index is rebuilt, reusing vectors of unchanged questions
	changed := append(manyRecords(6), qa("F-6", "brand new question", "new answer", "cat0"))
	third := newHashEmbedder()
	uc3 := usecase.NewSearchUseCase(newStubLoader(changed...), third, usecase.WithIndexStore(store))
	res, err = uc3.Refresh(ctx, false)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Action).Equal(usecase.RefreshBuilt)
	gt.Number(t, res.Reused).Equal(6)
	gt.Number(t, third.Embedded()).Equal(1)
}

func TestModelChangeForcesFullRebuild(t *testing.T) {
	ctx := context.Background()
	embedder := newHashEmbedder()
	uc := usecase.NewSearchUseCase(newStubLoader(manyRecords(4)...), embedder)
	gt.NoError(t, uc.Warmup(ctx)).Required()

	embedder.SetModel("hash-v2@8")
	res, err := uc.Refresh(ctx, false)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Action).Equal(usecase.RefreshBuilt)
	gt.Number(t, res.Reused).Equal(0)
	gt.Number(t, embedder.Embedded()).Equal(8)
	gt.Value(t, uc.Stats().ModelID).Equal("hash-v2@8")
}

func TestForceRefreshReembeds(t *testing.T) {
	ctx := context.Background()
	embedder := newHashEmbedder()
	uc := usecase.NewSearchUseCase(newStubLoader(manyRecords(3)...), embedder)
	gt.NoError(t, uc.Warmup(ctx)).Required()

	res, err := uc.Refresh(ctx, true)
	gt.NoError(t, err).Required()
	gt.Value(t, res.Action).Equal(usecase.RefreshBuilt)
	gt.Number(t, res.Embedded).Equal(3)
	gt.Number(t, embedder.Embedded()).Equal(6)
}

func TestEmbeddingFailureWithoutFallback(t *testing.T) {
	ctx := context.Background()
	embedder := newHashEmbedder()
	uc := usecase.NewSearchUseCase(newStubLoader(qa("A-0", "営業時間は？", "9:00-18:00", "")), embedder)
	gt.NoError(t, uc.Warmup(ctx)).Required()

	embedder.SetFail(true)
	_, err := uc.Search(ctx, "営業時間は？", 5)
	gt.Error(t, err).Is(usecase.ErrEmbeddingFailed)
}

func TestKeywordFallback(t *testing.T) {
	ctx := context.Background()
	embedder := newHashEmbedder()
	cfg := usecase.DefaultSearchConfig()
	cfg.Fallback = types.FallbackKeyword
	uc := usecase.NewSearchUseCase(newStubLoader(
		qa("A-0", "営業時間は？", "9:00-18:00", "総務"),
		qa("A-1", "VPNの接続方法", "クライアントを起動", "IT"),
		qa("A-2", "VPN password reset", "Use the portal", "IT"),
	), embedder, usecase.WithSearchConfig(cfg))
	gt.NoError(t, uc.Warmup(ctx)).Required()

	embedder.SetFail(true)
	resp, err := uc.Search(ctx, "ＶＰＮ password", 5)
	gt.NoError(t, err).Required()
	gt.Value(t, resp.Mode).Equal(model.SearchModeKeyword)
	gt.Array(t, resp.Results).Length(2)
	gt.Value(t, resp.Results[0].ID).Equal(model.RecordID("A-2"))
	gt.Value(t, resp.Results[0].Score).Equal(1.0)
	gt.Value(t, resp.Results[1].ID).Equal(model.RecordID("A-1"))
	gt.Value(t, resp.Results[1].Score).Equal(0.5)

	resp, err = uc.Search(ctx, "営業時間は？", 5)
	gt.NoError(t, err).Required()
	gt.Array(t, resp.Results).Length(1)
	gt.Value(t, resp.Results[0].ID).Equal(model.RecordID("A-0"))
}

func TestKeywordFallbackIgnoresMinScore(t *testing.T) {
	ctx := context.Background()
	embedder := newHashEmbedder()
	cfg := usecase.DefaultSearchConfig()
	cfg.Fallback = types.FallbackKeyword
	cfg.MinScore = 0.9
	uc := usecase.NewSearchUseCase(newStubLoader(
		qa("A-1", "VPNの接続方法", "クライアントを起動", "IT"),
		qa("A-2", "VPN password reset", "Use the portal", "IT"),
	), embedder, usecase.WithSearchConfig(cfg))
	gt.NoError(t, uc.Warmup(ctx)).Required()

	embedder.SetFail(true)
	resp, err := uc.Search(ctx, "VPN password", 5)
	gt.NoError(t, err).Required()
	gt.Value(t, resp.Mode).Equal(model.SearchModeKeyword)
	gt.Array(t, resp.Results).Length(2).Required()
	gt.Value(t, resp.Results[1].ID).Equal(model.RecordID("A-1"))
	gt.Value(t, resp.Results[1].Score).Equal(0.5)
}

func TestSearchWithoutTimeoutUsesDefault(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewSearchUseCase(
		newStubLoader(qa("A-0", "営業時間は？", "9:00-18:00", "")),
		newHashEmbedder(),
		usecase.WithSearchConfig(usecase.SearchConfig{DefaultK: 5}),
	)
	gt.NoError(t, uc.Warmup(ctx)).Required()

	// a zero timeout would expire the query context before embedding
	resp, err := uc.Search(ctx, "営業時間は？", 0)
	gt.NoError(t, err).Required()
	gt.Value(t, resp.Mode).Equal(model.SearchModeVector)
	gt.Array(t, resp.Results).Length(1).Required()
	gt.Value(t, resp.Results[0].ID).Equal(model.RecordID("A-0"))
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	loader := newStubLoader(manyRecords(7)...)
	uc := usecase.NewSearchUseCase(loader, newHashEmbedder())

	// browsing works before the index exists
	page, err := uc.ListFAQ(ctx, usecase.FAQFilter{})
	gt.NoError(t, err).Required()
	gt.Number(t, page.Total).Equal(7)
	gt.Value(t, uc.State()).Equal(types.IndexStateUninitialized)

	gt.NoError(t, uc.Warmup(ctx)).Required()

	page, err = uc.ListFAQ(ctx, usecase.FAQFilter{Category: "cat1", Limit: 1, Offset: 1})
	gt.NoError(t, err).Required()
	gt.Number(t, page.Total).Equal(2)
	gt.Array(t, page.Records).Length(1)
	gt.Value(t, page.Records[0].ID).Equal(model.RecordID("F-4"))

	page, err = uc.ListFAQ(ctx, usecase.FAQFilter{Offset: 50})
	gt.NoError(t, err).Required()
	gt.Array(t, page.Records).Length(0)

	_, err = uc.ListFAQ(ctx, usecase.FAQFilter{Limit: -1})
	gt.Error(t, err).Is(usecase.ErrInvalidQuery)

	categories, err := uc.Categories(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, categories).Equal([]string{"cat0", "cat1", "cat2"})

	r, err := uc.Answer(ctx, "F-3")
	gt.NoError(t, err).Required()
	gt.Value(t, r.Answer).Equal("answer 3")

	_, err = uc.Answer(ctx, "F-99")
	gt.Error(t, err).Is(usecase.ErrAnswerNotFound)

	stats := uc.Stats()
	gt.Number(t, stats.Records).Equal(7)
	gt.Number(t, stats.Dimension).Equal(8)
	gt.Value(t, stats.Metric).Equal(vectorindex.MetricCosine01)
	gt.Value(t, stats.State).Equal(types.IndexStateReady)
}
