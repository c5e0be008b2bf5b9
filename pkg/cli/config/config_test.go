package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/madoguchi/pkg/cli/config"
	"github.com/secmon-lab/madoguchi/pkg/domain/types"
	"github.com/secmon-lab/madoguchi/pkg/service/corpus"
	"github.com/secmon-lab/madoguchi/pkg/service/embedding"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestLoadCorpusConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		check   func(t *testing.T, cfg *config.CorpusFile)
	}{
		{
			name: "full configuration",
			content: `
default_category = "その他"
category_from_source = true

[columns]
question = ["問い合わせ", "question"]
answer   = ["回答"]
category = ["分類"]

[[source]]
path = "data/*.xlsx"
sheet = "FAQ"
category = "総務"

[[source]]
path = "extra.csv"
`,
			check: func(t *testing.T, cfg *config.CorpusFile) {
				m := cfg.Mapping()
				gt.Array(t, m.Columns.Question).Equal([]string{"問い合わせ", "question"})
				gt.Array(t, m.Columns.Answer).Equal([]string{"回答"})
				gt.Array(t, m.Columns.Category).Equal([]string{"分類"})
				gt.Value(t, m.DefaultCategory).Equal("その他")
				gt.Bool(t, m.CategoryFromSource).True()

				sources := cfg.CorpusSources()
				gt.Array(t, sources).Length(2)
				gt.Value(t, sources[0]).Equal(corpus.Source{Path: "data/*.xlsx", Sheet: "FAQ", Category: "総務"})
				gt.Value(t, sources[1].Path).Equal("extra.csv")
			},
		},
		{
			name: "omitted columns keep built-in aliases",
			content: `
[[source]]
path = "faq.csv"
`,
			check: func(t *testing.T, cfg *config.CorpusFile) {
				m := cfg.Mapping()
				gt.Array(t, m.Columns.Question).Equal(corpus.DefaultMapping().Columns.Question)
				gt.Value(t, m.DefaultCategory).Equal(corpus.DefaultMapping().DefaultCategory)
			},
		},
		{
			name:    "source without path",
			content: "[[source]]\nsheet = \"x\"\n",
			wantErr: config.ErrInvalidConfig,
		},
		{
			name:    "alias claimed by two fields",
			content: "[columns]\nquestion = [\"q\"]\nanswer = [\"Q\"]\n",
			wantErr: corpus.ErrInvalidMapping,
		},
		{
			name:    "broken toml",
			content: "[columns\n",
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "corpus.toml", tt.content)
			cfg, err := config.LoadCorpusConfiguration(path)
			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err).Required()
			tt.check(t, cfg)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadCorpusConfiguration(filepath.Join(t.TempDir(), "none.toml"))
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})
}

func TestCorpusConfigure(t *testing.T) {
	t.Run("paths are appended to configured sources", func(t *testing.T) {
		path := writeFile(t, "corpus.toml", "[[source]]\npath = \"a.csv\"\n")
		loader, err := config.NewCorpusForTest(path, "b.xlsx", "dir").Configure()
		gt.NoError(t, err).Required()
		sources := loader.Sources()
		gt.Array(t, sources).Length(3)
		gt.Value(t, sources[0].Path).Equal("a.csv")
		gt.Value(t, sources[2].Path).Equal("dir")
	})

	t.Run("no source at all", func(t *testing.T) {
		_, err := config.NewCorpusForTest("").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestSearchConfigure(t *testing.T) {
	valid := config.SearchForTest{
		DefaultK: 5,
		MaxK:     20,
		Timeout:  30 * time.Second,
		Wait:     "reject",
		Fallback: "keyword",
	}

	cfg, err := config.NewSearchForTest(valid).Configure()
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.Wait).Equal(types.WaitPolicyReject)
	gt.Value(t, cfg.Fallback).Equal(types.FallbackKeyword)
	gt.Number(t, cfg.MaxK).Equal(20)

	broken := []func(v *config.SearchForTest){
		func(v *config.SearchForTest) { v.Wait = "sometimes" },
		func(v *config.SearchForTest) { v.Fallback = "guess" },
		func(v *config.SearchForTest) { v.MinScore = 1.5 },
		func(v *config.SearchForTest) { v.DefaultK = 30 },
		func(v *config.SearchForTest) { v.MaxK = 0 },
		func(v *config.SearchForTest) { v.Timeout = 0 },
	}
	for _, mutate := range broken {
		v := valid
		mutate(&v)
		_, err := config.NewSearchForTest(v).Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	}
}

func TestValidateTimeouts(t *testing.T) {
	search := config.NewSearchForTest(config.SearchForTest{Timeout: usecase.DefaultSearchTimeout})

	ok := config.NewEmbeddingForTest(config.EmbeddingForTest{RequestTimeout: 10 * time.Second})
	gt.NoError(t, config.ValidateTimeouts(ok, search))

	equal := config.NewEmbeddingForTest(config.EmbeddingForTest{RequestTimeout: usecase.DefaultSearchTimeout})
	gt.Error(t, config.ValidateTimeouts(equal, search)).Is(config.ErrTimeoutOrdering)
}

func TestEmbeddingProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("openai requires an api key", func(t *testing.T) {
		cfg := config.NewEmbeddingForTest(config.EmbeddingForTest{Provider: config.ProviderOpenAI})
		_, err := cfg.Provider(ctx)
		gt.Error(t, err).Is(config.ErrMissingAPIKey)
	})

	t.Run("openai model id carries model and dimensions", func(t *testing.T) {
		cfg := config.NewEmbeddingForTest(config.EmbeddingForTest{
			Provider:   config.ProviderOpenAI,
			APIKey:     "sk-test",
			Model:      "text-embedding-3-large",
			Dimensions: 256,
		})
		p, err := cfg.Provider(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, p.ModelID()).Equal("openai:text-embedding-3-large@256")
	})

	t.Run("gemini requires a project", func(t *testing.T) {
		cfg := config.NewEmbeddingForTest(config.EmbeddingForTest{Provider: config.ProviderGemini})
		_, err := cfg.Provider(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("model defaults follow the provider", func(t *testing.T) {
		openai := config.NewEmbeddingForTest(config.EmbeddingForTest{Provider: config.ProviderOpenAI})
		gt.String(t, openai.Model()).Equal(embedding.DefaultOpenAIModel)

		gemini := config.NewEmbeddingForTest(config.EmbeddingForTest{Provider: config.ProviderGemini})
		gt.String(t, gemini.Model()).Equal(embedding.DefaultGeminiModel)

		custom := config.NewEmbeddingForTest(config.EmbeddingForTest{Provider: config.ProviderGemini, Model: "gemini-embedding-001"})
		gt.String(t, custom.Model()).Equal("gemini-embedding-001")
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.NewEmbeddingForTest(config.EmbeddingForTest{Provider: "cohere"})
		_, err := cfg.Provider(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("retry policy overrides", func(t *testing.T) {
		cfg := config.NewEmbeddingForTest(config.EmbeddingForTest{MaxAttempts: 7})
		gt.Number(t, cfg.RetryPolicy().MaxAttempts).Equal(7)
	})
}

func TestRepositoryConfigure(t *testing.T) {
	ctx := context.Background()

	repo, err := config.NewRepositoryForTest(config.BackendMemory, "").Configure(ctx)
	gt.NoError(t, err).Required()
	gt.NoError(t, repo.Close())

	path := filepath.Join(t.TempDir(), "nested", "feedback.jsonl")
	repo, err = config.NewRepositoryForTest(config.BackendFile, path).Configure(ctx)
	gt.NoError(t, err).Required()
	gt.NoError(t, repo.Close())

	_, err = config.NewRepositoryForTest(config.BackendFirestore, "").Configure(ctx)
	gt.Error(t, err).Is(config.ErrInvalidConfig)

	_, err = config.NewRepositoryForTest("mysql", "").Configure(ctx)
	gt.Error(t, err).Is(config.ErrInvalidConfig)
}

func TestIndexConfigure(t *testing.T) {
	ctx := context.Background()

	store, closer, err := config.NewIndexForTest("").Configure(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, store).Nil()
	closer()

	dir := filepath.Join(t.TempDir(), "index")
	store, closer, err = config.NewIndexForTest(dir).Configure(ctx)
	gt.NoError(t, err).Required()
	defer closer()
	gt.Value(t, store.Location()).Equal(dir)
}

func TestLoggerConfigure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.log")

	closer, err := config.NewLoggerForTest("debug", "json", out).Configure()
	gt.NoError(t, err).Required()
	closer()

	_, err = config.NewLoggerForTest("verbose", "json", out).Configure()
	gt.Error(t, err).Is(config.ErrInvalidConfig)

	_, err = config.NewLoggerForTest("info", "xml", out).Configure()
	gt.Error(t, err).Is(config.ErrInvalidConfig)
}
