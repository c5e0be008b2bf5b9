package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/service/embedding"
	"github.com/urfave/cli/v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Embedding holds configuration of the embedding provider and client
type Embedding struct {
	provider   string
	apiKey     string `masq:"secret"`
	model      string
	baseURL    string
	dimensions int

	batchSize      int
	concurrency    int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	requestTimeout time.Duration
	rateLimit      float64
	rateBurst      int
	breakerTrips   int
	breakerOpen    time.Duration

	gemini Gemini
}

// Flags returns CLI flags for embedding configuration
func (x *Embedding) Flags() []cli.Flag {
	policy := embedding.DefaultRetryPolicy()
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "embedding-provider",
			Usage:       "Embedding provider (openai, gemini)",
			Category:    "Embedding",
			Value:       ProviderOpenAI,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_PROVIDER"),
			Destination: &x.provider,
		},
		&cli.StringFlag{
			Name:        "embedding-api-key",
			Usage:       "API key of the embedding provider",
			Category:    "Embedding",
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_API_KEY", "OPENAI_API_KEY"),
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name (default: " + embedding.DefaultOpenAIModel + " for openai, " + embedding.DefaultGeminiModel + " for gemini)",
			Category:    "Embedding",
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_MODEL"),
			Destination: &x.model,
		},
		&cli.StringFlag{
			Name:        "embedding-base-url",
			Usage:       "Base URL of an OpenAI compatible embeddings API",
			Category:    "Embedding",
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.IntFlag{
			Name:        "embedding-dimensions",
			Usage:       "Vector dimensionality requested from the model (0 for the model default)",
			Category:    "Embedding",
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_DIMENSIONS"),
			Destination: &x.dimensions,
		},
		&cli.IntFlag{
			Name:        "embedding-batch-size",
			Usage:       "Maximum texts per provider call",
			Category:    "Embedding",
			Value:       embedding.DefaultBatchSize,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_BATCH_SIZE"),
			Destination: &x.batchSize,
		},
		&cli.IntFlag{
			Name:        "embedding-concurrency",
			Usage:       "Provider calls in flight at once",
			Category:    "Embedding",
			Value:       embedding.DefaultConcurrency,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_CONCURRENCY"),
			Destination: &x.concurrency,
		},
		&cli.IntFlag{
			Name:        "embedding-max-attempts",
			Usage:       "Attempts per batch before the provider is considered unavailable",
			Category:    "Embedding",
			Value:       policy.MaxAttempts,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_MAX_ATTEMPTS"),
			Destination: &x.maxAttempts,
		},
		&cli.DurationFlag{
			Name:        "embedding-initial-backoff",
			Usage:       "First retry wait",
			Category:    "Embedding",
			Value:       policy.InitialInterval,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_INITIAL_BACKOFF"),
			Destination: &x.initialBackoff,
		},
		&cli.DurationFlag{
			Name:        "embedding-max-backoff",
			Usage:       "Upper bound of a retry wait",
			Category:    "Embedding",
			Value:       policy.MaxInterval,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_MAX_BACKOFF"),
			Destination: &x.maxBackoff,
		},
		&cli.DurationFlag{
			Name:        "embedding-timeout",
			Usage:       "Timeout of a single provider call; must be shorter than --search-timeout",
			Category:    "Embedding",
			Value:       embedding.DefaultRequestTimeout,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_TIMEOUT"),
			Destination: &x.requestTimeout,
		},
		&cli.FloatFlag{
			Name:        "embedding-rate-limit",
			Usage:       "Provider calls per second (0 for no limit)",
			Category:    "Embedding",
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_RATE_LIMIT"),
			Destination: &x.rateLimit,
		},
		&cli.IntFlag{
			Name:        "embedding-rate-burst",
			Usage:       "Burst size of the rate limit",
			Category:    "Embedding",
			Value:       1,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_RATE_BURST"),
			Destination: &x.rateBurst,
		},
		&cli.IntFlag{
			Name:        "embedding-breaker-trips",
			Usage:       "Consecutive transient failures that open the circuit breaker (0 disables it)",
			Category:    "Embedding",
			Value:       5,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_BREAKER_TRIPS"),
			Destination: &x.breakerTrips,
		},
		&cli.DurationFlag{
			Name:        "embedding-breaker-open",
			Usage:       "How long an open circuit breaker rejects calls",
			Category:    "Embedding",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("MADOGUCHI_EMBEDDING_BREAKER_OPEN"),
			Destination: &x.breakerOpen,
		},
	}
	return append(flags, x.gemini.Flags()...)
}

// LogValue implements slog.LogValuer. The API key is never logged.
func (x Embedding) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("provider", x.provider),
		slog.String("model", x.Model()),
		slog.Bool("api_key_set", x.apiKey != ""),
		slog.Int("dimensions", x.dimensions),
		slog.Int("batch_size", x.batchSize),
		slog.Int("max_attempts", x.maxAttempts),
		slog.Duration("timeout", x.requestTimeout),
	}
	if x.provider == ProviderGemini {
		attrs = append(attrs, slog.Any("gemini", x.gemini))
	}
	return slog.GroupValue(attrs...)
}

// Model returns the configured model, or the default of the selected provider
func (x *Embedding) Model() string {
	if x.model != "" {
		return x.model
	}
	if x.provider == ProviderGemini {
		return embedding.DefaultGeminiModel
	}
	return embedding.DefaultOpenAIModel
}

// RequestTimeout returns the per call timeout
func (x *Embedding) RequestTimeout() time.Duration {
	return x.requestTimeout
}

// RetryPolicy returns the configured retry bounds
func (x *Embedding) RetryPolicy() embedding.RetryPolicy {
	p := embedding.DefaultRetryPolicy()
	if x.maxAttempts > 0 {
		p.MaxAttempts = x.maxAttempts
	}
	if x.initialBackoff > 0 {
		p.InitialInterval = x.initialBackoff
	}
	if x.maxBackoff > 0 {
		p.MaxInterval = x.maxBackoff
	}
	return p
}

// Provider creates the configured embedding provider
func (x *Embedding) Provider(ctx context.Context) (embedding.Provider, error) {
	switch x.provider {
	case ProviderOpenAI:
		if x.apiKey == "" {
			return nil, goerr.Wrap(ErrMissingAPIKey, "set --embedding-api-key or OPENAI_API_KEY", goerr.V(ProviderKey, x.provider))
		}
		opts := []embedding.OpenAIOption{
			embedding.WithOpenAIModel(x.Model()),
			embedding.WithOpenAIDimensions(x.dimensions),
		}
		if x.baseURL != "" {
			opts = append(opts, embedding.WithOpenAIBaseURL(x.baseURL))
		}
		return embedding.NewOpenAI(x.apiKey, opts...)

	case ProviderGemini:
		model := x.Model()
		llm, err := x.gemini.Configure(ctx, model)
		if err != nil {
			return nil, err
		}
		return embedding.NewGemini(llm, model, x.dimensions, x.gemini.Label()), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "unknown embedding provider", goerr.V(ProviderKey, x.provider))
	}
}

// Configure creates the embedding client with batching, retry and breaker settings
func (x *Embedding) Configure(ctx context.Context) (*embedding.Client, error) {
	provider, err := x.Provider(ctx)
	if err != nil {
		return nil, err
	}
	return x.NewClient(provider), nil
}

// NewClient wraps provider in a client using the configured tunables
func (x *Embedding) NewClient(provider embedding.Provider) *embedding.Client {
	trips := max(x.breakerTrips, 0)
	return embedding.New(provider,
		embedding.WithBatchSize(x.batchSize),
		embedding.WithConcurrency(x.concurrency),
		embedding.WithRequestTimeout(x.requestTimeout),
		embedding.WithRateLimit(x.rateLimit, x.rateBurst),
		embedding.WithRetryPolicy(x.RetryPolicy()),
		embedding.WithCircuitBreaker(uint32(trips), x.breakerOpen), // #nosec G115 - clamped to non-negative
	)
}
