package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/types"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Search holds search tunables and the index refresh policy
type Search struct {
	defaultK        int
	maxK            int
	minScore        float64
	timeout         time.Duration
	wait            string
	fallback        string
	refreshInterval time.Duration
}

// Flags returns CLI flags for search configuration
func (x *Search) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "search-default-k",
			Usage:       "Number of candidates returned when the request does not say",
			Category:    "Search",
			Value:       usecase.DefaultK,
			Sources:     cli.EnvVars("MADOGUCHI_SEARCH_DEFAULT_K"),
			Destination: &x.defaultK,
		},
		&cli.IntFlag{
			Name:        "search-max-k",
			Usage:       "Upper bound of candidates per request",
			Category:    "Search",
			Value:       usecase.DefaultMaxK,
			Sources:     cli.EnvVars("MADOGUCHI_SEARCH_MAX_K"),
			Destination: &x.maxK,
		},
		&cli.FloatFlag{
			Name:        "search-min-score",
			Usage:       "Drop candidates scoring below this value (0 to 1)",
			Category:    "Search",
			Sources:     cli.EnvVars("MADOGUCHI_SEARCH_MIN_SCORE"),
			Destination: &x.minScore,
		},
		&cli.DurationFlag{
			Name:        "search-timeout",
			Usage:       "Overall timeout of one search",
			Category:    "Search",
			Value:       usecase.DefaultSearchTimeout,
			Sources:     cli.EnvVars("MADOGUCHI_SEARCH_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.StringFlag{
			Name:        "search-wait",
			Usage:       "What searches do before the first index is ready (block, reject)",
			Category:    "Search",
			Value:       string(types.WaitPolicyBlock),
			Sources:     cli.EnvVars("MADOGUCHI_SEARCH_WAIT"),
			Destination: &x.wait,
		},
		&cli.StringFlag{
			Name:        "search-fallback",
			Usage:       "Fallback when query embedding fails (none, keyword)",
			Category:    "Search",
			Value:       string(types.FallbackNone),
			Sources:     cli.EnvVars("MADOGUCHI_SEARCH_FALLBACK"),
			Destination: &x.fallback,
		},
		&cli.DurationFlag{
			Name:        "refresh-interval",
			Usage:       "How often the corpus is checked for changes (0 disables periodic checks)",
			Category:    "Search",
			Value:       10 * time.Minute,
			Sources:     cli.EnvVars("MADOGUCHI_REFRESH_INTERVAL"),
			Destination: &x.refreshInterval,
		},
	}
}

// LogValue implements slog.LogValuer
func (x Search) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("default_k", x.defaultK),
		slog.Int("max_k", x.maxK),
		slog.Float64("min_score", x.minScore),
		slog.Duration("timeout", x.timeout),
		slog.String("wait", x.wait),
		slog.String("fallback", x.fallback),
		slog.Duration("refresh_interval", x.refreshInterval),
	)
}

// RefreshInterval returns the freshness check interval
func (x *Search) RefreshInterval() time.Duration {
	return x.refreshInterval
}

// Configure validates the flags and returns the search configuration
func (x *Search) Configure() (usecase.SearchConfig, error) {
	cfg := usecase.DefaultSearchConfig()

	wait, err := types.ParseWaitPolicy(x.wait)
	if err != nil {
		return cfg, goerr.Wrap(ErrInvalidConfig, "invalid --search-wait", goerr.V("value", x.wait))
	}
	fallback, err := types.ParseFallbackPolicy(x.fallback)
	if err != nil {
		return cfg, goerr.Wrap(ErrInvalidConfig, "invalid --search-fallback", goerr.V("value", x.fallback))
	}
	if x.minScore < 0 || x.minScore > 1 {
		return cfg, goerr.Wrap(ErrInvalidConfig, "--search-min-score must be within [0, 1]", goerr.V("value", x.minScore))
	}
	if x.maxK < 1 || x.defaultK < 1 || x.defaultK > x.maxK {
		return cfg, goerr.Wrap(ErrInvalidConfig, "require 1 <= default k <= max k",
			goerr.V("default_k", x.defaultK), goerr.V("max_k", x.maxK))
	}
	if x.timeout <= 0 {
		return cfg, goerr.Wrap(ErrInvalidConfig, "--search-timeout must be positive", goerr.V("value", x.timeout))
	}

	cfg.DefaultK = x.defaultK
	cfg.MaxK = x.maxK
	cfg.MinScore = x.minScore
	cfg.Timeout = x.timeout
	cfg.Wait = wait
	cfg.Fallback = fallback
	return cfg, nil
}

// ValidateTimeouts checks that a provider call times out before the search
// that issued it, leaving room for the index lookup.
func ValidateTimeouts(emb *Embedding, search *Search) error {
	if emb.RequestTimeout() >= search.timeout {
		return goerr.Wrap(ErrTimeoutOrdering, "adjust --embedding-timeout or --search-timeout",
			goerr.V("embedding_timeout", emb.RequestTimeout()),
			goerr.V("search_timeout", search.timeout))
	}
	return nil
}
