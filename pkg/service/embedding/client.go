package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize      = 64
	DefaultConcurrency    = 2
	DefaultRequestTimeout = 10 * time.Second
)

// Client turns texts into vectors through a Provider. It batches, throttles,
// retries and trips a circuit breaker, but keeps no results between calls.
type Client struct {
	provider       Provider
	batchSize      int
	concurrency    int
	requestTimeout time.Duration
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
	retrier        *Retrier

	policy       RetryPolicy
	clock        Clock
	breakerTrips uint32
	breakerOpen  time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithBatchSize sets the maximum number of texts per provider call
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches may be in flight at once
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRequestTimeout bounds a single provider call
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithRateLimit caps provider calls per second; 0 disables throttling
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetryPolicy sets the retry bounds
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithClock replaces the wall clock used for backoff waits
func WithClock(clock Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithCircuitBreaker opens the breaker after trips consecutive transient
// failures and keeps it open for openFor. trips 0 disables the breaker.
func WithCircuitBreaker(trips uint32, openFor time.Duration) Option {
	return func(c *Client) {
		c.breakerTrips = trips
		c.breakerOpen = openFor
	}
}

// New creates a Client for provider
func New(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider:       provider,
		batchSize:      DefaultBatchSize,
		concurrency:    DefaultConcurrency,
		requestTimeout: DefaultRequestTimeout,
		policy:         DefaultRetryPolicy(),
		clock:          systemClock{},
		breakerTrips:   5,
		breakerOpen:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.retrier = NewRetrier(c.policy, c.clock, c.logTransition)
	if c.breakerTrips > 0 {
		trips := c.breakerTrips
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "embedding:" + provider.ModelID(),
			MaxRequests: 1,
			Timeout:     c.breakerOpen,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= trips
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !IsTransient(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Default().Warn("embedding circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		})
	}
	return c
}

// ModelID returns the provider model id
func (c *Client) ModelID() string {
	return c.provider.ModelID()
}

// EmbedOne embeds a single text
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Embed returns one vector per text, in input order. Texts are split into
// batches that are sent independently; when a batch fails the error is
// returned together with the vectors of the batches that completed, and the
// entries of failed batches are nil.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, goerr.Wrap(ErrEmptyText, "cannot embed empty text", goerr.V("index", i))
		}
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	var (
		eg       errgroup.Group
		mu       sync.Mutex
		firstErr error
	)
	eg.SetLimit(c.concurrency)

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		eg.Go(func() error {
			vectors, err := c.embedBatch(ctx, texts[start:end])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = goerr.Wrap(err, "failed to embed batch", goerr.V("offset", start), goerr.V("size", end-start))
				}
				mu.Unlock()
				return nil
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	_ = eg.Wait()

	if firstErr != nil {
		return out, firstErr
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return goerr.Wrap(err, "rate limiter wait aborted")
			}
		}

		v, err := c.call(ctx, texts)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) || isCanceled(ctx, err) {
			return nil, err
		}
		return nil, goerr.Wrap(ErrEmbedding, "provider rejected embedding request", goerr.V("error", err.Error()))
	}

	if len(vectors) != len(texts) {
		return nil, goerr.Wrap(ErrEmbedding, "provider returned wrong number of vectors",
			goerr.V("expected", len(texts)), goerr.V("actual", len(vectors)))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, goerr.Wrap(ErrEmbedding, "provider returned empty vector", goerr.V("index", i))
		}
	}
	return vectors, nil
}

// call performs one provider request under the request timeout and the breaker
func (c *Client) call(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	run := func() ([][]float32, error) {
		v, err := c.provider.EmbedBatch(reqCtx, texts)
		if err != nil && ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, MarkTransient(goerr.Wrap(err, "embedding request timed out", goerr.V("timeout", c.requestTimeout)))
		}
		return v, err
	}

	if c.breaker == nil {
		return run()
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return run()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, MarkTransient(goerr.Wrap(err, "embedding circuit breaker rejected call"))
	}
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}

func (c *Client) logTransition(t Transition) {
	if t.To != RetryBackoff && t.To != RetryExhausted {
		return
	}
	attrs := []any{
		"model", c.provider.ModelID(),
		"attempt", t.Attempt,
		"state", t.To.String(),
	}
	if t.Err != nil {
		attrs = append(attrs, "error", t.Err.Error())
	}
	if t.To == RetryBackoff {
		attrs = append(attrs, "wait", t.Wait.String())
	}
	logging.Default().Warn("embedding call failed", attrs...)
}

// State exposes the breaker state for health reporting
func (c *Client) State() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}
