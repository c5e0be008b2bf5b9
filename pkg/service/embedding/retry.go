package embedding

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/goerr/v2"
)

// RetryState is a state of the per-batch retry machine:
// Idle -> Attempting -> (Succeeded | Backoff -> Attempting | Exhausted | Failed)
type RetryState int

const (
	RetryIdle RetryState = iota
	RetryAttempting
	RetryBackoff
	RetryExhausted
	RetrySucceeded
	RetryFailed
)

func (s RetryState) String() string {
	switch s {
	case RetryIdle:
		return "idle"
	case RetryAttempting:
		return "attempting"
	case RetryBackoff:
		return "backoff"
	case RetryExhausted:
		return "exhausted"
	case RetrySucceeded:
		return "succeeded"
	case RetryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RetryPolicy bounds the retry machine
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Jitter is the randomization factor in [0,1); 0 gives exact intervals
	Jitter float64
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		Multiplier:      2,
		Jitter:          0.2,
	}
}

// Transition is reported on every state change
type Transition struct {
	From    RetryState
	To      RetryState
	Attempt int
	Wait    time.Duration
	Err     error
}

// Retrier drives a single operation through the retry states
type Retrier struct {
	policy       RetryPolicy
	clock        Clock
	onTransition func(Transition)
}

// NewRetrier creates a Retrier. onTransition may be nil.
func NewRetrier(policy RetryPolicy, clock Clock, onTransition func(Transition)) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Retrier{policy: policy, clock: clock, onTransition: onTransition}
}

func (r *Retrier) newBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     r.policy.InitialInterval,
		RandomizationFactor: r.policy.Jitter,
		Multiplier:          r.policy.Multiplier,
		MaxInterval:         r.policy.MaxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               r.clock,
	}
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.Reset()
	return b
}

// Do runs op until it succeeds, fails with a non-transient error, or the
// attempt budget runs out. Exhaustion yields ErrProviderUnavailable.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var (
		state   = RetryIdle
		attempt int
		lastErr error
		wait    time.Duration
	)
	bo := r.newBackOff()

	move := func(to RetryState) {
		if r.onTransition != nil {
			r.onTransition(Transition{From: state, To: to, Attempt: attempt, Wait: wait, Err: lastErr})
		}
		state = to
	}

	for {
		switch state {
		case RetryIdle:
			move(RetryAttempting)

		case RetryAttempting:
			attempt++
			wait = 0
			lastErr = op(ctx)
			switch {
			case lastErr == nil:
				move(RetrySucceeded)
			case isCanceled(ctx, lastErr) || !IsTransient(lastErr):
				move(RetryFailed)
			case attempt >= r.policy.MaxAttempts:
				move(RetryExhausted)
			default:
				wait = bo.NextBackOff()
				if wait == backoff.Stop {
					move(RetryExhausted)
				} else {
					move(RetryBackoff)
				}
			}

		case RetryBackoff:
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				move(RetryFailed)
			case <-r.clock.After(wait):
				move(RetryAttempting)
			}

		case RetrySucceeded:
			return nil

		case RetryFailed:
			return lastErr

		case RetryExhausted:
			return goerr.Wrap(ErrProviderUnavailable, "embedding retries exhausted",
				goerr.V("attempts", attempt),
				goerr.V("last_error", lastErr.Error()),
			)
		}
	}
}
