// Package retry runs an ordered list of providers, retrying each a bounded
// number of times before falling back to the next.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/metrics"
	"github.com/byAyes/wbot/internal/core/provider"
)

// Policy is the retry plan applied to every step
type Policy struct {
	// MaxAttempts per provider, including the first
	MaxAttempts int
	// Delay between attempts of one provider
	Delay time.Duration
	// Exponential grows Delay with jitter up to MaxDelay
	Exponential bool
	MaxDelay    time.Duration
	// RetryNotFound retries well-formed empty results like transient errors.
	// Either way an exhausted provider falls back to the next one.
	RetryNotFound bool
}

// DefaultPolicy is three attempts one second apart
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		Delay:         time.Second,
		MaxDelay:      10 * time.Second,
		RetryNotFound: true,
	}
}

// Step is one provider in the chain
type Step[T any] struct {
	Provider string
	Call     func(ctx context.Context) (T, error)
}

// FallbackFunc is told when the chain moves from one provider to the next
type FallbackFunc func(from, to string, err error)

// Failure records how one provider ended
type Failure struct {
	Provider string
	Attempts int
	Err      error
}

// ExhaustedError is returned when every provider failed
type ExhaustedError struct {
	Op       string
	Failures []Failure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s (%d attempts): %v", f.Provider, f.Attempts, f.Err))
	}
	return fmt.Sprintf("%s: all providers failed: %s", e.Op, strings.Join(parts, "; "))
}

// Unwrap exposes every provider's last error to errors.Is and errors.As
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// AllNotFound reports whether every provider answered with a well-formed
// empty result, as opposed to failing.
func (e *ExhaustedError) AllNotFound() bool {
	if len(e.Failures) == 0 {
		return false
	}
	for _, f := range e.Failures {
		if provider.StatusOf(f.Err) != provider.StatusNotFound {
			return false
		}
	}
	return true
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.Exponential {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.Delay
		eb.MaxInterval = p.MaxDelay
		eb.MaxElapsedTime = 0
		b = eb
	} else {
		b = backoff.NewConstantBackOff(p.Delay)
	}
	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Run tries each step in order and returns the first success together with
// the name of the provider that produced it. A fatal error stops the whole
// chain; a rejected one skips straight to the next provider.
func Run[T any](ctx context.Context, p Policy, op string, steps []Step[T], onFallback FallbackFunc) (T, string, error) {
	var zero T
	exhausted := &ExhaustedError{Op: op}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		result, attempts, err := runStep(ctx, p, op, step)
		if err == nil {
			return result, step.Provider, nil
		}
		if ctx.Err() != nil {
			return zero, "", ctx.Err()
		}

		exhausted.Failures = append(exhausted.Failures, Failure{Provider: step.Provider, Attempts: attempts, Err: err})
		if provider.StatusOf(err) == provider.StatusFatal {
			log.Error().Err(err).Str("op", op).Str("provider", step.Provider).Msg("fatal provider error, abandoning chain")
			return zero, "", exhausted
		}

		if i+1 < len(steps) {
			next := steps[i+1].Provider
			metrics.ProviderFallbacks.WithLabelValues(op, step.Provider).Inc()
			log.Warn().
				Err(err).
				Str("op", op).
				Str("from", step.Provider).
				Str("to", next).
				Int("attempts", attempts).
				Msg("provider exhausted, falling back")
			if onFallback != nil {
				onFallback(step.Provider, next, err)
			}
		}
	}

	return zero, "", exhausted
}

func runStep[T any](ctx context.Context, p Policy, op string, step Step[T]) (T, int, error) {
	var result T
	attempts := 0

	operation := func() error {
		attempts++
		v, err := step.Call(ctx)
		status := provider.StatusOf(err)
		metrics.ProviderAttempts.WithLabelValues(op, step.Provider, string(status)).Inc()

		switch status {
		case provider.StatusOK:
			result = v
			if attempts > 1 {
				log.Info().Str("op", op).Str("provider", step.Provider).Int("attempt", attempts).Msg("succeeded after retry")
			}
			return nil
		case provider.StatusFatal, provider.StatusRejected:
			return backoff.Permanent(err)
		case provider.StatusNotFound:
			if !p.RetryNotFound {
				return backoff.Permanent(err)
			}
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Str("op", op).
			Str("provider", step.Provider).
			Int("attempt", attempts).
			Int("max_attempts", p.MaxAttempts).
			Dur("retry_delay", wait).
			Msg("retrying provider after error")
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), notify)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return result, attempts, err
}
