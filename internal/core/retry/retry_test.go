package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byAyes/wbot/internal/core/provider"
)

type counter struct {
	calls map[string]int
}

func (c *counter) step(name string, results ...error) Step[string] {
	return Step[string]{
		Provider: name,
		Call: func(context.Context) (string, error) {
			n := c.calls[name]
			c.calls[name]++
			if n < len(results) && results[n] == nil {
				return name + "-ok", nil
			}
			if n < len(results) {
				return "", results[n]
			}
			return "", fmt.Errorf("%s down: %w", name, provider.ErrTransient)
		},
	}
}

func fastPolicy() Policy {
	p := DefaultPolicy()
	p.Delay = 0
	return p
}

func TestRunAllFailExhaustsEveryProvider(t *testing.T) {
	c := &counter{calls: map[string]int{}}
	var fallbacks []string

	_, _, err := Run(context.Background(), fastPolicy(), "resolve",
		[]Step[string]{c.step("a"), c.step("b"), c.step("c")},
		func(from, to string, _ error) { fallbacks = append(fallbacks, from+">"+to) })

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Len(t, ex.Failures, 3)
	for _, f := range ex.Failures {
		assert.Equal(t, 3, f.Attempts)
	}
	assert.Equal(t, map[string]int{"a": 3, "b": 3, "c": 3}, c.calls)
	assert.Equal(t, []string{"a>b", "b>c"}, fallbacks)
	assert.ErrorIs(t, err, provider.ErrTransient)
	assert.False(t, ex.AllNotFound())
}

func TestRunStopsAtFirstSuccess(t *testing.T) {
	c := &counter{calls: map[string]int{}}
	transient := fmt.Errorf("timeout: %w", provider.ErrTransient)

	got, by, err := Run(context.Background(), fastPolicy(), "resolve",
		[]Step[string]{c.step("a", transient, nil), c.step("b")}, nil)

	require.NoError(t, err)
	assert.Equal(t, "a-ok", got)
	assert.Equal(t, "a", by)
	assert.Equal(t, 2, c.calls["a"])
	assert.Zero(t, c.calls["b"])
}

func TestRunFallsBackAfterExhaustion(t *testing.T) {
	c := &counter{calls: map[string]int{}}
	fallbackFired := false

	got, by, err := Run(context.Background(), fastPolicy(), "search",
		[]Step[string]{c.step("primary"), c.step("secondary", nil)},
		func(from, to string, err error) {
			fallbackFired = true
			assert.Equal(t, "primary", from)
			assert.Equal(t, "secondary", to)
			assert.ErrorIs(t, err, provider.ErrTransient)
		})

	require.NoError(t, err)
	assert.Equal(t, "secondary-ok", got)
	assert.Equal(t, "secondary", by)
	assert.Equal(t, 3, c.calls["primary"])
	assert.True(t, fallbackFired)
}

func TestRunNotFoundPolicy(t *testing.T) {
	nf := fmt.Errorf("empty: %w", provider.ErrNotFound)

	t.Run("retried by default", func(t *testing.T) {
		c := &counter{calls: map[string]int{}}
		_, _, err := Run(context.Background(), fastPolicy(), "search",
			[]Step[string]{c.step("a", nf, nf, nf), c.step("b", nf, nf, nf)}, nil)

		var ex *ExhaustedError
		require.ErrorAs(t, err, &ex)
		assert.True(t, ex.AllNotFound())
		assert.Equal(t, 3, c.calls["a"])
		assert.Equal(t, 3, c.calls["b"])
	})

	t.Run("single attempt when disabled", func(t *testing.T) {
		c := &counter{calls: map[string]int{}}
		p := fastPolicy()
		p.RetryNotFound = false
		_, _, err := Run(context.Background(), p, "search",
			[]Step[string]{c.step("a", nf), c.step("b", nil)}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, c.calls["a"])
		assert.Equal(t, 1, c.calls["b"])
	})
}

func TestRunRejectedSkipsRetries(t *testing.T) {
	c := &counter{calls: map[string]int{}}
	rejected := fmt.Errorf("401: %w", provider.ErrRejected)

	got, _, err := Run(context.Background(), fastPolicy(), "resolve",
		[]Step[string]{c.step("a", rejected), c.step("b", nil)}, nil)

	require.NoError(t, err)
	assert.Equal(t, "b-ok", got)
	assert.Equal(t, 1, c.calls["a"])
}

func TestRunFatalEndsChain(t *testing.T) {
	c := &counter{calls: map[string]int{}}
	fatal := fmt.Errorf("bad url: %w", provider.ErrFatal)

	_, _, err := Run(context.Background(), fastPolicy(), "resolve",
		[]Step[string]{c.step("a", fatal), c.step("b", nil)}, nil)

	assert.ErrorIs(t, err, provider.ErrFatal)
	assert.Equal(t, 1, c.calls["a"])
	assert.Zero(t, c.calls["b"])
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy()
	p.Delay = time.Hour

	calls := 0
	step := Step[string]{Provider: "slow", Call: func(context.Context) (string, error) {
		calls++
		cancel()
		return "", provider.ErrTransient
	}}

	_, _, err := Run(ctx, p, "resolve", []Step[string]{step, step}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestRunWaitsBetweenAttempts(t *testing.T) {
	c := &counter{calls: map[string]int{}}
	p := fastPolicy()
	p.Delay = 20 * time.Millisecond

	start := time.Now()
	_, _, err := Run(context.Background(), p, "resolve", []Step[string]{c.step("a")}, nil)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
