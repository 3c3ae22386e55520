package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/jace/internal/resilience"
)

// Defaults for provider calls.
const (
	DefaultMaxTokens         = 4096
	DefaultTimeout           = 120 * time.Second
	DefaultRequestsPerMinute = 30
)

// GuardConfig tunes Guarded.
type GuardConfig struct {
	// Timeout bounds one Complete call, retries included.
	Timeout           time.Duration
	RequestsPerMinute int
	Retry             resilience.RetryPolicy
	// BreakerThreshold is the number of consecutive transient failures
	// that opens the provider breaker.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Guarded wraps a Completer with a rate limit, a wall-clock timeout,
// retries on transient provider errors, and a circuit breaker.
type Guarded struct {
	next    Completer
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	retry   resilience.RetryPolicy
	breaker *resilience.Breaker
}

// NewGuarded wraps next. name identifies the provider in logs.
func NewGuarded(name string, next Completer, cfg GuardConfig) *Guarded {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	retry := cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.LogRetry(name, "complete")
	}
	return &Guarded{
		next:    next,
		name:    name,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1),
		retry:   retry,
		breaker: resilience.NewBreaker(name, cfg.BreakerThreshold, cfg.BreakerCooldown),
	}
}

// Complete implements Completer.
func (g *Guarded) Complete(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := resilience.Retry(ctx, g.retry, func(ctx context.Context) (*Result, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "llm: %s rate limit", g.name)
		}
		return resilience.Guard(ctx, g.breaker, func(ctx context.Context) (*Result, error) {
			return g.next.Complete(ctx, req)
		})
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, eris.Wrapf(err, "llm: %s call exceeded %s", g.name, g.timeout)
		}
		return nil, err
	}
	return res, nil
}
