package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/storefront-bff/internal/config"
	"github.com/spec-kit/storefront-bff/internal/observability"
)

// GuardConfig tunes the breaker and limiter in front of one backend.
type GuardConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	RateLimit        float64
	Burst            int
}

// GuardConfigFrom builds a GuardConfig from environment settings.
func GuardConfigFrom(cfg config.BackendsConfig) GuardConfig {
	return GuardConfig{
		MaxRequests:      cfg.BreakerMaxRequests,
		Interval:         time.Duration(cfg.BreakerIntervalSeconds) * time.Second,
		Timeout:          time.Duration(cfg.BreakerTimeoutSeconds) * time.Second,
		FailureThreshold: cfg.BreakerFailureThreshold,
		RateLimit:        cfg.RateLimitRPS,
		Burst:            cfg.RateLimitBurst,
	}
}

// Guard applies rate limiting and circuit breaking to calls against a
// single backend service.
type Guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewGuard constructs a guard for the named backend.
func NewGuard(name string, cfg GuardConfig, metrics *observability.Metrics, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	g := &Guard{
		name:    name,
		limiter: rate.NewLimiter(limit, burst),
		metrics: metrics,
		logger:  logger.Named("guard").With(zap.String("service", name)),
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isApplicationError,
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
			g.metrics.SetBreakerState(name, breakerStateValue(to))
		},
	})
	metrics.SetBreakerState(name, breakerStateValue(gobreaker.StateClosed))
	return g
}

// Name returns the backend name.
func (g *Guard) Name() string {
	return g.name
}

// State returns the current breaker state.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Do waits for a limiter token and runs fn through the circuit breaker.
// Errors are returned unmapped. A failure seen after the caller's own context
// ended is not a backend fault and never trips the breaker; only deadlines
// whose cause is errCallDeadline count against the backend.
func (g *Guard) Do(ctx context.Context, method string, fn func(context.Context) error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		g.metrics.RecordUpstreamCall(g.name, method, "throttled")
		return fmt.Errorf("%s rate limiter: %w", g.name, err)
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		err := fn(ctx)
		if err != nil && callerEnded(ctx) {
			return nil, &abandonedCall{err: err}
		}
		return nil, err
	})

	var abandoned *abandonedCall
	switch {
	case err == nil:
		g.metrics.RecordUpstreamCall(g.name, method, "ok")
	case errors.As(err, &abandoned):
		g.metrics.RecordUpstreamCall(g.name, method, "abandoned")
	case isApplicationError(err):
		g.metrics.RecordUpstreamCall(g.name, method, "rejected")
	default:
		g.metrics.RecordUpstreamCall(g.name, method, "unavailable")
		g.logger.Warn("backend call failed", zap.String("method", method), zap.Error(err))
	}
	return err
}

func breakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

// errCallDeadline is the cause attached to per-call deadlines, which are
// charged to the backend.
var errCallDeadline = errors.New("backend call deadline exceeded")

// callerEnded reports whether ctx ended for a reason other than the per-call
// deadline: a client disconnect or the request's own timeout.
func callerEnded(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	return !errors.Is(context.Cause(ctx), errCallDeadline)
}

// abandonedCall marks a failure caused by the caller going away.
type abandonedCall struct {
	err error
}

func (e *abandonedCall) Error() string { return e.err.Error() }

func (e *abandonedCall) Unwrap() error { return e.err }
