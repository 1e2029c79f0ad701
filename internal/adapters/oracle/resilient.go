// Package oracle wraps a ports.Oracle with the protections a slow, remote
// model call needs: a per-attempt timeout, bounded retries and a circuit
// breaker.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
)

// ErrCircuitOpen is returned without calling the oracle while the breaker is open.
var ErrCircuitOpen = errors.New("oracle circuit open")

// Observer receives the outcome of every Ask.
type Observer interface {
	ObserveOracle(elapsed time.Duration, err error)
}

// Config tunes the decorator.
type Config struct {
	Timeout    time.Duration // per attempt
	Attempts   uint
	RetryDelay time.Duration

	// Breaker opens after BreakerFailures consecutive failed Asks and lets a
	// probe through after BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         60 * time.Second,
		Attempts:        2,
		RetryDelay:      time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Resilient implements ports.Oracle around another oracle.
type Resilient struct {
	next     ports.Oracle
	cfg      Config
	breaker  *gobreaker.CircuitBreaker
	observer Observer
	logger   zerolog.Logger
}

var _ ports.Oracle = (*Resilient)(nil)

// NewResilient wraps next. observer may be nil.
func NewResilient(next ports.Oracle, cfg Config, observer Observer, logger zerolog.Logger) *Resilient {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}

	logger = logger.With().Str("component", "oracle").Logger()
	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "oracle",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
		// a caller giving up says nothing about the oracle's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Resilient{
		next:     next,
		cfg:      cfg,
		breaker:  breaker,
		observer: observer,
		logger:   logger,
	}
}

// With returns a decorator around next that shares r's breaker, observer
// and settings.
func (r *Resilient) With(next ports.Oracle) *Resilient {
	c := *r
	c.next = next
	return &c
}

// Ask forwards prompt to the wrapped oracle.
func (r *Resilient) Ask(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	answer, err := r.ask(ctx, prompt)
	if r.observer != nil {
		r.observer.ObserveOracle(time.Since(start), err)
	}
	if err != nil {
		r.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("oracle call failed")
	}
	return answer, err
}

func (r *Resilient) ask(ctx context.Context, prompt string) (string, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		var answer string
		err := retry.Do(
			func() error {
				attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
				defer cancel()

				var askErr error
				answer, askErr = r.next.Ask(attemptCtx, prompt)
				if askErr != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
					return fmt.Errorf("attempt timed out after %s: %w", r.cfg.Timeout, askErr)
				}
				return askErr
			},
			retry.Context(ctx),
			retry.Attempts(r.cfg.Attempts),
			retry.Delay(r.cfg.RetryDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool { return ctx.Err() == nil }),
			retry.OnRetry(func(n uint, err error) {
				r.logger.Warn().Err(err).Uint("attempt", n+1).Msg("oracle call failed, retrying")
			}),
		)
		return answer, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (r *Resilient) State() string {
	return r.breaker.State().String()
}
