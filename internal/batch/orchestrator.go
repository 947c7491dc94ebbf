package batch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// State tracks a batch item through its lifecycle:
// Pending -> InFlight -> {Succeeded, RateLimited -> InFlight, Failed}.
type State string

const (
	StatePending     State = "pending"
	StateInFlight    State = "in_flight"
	StateSucceeded   State = "succeeded"
	StateRateLimited State = "rate_limited"
	StateFailed      State = "failed"
)

// Task performs the external call for one item.
type Task func(ctx context.Context) error

// Item is one unit of batch work.
type Item struct {
	Key string
	Do  Task
}

// Options tune the orchestrator.
type Options struct {
	// MinInterval is the minimum delay between successive external calls,
	// enforced by a single shared clock across the whole batch.
	MinInterval time.Duration
	// RateLimitRetries caps attempts when the service rejects for rate.
	RateLimitRetries int
	// RateLimitBase is the first exponential backoff delay; it doubles on
	// each further rate-limited attempt.
	RateLimitBase time.Duration
	// ServiceRetries is the number of extra attempts after a non-rate-limit
	// error (malformed response, network failure, schema rejection).
	ServiceRetries int
	// ServiceBackoff is the linear backoff step for service errors.
	ServiceBackoff time.Duration
	// IsRateLimited distinguishes rate-limit rejections from other errors.
	IsRateLimited func(error) bool
}

// ItemResult is the terminal state of one item.
type ItemResult struct {
	Key      string
	State    State
	Attempts int
	Err      error
}

// Summary reports batch completion counts. The batch never stops early on
// partial failure; Processed < len(items) only after cancellation.
type Summary struct {
	Processed int
	Succeeded int
	Failed    int
	Results   []ItemResult
}

// Orchestrator serialises external calls behind a shared rate-limit clock
// and isolates per-item failures.
type Orchestrator struct {
	opts    Options
	limiter *rate.Limiter
	logger  zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New constructs an orchestrator.
func New(opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.RateLimitRetries <= 0 {
		opts.RateLimitRetries = 5
	}
	if opts.RateLimitBase <= 0 {
		opts.RateLimitBase = 2 * time.Second
	}
	if opts.ServiceRetries < 0 {
		opts.ServiceRetries = 0
	}
	if opts.ServiceBackoff <= 0 {
		opts.ServiceBackoff = 3 * time.Second
	}
	if opts.IsRateLimited == nil {
		opts.IsRateLimited = func(error) bool { return false }
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Orchestrator{
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("component", "batch").Logger(),
		sleep:   sleepCtx,
	}
}

// Run processes items sequentially. A failed item never aborts its siblings;
// cancellation stops further processing but already-completed results are
// returned intact.
func (o *Orchestrator) Run(ctx context.Context, items []Item) (Summary, error) {
	var summary Summary
	for _, item := range items {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		res := o.runItem(ctx, item)
		summary.Results = append(summary.Results, res)
		summary.Processed++
		if res.State == StateSucceeded {
			summary.Succeeded++
		} else {
			summary.Failed++
		}

		if res.Err != nil && ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}

	o.logger.Info().
		Int("processed", summary.Processed).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("batch complete")
	return summary, nil
}

func (o *Orchestrator) runItem(ctx context.Context, item Item) ItemResult {
	res := ItemResult{Key: item.Key, State: StatePending}
	rateAttempts := 0
	serviceAttempts := 0

	for {
		// Shared clock: every attempt, retry or not, respects the batch-wide
		// minimum delay between external calls.
		if err := o.limiter.Wait(ctx); err != nil {
			res.State = StateFailed
			res.Err = err
			return res
		}

		res.State = StateInFlight
		res.Attempts++
		err := item.Do(ctx)
		if err == nil {
			res.State = StateSucceeded
			res.Err = nil
			return res
		}
		res.Err = err

		if o.opts.IsRateLimited(err) {
			rateAttempts++
			if rateAttempts >= o.opts.RateLimitRetries {
				o.logger.Error().Err(err).Str("item", item.Key).Int("attempts", res.Attempts).Msg("rate-limit retries exhausted")
				res.State = StateFailed
				return res
			}
			res.State = StateRateLimited
			delay := o.opts.RateLimitBase << (rateAttempts - 1)
			o.logger.Warn().Str("item", item.Key).Dur("backoff", delay).Msg("rate limited, backing off")
			if err := o.sleep(ctx, delay); err != nil {
				res.State = StateFailed
				res.Err = err
				return res
			}
			continue
		}

		serviceAttempts++
		if serviceAttempts > o.opts.ServiceRetries {
			o.logger.Error().Err(err).Str("item", item.Key).Int("attempts", res.Attempts).Msg("item failed")
			res.State = StateFailed
			return res
		}
		delay := o.opts.ServiceBackoff * time.Duration(serviceAttempts)
		o.logger.Warn().Err(err).Str("item", item.Key).Dur("backoff", delay).Msg("service error, retrying")
		if err := o.sleep(ctx, delay); err != nil {
			res.State = StateFailed
			res.Err = err
			return res
		}
	}
}

// sleepCtx waits for d or until the context is cancelled, whichever first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
