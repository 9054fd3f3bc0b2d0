package ai

import (
	"context"
	"time"
)

// Retryer wraps provider calls with exponential backoff. Only transient
// failures (rate limits, timeouts) are retried; terminal failures
// propagate immediately.
type Retryer struct {
	MaxRetries int

	// Sleep is swappable for tests. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

func NewRetryer(maxRetries int) *Retryer {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Retryer{MaxRetries: maxRetries, Sleep: time.Sleep}
}

// GenerateText retries p.GenerateText up to MaxRetries attempts with
// 2^attempt second backoff between attempts.
func (r *Retryer) GenerateText(ctx context.Context, p Provider, prompt string, opts Options) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < r.MaxRetries; attempt++ {
		if attempt > 0 {
			r.sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		resp, err := p.GenerateText(ctx, prompt, opts)
		if err == nil {
			return resp, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// GenerateStructured retries p.GenerateStructured with the same policy.
// Parse failures are terminal: re-asking with an identical prompt is
// handled by the caller, not the backoff loop.
func (r *Retryer) GenerateStructured(ctx context.Context, p Provider, prompt string, dest interface{}, opts Options) error {
	var lastErr error
	for attempt := 0; attempt < r.MaxRetries; attempt++ {
		if attempt > 0 {
			r.sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		err := p.GenerateStructured(ctx, prompt, dest, opts)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (r *Retryer) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}
