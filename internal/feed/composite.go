package feed

import (
	"context"
	"time"
)

// Composite chains a primary provider with an optional fallback, retrying
// up to MaxRetries times with RetryDelay between attempts, per spec.md
// §4.5: "primary source first, secondary on None, up to MAX_RETRIES
// attempts, sleeping RETRY_DELAY between attempts."
type Composite struct {
	Primary    Provider
	Fallback   Provider // nil if no fallback is configured
	MaxRetries int
	RetryDelay time.Duration
}

// NewComposite constructs a Composite with the spec's defaults
// (MaxRetries=3, RetryDelay=5s) if the zero value is passed for either.
func NewComposite(primary, fallback Provider, maxRetries int, retryDelay time.Duration) *Composite {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	return &Composite{Primary: primary, Fallback: fallback, MaxRetries: maxRetries, RetryDelay: retryDelay}
}

// Name reports the primary provider's name, since that is the source the
// Composite consults first on every Fetch.
func (c *Composite) Name() string { return c.Primary.Name() }

// Fetch attempts the primary provider, then the fallback (if configured),
// retrying the whole primary/fallback pair up to MaxRetries times. It
// returns the first successful observation, or ok=false if every attempt
// across every provider failed.
func (c *Composite) Fetch(ctx context.Context, trackedAsset string) (Observation, bool) {
	for attempt := 0; attempt < c.MaxRetries; attempt++ {
		if obs, ok := c.Primary.Fetch(ctx, trackedAsset); ok {
			return obs, true
		}
		if c.Fallback != nil {
			if obs, ok := c.Fallback.Fetch(ctx, trackedAsset); ok {
				return obs, true
			}
		}

		if attempt < c.MaxRetries-1 {
			select {
			case <-ctx.Done():
				return Observation{}, false
			case <-time.After(c.RetryDelay):
			}
		}
	}
	return Observation{}, false
}
