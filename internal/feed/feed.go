// Package feed implements the External Feed Adapter capability: given a
// tracked asset identifier, return either a capitalization observation or
// an explicit absence, never an error a caller is expected to unwrap.
// Grounded on _examples/original_source/backend/api/dexscreener.py and
// pumpfun.py's try/except-around-the-whole-request shape, translated to
// Go's (value, ok bool) idiom.
package feed

import (
	"context"
	"time"
)

// Observation is a single capitalization reading, tagged with the local
// wall clock at response receipt rather than any server-supplied
// timestamp, so staleness checks remain under the caller's control
// (spec.md §4.5).
type Observation struct {
	CapitalizationUSD uint64 // 10^-6 USD units
	ObservedAt        int64  // unix seconds, local receipt time
}

// Provider is the capability every feed adapter implements. Fetch must
// never block past its own internal deadline and must return ok=false on
// any upstream error, missing field, non-positive capitalization, or
// timeout — never a Go error the caller has to inspect.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, trackedAsset string) (Observation, bool)
}

// Clock abstracts time.Now for deterministic testing.
type Clock func() time.Time

func defaultClock() time.Time { return time.Now() }
