package feed

import (
	"context"
	"testing"
	"time"
)

type stubProvider struct {
	name  string
	obs   Observation
	ok    bool
	calls int
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Fetch(ctx context.Context, trackedAsset string) (Observation, bool) {
	s.calls++
	return s.obs, s.ok
}

func TestCompositeFallsBackToSecondary(t *testing.T) {
	primary := &stubProvider{name: "primary", ok: false}
	fallback := &stubProvider{name: "fallback", obs: Observation{CapitalizationUSD: 42}, ok: true}
	c := NewComposite(primary, fallback, 1, time.Millisecond)

	obs, ok := c.Fetch(context.Background(), "asset")
	if !ok {
		t.Fatal("expected composite fetch to succeed via fallback")
	}
	if obs.CapitalizationUSD != 42 {
		t.Fatalf("capitalization = %d, want 42", obs.CapitalizationUSD)
	}
}

func TestCompositeExhaustsRetries(t *testing.T) {
	primary := &stubProvider{name: "primary", ok: false}
	c := NewComposite(primary, nil, 2, time.Millisecond)

	_, ok := c.Fetch(context.Background(), "asset")
	if ok {
		t.Fatal("expected composite fetch to fail when every provider returns none")
	}
	if primary.calls != 2 {
		t.Fatalf("primary called %d times, want 2 (MaxRetries)", primary.calls)
	}
}

func TestCompositeNoFallbackConfigured(t *testing.T) {
	primary := &stubProvider{name: "primary", obs: Observation{CapitalizationUSD: 7}, ok: true}
	c := NewComposite(primary, nil, 3, time.Millisecond)

	obs, ok := c.Fetch(context.Background(), "asset")
	if !ok || obs.CapitalizationUSD != 7 {
		t.Fatalf("obs=%+v ok=%v, want capitalization=7 ok=true", obs, ok)
	}
}
