package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DexScreenerProvider is the primary feed adapter. It queries a
// DexScreener-shaped token endpoint and reads the first pair's market cap,
// mirroring original_source/backend/api/dexscreener.py's
// get_token_price/_parse_pair_data field selection.
type DexScreenerProvider struct {
	BaseURL string // e.g. "https://api.dexscreener.com/latest"
	Client  *http.Client
	Timeout time.Duration
	now     Clock
}

// NewDexScreenerProvider constructs a provider with the given base URL and
// per-request deadline. A zero timeout defaults to 10s per spec.md §4.5.
func NewDexScreenerProvider(baseURL string, timeout time.Duration) *DexScreenerProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DexScreenerProvider{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		Timeout: timeout,
		now:     defaultClock,
	}
}

func (p *DexScreenerProvider) Name() string { return "dexscreener" }

type dexScreenerResponse struct {
	Pairs []struct {
		MarketCap float64 `json:"marketCap"`
	} `json:"pairs"`
}

// Fetch implements Provider. Any upstream error, non-200 status, empty
// pairs list, or non-positive market cap yields ok=false.
func (p *DexScreenerProvider) Fetch(ctx context.Context, trackedAsset string) (Observation, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	url := p.BaseURL + "/dex/tokens/" + trackedAsset
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Observation{}, false
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return Observation{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Observation{}, false
	}

	var parsed dexScreenerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Observation{}, false
	}
	if len(parsed.Pairs) == 0 {
		return Observation{}, false
	}

	capUSD := parsed.Pairs[0].MarketCap
	if capUSD <= 0 {
		return Observation{}, false
	}

	return Observation{
		CapitalizationUSD: uint64(capUSD * 1_000_000),
		ObservedAt:        p.now().Unix(),
	}, true
}
