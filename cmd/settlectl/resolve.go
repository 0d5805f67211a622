package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/oraclesettle/parimutuel/internal/ledger"
	"github.com/oraclesettle/parimutuel/internal/settlement"
)

func runResolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")
	seed := fs.String("seed", "", "the market's seed (required)")
	oracle := fs.String("oracle", "", "hex-encoded oracle identity signing this resolve (required)")
	cap := fs.Uint64("cap", 0, "observed capitalization in 10^-6 USD units (required)")
	observedAt := fs.Int64("observed-at", 0, "observation unix timestamp (default: now)")
	fs.Parse(args)

	if *seed == "" || *oracle == "" || *cap == 0 {
		return fmt.Errorf("--seed, --oracle, and --cap are all required")
	}

	oracleID, err := parseIdentity("oracle", *oracle)
	if err != nil {
		return err
	}

	deps, cleanup, err := wire(ctx, *configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	marketKey := ledger.DeriveMarketKey(*seed)
	if ok, err := deps.HydrateMarket(ctx, marketKey); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("no market found for seed %q", *seed)
	}

	now := time.Now().Unix()
	obsAt := *observedAt
	if obsAt == 0 {
		obsAt = now
	}

	m, sErr := settlement.Resolve(deps.Ledger, oracleID, marketKey, *cap, obsAt, now)
	if sErr != nil {
		_ = deps.LogAudit(ctx, "resolve.rejected", map[string]any{"market": marketKey.String(), "code": sErr.Code.String(), "msg": sErr.Msg})
		return sErr
	}

	if err := deps.PersistMarket(ctx, marketKey); err != nil {
		return err
	}
	if err := deps.LogAudit(ctx, "resolve", map[string]any{"market": marketKey.String(), "status": m.Status.String(), "observed_cap": *cap}); err != nil {
		return err
	}

	fmt.Printf("market resolved: key=%s status=%s\n", m.Key, m.Status)
	return nil
}
