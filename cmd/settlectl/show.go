package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/oraclesettle/parimutuel/internal/ledger"
)

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")
	seed := fs.String("seed", "", "the market's seed (required)")
	participant := fs.String("participant", "", "hex-encoded participant identity to also show the wager for")
	fs.Parse(args)

	if *seed == "" {
		return fmt.Errorf("--seed is required")
	}

	deps, cleanup, err := wire(ctx, *configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	marketKey := ledger.DeriveMarketKey(*seed)
	ok, err := deps.HydrateMarket(ctx, marketKey)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no market found for seed %q", *seed)
	}

	m, _ := deps.Ledger.GetMarket(marketKey)
	fmt.Printf("market:  key=%s\n", m.Key)
	fmt.Printf("         tracked_asset=%s target_cap=%d deadline=%d\n", m.TrackedAsset, m.TargetCapitalization, m.Deadline)
	fmt.Printf("         status=%s yes_pool=%d no_pool=%d resolved_at=%d\n", m.Status, m.YesPool, m.NoPool, m.ResolvedAt)
	fmt.Printf("         creator=%s oracle=%s\n", m.CreatorID, m.OracleID)

	if *participant != "" {
		participantID, err := parseIdentity("participant", *participant)
		if err != nil {
			return err
		}
		wagerKey := ledger.DeriveWagerKey(marketKey, participantID)
		w, ok := deps.Ledger.GetWager(wagerKey)
		if !ok {
			fmt.Printf("wager:   none for participant %s\n", participantID)
			return nil
		}
		fmt.Printf("wager:   key=%s stake=%d side=%s claimed=%t\n", w.Key, w.Stake, w.Side, w.Claimed)
	}

	return nil
}
