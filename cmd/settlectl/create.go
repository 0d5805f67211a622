package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/oraclesettle/parimutuel/internal/settlement"
)

func runCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")
	seed := fs.String("seed", "", "unique market seed (required)")
	creator := fs.String("creator", "", "hex-encoded creator identity (required)")
	oracle := fs.String("oracle", "", "hex-encoded oracle identity (required)")
	asset := fs.String("asset", "", "tracked asset identifier passed to the feed adapter (required)")
	target := fs.Uint64("target", 0, "target capitalization in 10^-6 USD units (required)")
	ttl := fs.Duration("ttl", 24*time.Hour, "time until the market's deadline from now")
	fs.Parse(args)

	if *seed == "" || *creator == "" || *oracle == "" || *asset == "" || *target == 0 {
		return fmt.Errorf("--seed, --creator, --oracle, --asset, and --target are all required")
	}

	creatorID, err := parseIdentity("creator", *creator)
	if err != nil {
		return err
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

	if err := deps.HydrateBalance(ctx, creatorID); err != nil {
		return err
	}

	now := time.Now().Unix()
	deadline := now + int64(ttl.Seconds())

	m, sErr := settlement.Create(deps.Ledger, *seed, creatorID, oracleID, *asset, *target, deadline, now)
	if sErr != nil {
		_ = deps.LogAudit(ctx, "create.rejected", map[string]any{"seed": *seed, "code": sErr.Code.String(), "msg": sErr.Msg})
		return sErr
	}

	if err := deps.PersistMarket(ctx, m.Key); err != nil {
		return err
	}
	if err := deps.PersistBalance(ctx, creatorID); err != nil {
		return err
	}
	if err := deps.PersistBalance(ctx, deps.Ledger.Treasury()); err != nil {
		return err
	}
	if err := deps.LogAudit(ctx, "create", map[string]any{"market": m.Key.String(), "seed": m.Seed, "deadline": m.Deadline}); err != nil {
		return err
	}

	fmt.Printf("market created: key=%s status=%s deadline=%d\n", m.Key, m.Status, m.Deadline)
	return nil
}
