package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/oraclesettle/parimutuel/internal/ledger"
	"github.com/oraclesettle/parimutuel/internal/settlement"
)

func runClaim(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("claim", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")
	seed := fs.String("seed", "", "the market's seed (required)")
	participant := fs.String("participant", "", "hex-encoded participant identity (required)")
	fs.Parse(args)

	if *seed == "" || *participant == "" {
		return fmt.Errorf("--seed and --participant are both required")
	}

	participantID, err := parseIdentity("participant", *participant)
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
	if err := deps.HydrateBalance(ctx, participantID); err != nil {
		return err
	}

	reward, sErr := settlement.Claim(deps.Ledger, participantID, marketKey)
	if sErr != nil {
		_ = deps.LogAudit(ctx, "claim.rejected", map[string]any{"market": marketKey.String(), "participant": participantID.String(), "code": sErr.Code.String(), "msg": sErr.Msg})
		return sErr
	}

	wagerKey := ledger.DeriveWagerKey(marketKey, participantID)
	if err := deps.PersistWager(ctx, wagerKey); err != nil {
		return err
	}
	if err := deps.PersistBalance(ctx, participantID); err != nil {
		return err
	}
	if err := deps.LogAudit(ctx, "claim", map[string]any{"market": marketKey.String(), "participant": participantID.String(), "reward": reward}); err != nil {
		return err
	}

	fmt.Printf("claim paid: participant=%s reward=%d\n", participantID, reward)
	return nil
}
