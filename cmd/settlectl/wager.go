package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/oraclesettle/parimutuel/internal/domain"
	"github.com/oraclesettle/parimutuel/internal/ledger"
	"github.com/oraclesettle/parimutuel/internal/settlement"
)

func runWager(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("wager", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")
	seed := fs.String("seed", "", "the market's seed (required)")
	participant := fs.String("participant", "", "hex-encoded participant identity (required)")
	amount := fs.Uint64("amount", 0, "stake amount (required)")
	side := fs.String("side", "", "yes or no (required)")
	fs.Parse(args)

	if *seed == "" || *participant == "" || *amount == 0 || *side == "" {
		return fmt.Errorf("--seed, --participant, --amount, and --side are all required")
	}

	var wagerSide domain.Side
	switch *side {
	case "yes", "YES":
		wagerSide = domain.SideYes
	case "no", "NO":
		wagerSide = domain.SideNo
	default:
		return fmt.Errorf("--side must be \"yes\" or \"no\", got %q", *side)
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

	now := time.Now().Unix()
	w, sErr := settlement.Wager(deps.Ledger, participantID, marketKey, *amount, wagerSide, now)
	if sErr != nil {
		_ = deps.LogAudit(ctx, "wager.rejected", map[string]any{"market": marketKey.String(), "code": sErr.Code.String(), "msg": sErr.Msg})
		return sErr
	}

	if err := deps.PersistMarket(ctx, marketKey); err != nil {
		return err
	}
	if err := deps.PersistWager(ctx, w.Key); err != nil {
		return err
	}
	if err := deps.PersistBalance(ctx, participantID); err != nil {
		return err
	}
	if err := deps.LogAudit(ctx, "wager", map[string]any{"market": marketKey.String(), "participant": participantID.String(), "side": wagerSide.String(), "amount": *amount}); err != nil {
		return err
	}

	fmt.Printf("wager recorded: key=%s stake=%d side=%s\n", w.Key, w.Stake, w.Side)
	return nil
}
