package main

import (
	"context"
	"flag"
	"fmt"
)

func runFund(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fund", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")
	participant := fs.String("participant", "", "hex-encoded identity to credit (required)")
	amount := fs.Uint64("amount", 0, "amount to credit (required)")
	fs.Parse(args)

	if *participant == "" || *amount == 0 {
		return fmt.Errorf("--participant and --amount are both required")
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

	if err := deps.HydrateBalance(ctx, participantID); err != nil {
		return err
	}
	deps.Ledger.Credit(participantID, *amount)

	if err := deps.PersistBalance(ctx, participantID); err != nil {
		return err
	}
	if err := deps.LogAudit(ctx, "fund", map[string]any{"participant": participantID.String(), "amount": *amount}); err != nil {
		return err
	}

	fmt.Printf("funded: participant=%s new_balance=%d\n", participantID, deps.Ledger.BalanceOf(participantID))
	return nil
}
