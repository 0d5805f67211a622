package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/oraclesettle/parimutuel/internal/domain"
)

func runAudit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to configuration file")
	limit := fs.Int("limit", 20, "maximum number of entries to show, most recent first")
	offset := fs.Int("offset", 0, "entries to skip before the page starts")
	fs.Parse(args)

	deps, cleanup, err := wire(ctx, *configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	if deps.AuditStore == nil {
		return fmt.Errorf("no postgres configured; audit trail is unavailable")
	}

	entries, err := deps.AuditStore.List(ctx, domain.ListOpts{Limit: *limit, Offset: *offset})
	if err != nil {
		return fmt.Errorf("list audit entries: %w", err)
	}

	for _, e := range entries {
		fmt.Printf("%s  %-18s %v\n", e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), e.Event, e.Detail)
	}
	return nil
}
