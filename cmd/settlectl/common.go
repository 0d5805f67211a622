package main

import (
	"context"
	"fmt"

	"github.com/oraclesettle/parimutuel/internal/app"
	"github.com/oraclesettle/parimutuel/internal/config"
	"github.com/oraclesettle/parimutuel/internal/domain"
)

// wire loads the config file at path and constructs the operator dependency
// set. Callers must run the returned cleanup function once done.
func wire(ctx context.Context, path string) (*app.Dependencies, func(), error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	deps, cleanup, err := app.WireOperator(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("wire dependencies: %w", err)
	}
	return deps, cleanup, nil
}

// parseIdentity parses a hex-encoded identity flag value, erroring with the
// flag's name on failure so the operator can tell which one was malformed.
func parseIdentity(flagName, value string) (domain.Identity, error) {
	id, err := domain.IdentityFromString(value)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("--%s: %w", flagName, err)
	}
	return id, nil
}
