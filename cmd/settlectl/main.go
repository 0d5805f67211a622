// Command settlectl is the operator CLI for the settlement engine. Each
// subcommand hydrates a fresh in-memory ledger from the durable Postgres
// mirror (if configured), executes exactly one instruction, and persists
// the result back, since the process exits between invocations and carries
// no ledger state forward on its own.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var commands = map[string]func(ctx context.Context, args []string) error{
	"create":  runCreate,
	"wager":   runWager,
	"resolve": runResolve,
	"claim":   runClaim,
	"fund":    runFund,
	"show":    runShow,
	"audit":   runAudit,
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmdName := os.Args[1]
	run, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "settlectl: unknown command %q\n", cmdName)
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "settlectl: %s: %v\n", cmdName, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: settlectl <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands: create, wager, resolve, claim, fund, show, audit")
}
