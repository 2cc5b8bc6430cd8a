// Package main provides the leapmapper command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/leapmapper/internal/cli"

	// Database products and interceptors a description may name.
	_ "github.com/leapstack-labs/leapmapper/pkg/datasource/drivers"
	_ "github.com/leapstack-labs/leapmapper/pkg/plugins/pagination"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
