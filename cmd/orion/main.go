// Orion - a catalog client for open source app releases
//
// Orion browses a curated app catalog and resolves each entry to the newest
// downloadable artifact published on GitHub.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/orionstore/orion/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
