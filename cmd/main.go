package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/asynkron/whippatch/internal/cli"
)

// main applies the floating whip button patch to a React card game.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
