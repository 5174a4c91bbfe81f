package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/compozy/taskbridge/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cmd := cli.RootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		// Exit with error code 1 if command execution fails
		os.Exit(1)
	}
}
