// Package main is the entry point for the odsq CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/peak-solution/openatfx-sub003/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
