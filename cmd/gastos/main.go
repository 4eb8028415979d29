package main

import (
	"context"
	"os"

	"gastos/internal/cli"
	"gastos/internal/commands"
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := commands.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}
