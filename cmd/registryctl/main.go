// Package main is the entry point for the registry operator CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mfgverify/cmd/registryctl/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
