package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/passvault/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		cmd.HandleError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
