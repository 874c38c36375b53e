package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	counselcmder "github.com/papercomputeco/counsel/cmd/counsel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := counselcmder.NewCounselCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
