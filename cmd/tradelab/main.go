package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantdesk-hq/tradelab-client/internal/cli"
	"github.com/quantdesk-hq/tradelab-client/internal/logger"
)

func main() {
	if err := run(); err != nil {
		logger.ErrorObj("command failed", "error", err.Error())
		fmt.Fprintf(os.Stderr, "tradelab: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Close()

	return cli.NewRootCmd().ExecuteContext(ctx)
}
