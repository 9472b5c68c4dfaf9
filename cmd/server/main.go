package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"duhashtsrv-golang/server/internal/config"
	"duhashtsrv-golang/server/internal/logger"
	"duhashtsrv-golang/server/internal/server"
)

func main() {
	cfg := config.Get()

	logger.Init()
	logger.Banner(server.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg)
	if err := srv.Run(ctx); err != nil {
		logger.Error("failed to start duhashtsrv")
		logger.Error("%v", err)
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
