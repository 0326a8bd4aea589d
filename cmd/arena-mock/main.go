package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ojarena/internal/mockbackend"
	"ojarena/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func getenvWithDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func main() {
	configPath := flag.String("config", getenvWithDefault("ARENA_MOCK_CONFIG", ""), "Path to fixture config; empty uses the built-in demo set")
	addr := flag.String("addr", "", "Override listen address")
	flag.Parse()

	cfg := mockbackend.DemoConfig()
	if *configPath != "" {
		loaded, err := mockbackend.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mockbackend.NewServer(cfg)
	if err := server.Run(ctx); err != nil {
		logger.Error(ctx, "mock backend stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info(ctx, "mock backend shut down")
}
