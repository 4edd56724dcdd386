package main

import (
	"context"
	"os/signal"
	"syscall"

	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/container"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.Info("Starting Elizabeth scrape agent...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Info("Configuration loaded successfully")

	app, err := container.NewAgent(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize agent: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Errorf("❌ Cleanup failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Agent exited with error: %v", err)
	}

	log.Info("Agent stopped")
}
