package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/container"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.Info("Starting Elizabeth details client...")

	if len(os.Args) < 2 {
		log.Fatal("Usage: client \"<article>_<BRAND>[, ...]\"")
	}
	input := strings.Join(os.Args[1:], " ")

	// Load configuration using viper
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Info("Configuration loaded successfully")

	// Initialize container with all dependencies
	app, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Errorf("❌ Cleanup failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application
	if err := app.Run(ctx, input); err != nil {
		log.Fatalf("Application exited with error: %v", err)
	}

	log.Info("Application finished successfully")
}
