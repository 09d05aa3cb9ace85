package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Rethick-Jeganathan/Procura/internal/infra/app"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/config"
)

func main() {
	// A .env file is optional; real deployments configure through the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init service: %v", err)
	}

	if err := service.Run(ctx); err != nil {
		log.Printf("service stopped: %v", err)
		os.Exit(1)
	}
}
