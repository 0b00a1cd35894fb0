package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"stillwave-marketplace/internal/client"
	"stillwave-marketplace/internal/config"
	"stillwave-marketplace/internal/repository"
	"stillwave-marketplace/internal/server"
	"stillwave-marketplace/internal/service"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	db := client.InitPostgresClient(cfg.DatabaseURL)
	stripeClient := client.NewStripeClient(cfg.Stripe.SecretKey)

	trackRepo := repository.NewTrackRepository(db)
	sellerRepo := repository.NewSellerRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	accessRepo := repository.NewAccessRepository(db)
	earningsRepo := repository.NewEarningsRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	checkoutService := service.NewCheckoutService(
		stripeClient,
		trackRepo,
		sellerRepo,
		cfg.BaseURL,
		cfg.Platform.CommissionPercent,
	)
	webhookService := service.NewWebhookService(
		db,
		cfg.Stripe.WebhookSecret,
		webhookEventRepo,
		purchaseRepo,
		accessRepo,
		earningsRepo,
		sellerRepo,
	)
	sellerService := service.NewSellerService(stripeClient, sellerRepo, cfg.BaseURL)
	libraryService := service.NewLibraryService(accessRepo, trackRepo)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(checkoutService, webhookService, sellerService, libraryService, cfg.Auth.TokenSecret)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	if err := srv.Shutdown(); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}
