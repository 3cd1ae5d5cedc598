package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	paygate "github.com/dfirstlabs/paygate"
	"github.com/dfirstlabs/paygate/config"
	gatewayhttp "github.com/dfirstlabs/paygate/http"
	"github.com/dfirstlabs/paygate/mpesa"
	"github.com/dfirstlabs/paygate/paystack"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found. Using environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	// Set Gin to release mode to reduce logs
	gin.SetMode(gin.ReleaseMode)

	store := paygate.NewInMemoryVerificationStore(cfg.VerificationTTL)

	serverConfig := gatewayhttp.ServerConfig{
		Paystack: paystack.NewClient(&paystack.Config{
			SecretKey: cfg.Paystack.SecretKey,
		}),
		Store: store,
		// Paystack signs webhook deliveries with the account secret key
		WebhookSecret: cfg.Paystack.SecretKey,
		AppScheme:     cfg.AppScheme,
		Environment:   cfg.Environment,
	}

	if cfg.Mpesa.Configured() {
		baseURL := mpesa.SandboxBaseURL
		if cfg.IsProduction() {
			baseURL = mpesa.ProductionBaseURL
		}
		serverConfig.Mpesa = mpesa.NewClient(&mpesa.Config{
			BaseURL:        baseURL,
			ConsumerKey:    cfg.Mpesa.ConsumerKey,
			ConsumerSecret: cfg.Mpesa.ConsumerSecret,
			ShortCode:      cfg.Mpesa.ShortCode,
			Passkey:        cfg.Mpesa.Passkey,
			CallbackURL:    cfg.Mpesa.CallbackURL,
		})
	} else {
		log.Println("M-Pesa credentials not configured, mobile-money endpoints disabled")
	}

	gateway := gatewayhttp.NewServer(serverConfig)

	// Evict expired verification records in the background; reads already
	// evict lazily, the sweep keeps an idle store from holding dead entries
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.VerificationTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if evicted := store.Sweep(); evicted > 0 {
					log.Printf("swept %d expired verification records", evicted)
				}
			case <-sweepDone:
				return
			}
		}
	}()

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: gateway.Handler(),
	}

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Received shutdown signal, exiting...")
		close(sweepDone)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("paygate listening on :%s (%s)", cfg.Port, cfg.Environment)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}
