package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realestate/internal/cache"
	"realestate/internal/config"
	"realestate/internal/db"
	"realestate/internal/handlers"
	"realestate/internal/media"
	"realestate/internal/services"
	"realestate/internal/store"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	transactions := store.NewTransactionStore(database)
	deposits := store.NewDepositStore(database)
	listings := store.NewListingStore(database)
	messages := store.NewMessageStore(database)
	tickets := store.NewTicketStore(database)
	settings := store.NewSettingsStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)

	balances, closeCache := openBalanceCache(cfg)
	defer closeCache()
	files, closeMedia := openMediaStore(cfg)
	defer closeMedia()

	depositService := services.NewDepositService(txRunner, users, deposits, transactions, messages, audit, balances, files, services.DepositLimits{
		Min: cfg.MinDepositAmount,
		Max: cfg.MaxDepositAmount,
	})
	listingService := services.NewListingService(txRunner, users, listings, transactions, audit, balances, files, services.ListingPolicy{
		PostingFee: cfg.PostingFee,
		Lifetime:   cfg.ListingLifetime,
	})
	messageService := services.NewMessageService(txRunner, users, deposits, tickets, messages)
	walletService := services.NewWalletService(txRunner, users, transactions, audit, balances)

	handler := handlers.New(txRunner, cfg, users, tickets, settings, audit, depositService, listingService, messageService, walletService, files)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("real estate API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// openBalanceCache uses Redis when REDIS_ADDR is set. An unreachable Redis
// is logged and the server still starts, since every read falls back to
// Postgres.
func openBalanceCache(cfg config.Config) (services.BalanceCache, func()) {
	if cfg.RedisAddr == "" {
		return cache.Noop{}, func() {}
	}
	client := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	balances := cache.NewRedisBalanceCache(client, cfg.BalanceCacheTTL)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := balances.HealthCheck(ctx); err != nil {
		log.Printf("redis unavailable at %s: %v", cfg.RedisAddr, err)
	}
	return balances, func() {
		if err := client.Close(); err != nil {
			log.Printf("close redis: %v", err)
		}
	}
}

func openMediaStore(cfg config.Config) (handlers.MediaStore, func()) {
	switch cfg.MediaBackend {
	case "cloudinary":
		cloudinary, err := media.NewCloudinary(media.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		})
		if err != nil {
			log.Fatalf("failed to configure cloudinary: %v", err)
		}
		return cloudinary, func() {}
	case "gridfs":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := media.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("failed to connect mongo: %v", err)
		}
		return media.NewGridFS(client, cfg.MongoDatabase), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Printf("disconnect mongo: %v", err)
			}
		}
	case "", "inline":
		return media.Inline{}, func() {}
	default:
		log.Fatalf("unknown MEDIA_BACKEND %q", cfg.MediaBackend)
		return nil, nil
	}
}
