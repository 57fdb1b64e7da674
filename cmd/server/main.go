package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"walletledger/internal/api"       // Custom package for API handlers
	"walletledger/internal/config"    // Custom package for configuration
	"walletledger/internal/events"    // Custom package for transaction events
	"walletledger/internal/ledger"    // Custom package for the ledger store
	"walletledger/internal/processor" // Custom package for the transaction processor
	"walletledger/internal/registry"  // Custom package for the account registry

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database
	gormDB, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client; an empty address runs the service without caching
	// and without the event stream
	var redisClient *redis.Client
	var publisher events.Publisher = events.Nop{}
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		publisher = events.NewStreamPublisher(redisClient, cfg.TxEventStream)
		// Consume and log transaction events next to the server
		consumer := events.NewConsumer(redisClient, cfg.TxEventStream, "wallet-consumers", "server")
		go consumer.Run(context.Background())
	} else {
		logrus.Warn("REDIS_ADDR not set, running without cache and event stream")
	}

	// Wire the service components
	store := ledger.NewStore(gormDB)        // Ledger store
	reg := registry.New(gormDB)             // Account registry
	proc := processor.New(store, publisher) // Transaction processor

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	api.RegisterRoutes(r, reg, proc, redisClient) // Register all routes

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
