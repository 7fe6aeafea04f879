// Package main is the entry point for the inventory API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/id"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/tx"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/analytics"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/auth"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
	v1 "github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/http/v1"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/http/v1/middleware"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/storage/memory"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/storage/postgres"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/storage/postgres/inventory_repo"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/pkg/logger"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting inventory server")

	// --- Storage ---
	var (
		repo inventory.Repository
		txm  tx.Manager
		pool *postgres.Pool
	)

	switch driver := getEnv("STORE_DRIVER", "postgres"); driver {
	case "postgres":
		dsn := mustEnv("DATABASE_URL")

		poolCfg := postgres.DefaultPoolConfig(dsn)
		if maxConns := getEnvInt("DB_MAX_CONNS", 25); maxConns > 0 {
			poolCfg.MaxConns = int32(maxConns)
		}

		pool, err = postgres.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()
		log.Info("database connection established")

		pgTxm := postgres.NewTxManager(pool)
		levelRepo, err := inventory_repo.NewLevelRepo(pgTxm)
		if err != nil {
			log.Fatalw("failed to create level repository", "error", err)
		}
		repo = levelRepo
		txm = pgTxm

	case "memory":
		log.Info("using in-memory store")
		repo = memory.NewStore()
		txm = memory.NewTxManager()

	default:
		log.Fatalw("unknown store driver", "driver", driver)
	}

	// --- Inventory engine ---
	inventoryCfg := inventory.DefaultConfig()
	if timeout := getEnvDuration("LOCK_TIMEOUT", 0); timeout > 0 {
		inventoryCfg.LockTimeout = timeout
	}
	if retries := getEnvInt("MAX_UPDATE_RETRIES", 0); retries > 0 {
		inventoryCfg.MaxRetries = retries
	}
	inventoryService := inventory.NewService(repo, txm, inventoryCfg)

	// --- Analytics ---
	rule, err := analytics.CompileRule(getEnv("LOW_STOCK_RULE", analytics.DefaultRuleExpr))
	if err != nil {
		log.Fatalw("failed to compile low-stock rule", "error", err)
	}

	minStock, err := loadMinStockLevels(getEnv("MIN_STOCK_LEVELS", ""))
	if err != nil {
		log.Fatalw("failed to parse min stock levels", "error", err)
	}

	analyticsService := analytics.NewService(repo, minStock, rule)

	// --- JWT Verifier ---
	var validator middleware.JWTValidator
	if jwtSecret := getEnv("JWT_SECRET", ""); jwtSecret != "" {
		validator = auth.NewVerifier(auth.DefaultJWTConfig(jwtSecret))
	} else {
		log.Warn("JWT_SECRET not set, API runs without authentication")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:           log,
		JWTValidator:     validator,
		Pool:             pool,
		InventoryService: inventoryService,
		AnalyticsService: analyticsService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// loadMinStockLevels parses a JSON object mapping item IDs to minimum
// quantities, e.g. {"018f...":10}.
func loadMinStockLevels(raw string) (analytics.StaticMinStock, error) {
	levels := analytics.StaticMinStock{}
	if raw == "" {
		return levels, nil
	}

	var parsed map[string]int64
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse min stock levels: %w", err)
	}

	for key, min := range parsed {
		itemID, err := id.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("parse item id %q: %w", key, err)
		}
		levels[itemID] = min
	}

	return levels, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
