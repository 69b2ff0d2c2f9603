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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"signaltrack/configs"
	"signaltrack/internal/database"
	delivery "signaltrack/internal/delivery/http"
	"signaltrack/internal/domain"
	"signaltrack/internal/infra"
	"signaltrack/internal/repository"
	"signaltrack/internal/service"
	"signaltrack/internal/usecase"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := configs.Load()

	ctx := context.Background()

	// Initialize database
	db, err := infra.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories and services
	signalRepo := repository.NewSignalRepository(db)
	priceService := service.NewMarketPriceService(cfg.Feed.BaseURL, cfg.Feed.Timeout)
	signalService := usecase.NewSignalService(signalRepo, priceService)

	evaluator := domain.Evaluator{
		NotionalUSD: cfg.Monitor.NotionalUSD,
		Leverage:    cfg.Monitor.Leverage,
	}
	monitor := service.NewMonitorService(
		signalRepo,
		priceService,
		evaluator,
		cfg.Monitor.Workers,
		cfg.Feed.Timeout,
		cfg.Monitor.Interval,
		cfg.Monitor.BackoffMax,
	)

	// Start the position monitor under explicit lifecycle control
	scheduler := infra.NewScheduler(monitor, cfg.Monitor.Interval)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start position monitor: %v", err)
	}
	defer scheduler.Stop()

	// Initialize HTTP server
	e := echo.New()
	e.HideBanner = true

	delivery.SetupRoutes(e, &delivery.RouterConfig{
		SignalHandler:  delivery.NewSignalHandler(signalService),
		MonitorHandler: delivery.NewMonitorHandler(scheduler, signalService, db),
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("signaltrack starting on %s", addr)
	log.Printf("Environment: %s", cfg.Server.Env)
	log.Printf("Monitor interval: %s | workers: %d", cfg.Monitor.Interval, cfg.Monitor.Workers)
	log.Printf("Entry notional: $%.2f @ %.1fx", cfg.Monitor.NotionalUSD, cfg.Monitor.Leverage)

	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server exited gracefully")
}
