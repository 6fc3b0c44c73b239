package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"papertrade/configs"
	delivery "papertrade/internal/delivery/http"
	"papertrade/internal/delivery/ops"
	"papertrade/internal/infra"
	"papertrade/internal/middleware"
	"papertrade/internal/service"
	"papertrade/internal/usecase"
	"papertrade/internal/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env file not found, using environment variables")
	}

	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	utils.SetDisplayLocation(cfg.Server.DisplayTZ)

	ctx := context.Background()

	st, err := openStores(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer st.close()

	if err := ensureAdmin(ctx, st.users, cfg.Auth, cfg.Ledger.StartingCash); err != nil {
		log.Printf("[WARN] %v", err)
	}

	quotes, err := newQuoteService(cfg.Quotes)
	if err != nil {
		log.Fatalf("Failed to initialize quote provider: %v", err)
	}

	publishers, closePublishers := newPublishers(cfg)
	defer closePublishers()

	tradingService := usecase.NewTradingService(st.ledger, quotes, publishers, cfg.Quotes.Timeout)
	auditService := service.NewAuditService(st.users, st.ledger)

	scheduler := infra.NewScheduler(5 * time.Minute)
	if cfg.Audit.Schedule != "" {
		if err := scheduler.Register("ledger-audit", cfg.Audit.Schedule, auditJob(auditService)); err != nil {
			log.Fatalf("Failed to schedule ledger audit: %v", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	auth := middleware.NewAuthProvider(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	e := echo.New()
	e.HideBanner = true
	delivery.SetupRoutes(e, &delivery.RouterConfig{
		Auth:             auth,
		AuthHandler:      delivery.NewAuthHandler(st.users, auth, cfg.Ledger.StartingCash),
		PortfolioHandler: delivery.NewPortfolioHandler(tradingService),
		AdminHandler:     delivery.NewAdminHandler(st.users, auditService),
		Health:           st.ledger,
	})

	apiAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	opsSrv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.OpsPort),
		Handler:      ops.NewRouter(st.ledger, auditService),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("[INFO] PaperTrade API starting on %s", apiAddr)
	log.Printf("[INFO] Ops endpoints on %s", opsSrv.Addr)
	log.Printf("[INFO] Environment: %s | store: %s | quotes: %s", cfg.Server.Env, cfg.Store.Driver, cfg.Quotes.Provider)
	log.Printf("[INFO] Starting cash: %s", cfg.Ledger.StartingCash.Format())
	log.Println("========================================")

	go func() {
		if err := e.Start(apiAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start API server: %v", err)
		}
	}()
	go func() {
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start ops server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERR] API server forced to shutdown: %v", err)
	}
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERR] Ops server forced to shutdown: %v", err)
	}

	log.Println("[OK] Server exited gracefully")
}
