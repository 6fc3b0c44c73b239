package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"papertrade/configs"
	"papertrade/internal/adapter"
	"papertrade/internal/adapter/kafka"
	"papertrade/internal/adapter/telegram"
	"papertrade/internal/database"
	"papertrade/internal/domain"
	"papertrade/internal/infra"
	"papertrade/internal/repository"
	"papertrade/internal/repository/memory"
	"papertrade/internal/repository/sqlite"
	"papertrade/internal/service"
	"papertrade/internal/utils"
)

// stores bundles the account repository and ledger store of one driver
type stores struct {
	users  domain.UserRepository
	ledger domain.LedgerStore
	close  func()
}

func openStores(ctx context.Context, cfg configs.StoreConfig) (*stores, error) {
	switch cfg.Driver {
	case configs.StoreMemory:
		log.Println("[WARN] Using in-memory store, balances are lost on restart")
		s := memory.NewStore()
		return &stores{users: s, ledger: s, close: func() {}}, nil

	case configs.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("[OK] SQLite ledger at %s", cfg.SQLitePath)
		return &stores{users: s, ledger: s, close: func() { _ = s.Close() }}, nil

	case configs.StorePostgres:
		pool, err := infra.NewDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			users:  repository.NewUserRepository(pool),
			ledger: repository.NewLedgerRepository(pool),
			close:  pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func newQuoteService(cfg configs.QuoteConfig) (domain.QuoteService, error) {
	switch cfg.Provider {
	case configs.QuoteStatic:
		quotes, err := service.LoadStaticQuotes(cfg.File)
		if err != nil {
			return nil, err
		}
		log.Printf("[OK] Static quotes loaded from %s", cfg.File)
		return quotes, nil
	case configs.QuoteHTTP:
		return service.NewMarketPriceService(service.MarketPriceConfig{
			BaseURL: cfg.APIURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}), nil
	}
	return nil, fmt.Errorf("unknown quote provider %q", cfg.Provider)
}

// newPublishers returns the configured event sinks and a function that flushes them
func newPublishers(cfg *configs.Config) (adapter.Publishers, func()) {
	var pubs adapter.Publishers
	closers := []func(){}

	if len(cfg.Kafka.Brokers) > 0 {
		kp := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		pubs = append(pubs, kp)
		closers = append(closers, func() {
			if err := kp.Close(); err != nil {
				log.Printf("[WARN] Kafka writer close: %v", err)
			}
		})
		log.Printf("[OK] Publishing ledger events to Kafka topic %s", cfg.Kafka.Topic)
	}

	notifier := telegram.NewNotificationService(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if notifier.Enabled() {
		pubs = append(pubs, notifier)
		log.Println("[OK] Telegram trade notifications enabled")
	}

	return pubs, func() {
		for _, c := range closers {
			c()
		}
	}
}

// ensureAdmin creates the configured admin account if it does not exist yet
func ensureAdmin(ctx context.Context, users domain.UserRepository, cfg configs.AuthConfig, cash domain.Money) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	if existing, err := users.GetByUsername(ctx, cfg.AdminUsername); err == nil {
		log.Printf("[OK] Using existing admin user: %s", existing.ID)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := utils.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     cfg.AdminUsername,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Cash:         cash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Printf("[OK] Created admin user %s", user.Username)
	return nil
}

// auditJob adapts the audit service to the scheduler
func auditJob(audit *service.AuditService) infra.Job {
	return func(ctx context.Context) error {
		_, err := audit.RunAudit(ctx)
		return err
	}
}

const shutdownTimeout = 10 * time.Second
