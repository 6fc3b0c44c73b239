package configs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"papertrade/internal/domain"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Quote providers
const (
	QuoteHTTP   = "http"
	QuoteStatic = "static"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Quotes   QuoteConfig
	Ledger   LedgerConfig
	Auth     AuthConfig
	Kafka    KafkaConfig
	Telegram TelegramConfig
	Audit    AuditConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port      string
	OpsPort   string
	Env       string
	DisplayTZ string
}

// StoreConfig selects and locates the ledger store
type StoreConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// QuoteConfig selects the quote provider
type QuoteConfig struct {
	Provider string
	APIURL   string
	APIKey   string
	File     string
	Timeout  time.Duration
}

// LedgerConfig holds ledger defaults
type LedgerConfig struct {
	StartingCash domain.Money
}

// AuthConfig holds session token settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration

	// AdminUsername and AdminPassword seed an ADMIN account at startup when both are set
	AdminUsername string
	AdminPassword string
}

// KafkaConfig enables event publishing when Brokers is non-empty
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// TelegramConfig enables trade notifications when both fields are set
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// AuditConfig holds the ledger audit schedule; empty disables it
type AuditConfig struct {
	Schedule string
}

// Load loads configuration from environment variables.
// Malformed values are reported rather than silently replaced by defaults.
func Load() (*Config, error) {
	quoteTimeout, err := getDuration("QUOTE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := getDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	startingCash, err := domain.ParseMoney(getEnv("STARTING_CASH", "10000.00"))
	if err != nil {
		return nil, fmt.Errorf("STARTING_CASH: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnv("PORT", "8080"),
			OpsPort:   getEnv("OPS_PORT", "8081"),
			Env:       getEnv("GO_ENV", "development"),
			DisplayTZ: getEnv("DISPLAY_TZ", "UTC"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
			DatabaseURL: getEnv("DATABASE_URL", ""),
			SQLitePath:  getEnv("SQLITE_PATH", "finance.db"),
		},
		Quotes: QuoteConfig{
			Provider: strings.ToLower(getEnv("QUOTE_PROVIDER", QuoteHTTP)),
			APIURL:   getEnv("QUOTE_API_URL", "https://cloud.iexapis.com/stable"),
			APIKey:   getEnv("API_KEY", ""),
			File:     getEnv("QUOTE_FILE", "quotes.yaml"),
			Timeout:  quoteTimeout,
		},
		Ledger: LedgerConfig{
			StartingCash: startingCash,
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			TokenTTL:      tokenTTL,
			AdminUsername: getEnv("ADMIN_USERNAME", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "ledger_events"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},
		Audit: AuditConfig{
			Schedule: getEnv("AUDIT_SCHEDULE", "0 0 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether GO_ENV is production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that the selected drivers have what they need
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Quotes.Provider {
	case QuoteHTTP:
		if c.Quotes.APIURL == "" {
			return fmt.Errorf("QUOTE_API_URL is required for the http quote provider")
		}
		if c.Quotes.APIKey == "" {
			return fmt.Errorf("API_KEY not set")
		}
	case QuoteStatic:
		if c.Quotes.File == "" {
			return fmt.Errorf("QUOTE_FILE is required for the static quote provider")
		}
	default:
		return fmt.Errorf("unknown QUOTE_PROVIDER %q", c.Quotes.Provider)
	}

	if c.Ledger.StartingCash.IsNegative() {
		return fmt.Errorf("STARTING_CASH must not be negative")
	}

	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = "default-secret-change-in-production" // Fallback for development
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
