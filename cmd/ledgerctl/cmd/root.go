package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"papertrade/internal/repository/sqlite"
	"papertrade/internal/service"
	"papertrade/internal/usecase"
	"papertrade/internal/utils"
)

// session holds what a single ledgerctl invocation opened
type session struct {
	dbPath     string
	quotesPath string
	tz         string

	store   *sqlite.Store
	quotes  *service.StaticQuoteService
	trading *usecase.TradingService
}

// open connects the store and, when needed, loads the quote file
func (s *session) open(withQuotes bool) error {
	utils.SetDisplayLocation(s.tz)

	store, err := sqlite.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	s.store = store

	if withQuotes {
		quotes, err := service.LoadStaticQuotes(s.quotesPath)
		if err != nil {
			s.close()
			return fmt.Errorf("load quotes: %w", err)
		}
		s.quotes = quotes
	} else {
		s.quotes = service.NewStaticQuoteService()
	}

	s.trading = usecase.NewTradingService(s.store, s.quotes, nil, 0)
	return nil
}

func (s *session) close() {
	if s.store != nil {
		_ = s.store.Close()
		s.store = nil
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewRootCommand builds the ledgerctl command tree
func NewRootCommand() *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate a paper trading ledger from the command line",
		Long: `ledgerctl works directly against a SQLite ledger file using a static
quote file for prices. It applies the same rules as the HTTP API.

Examples:
  ledgerctl users add alice --password secret
  ledgerctl buy alice AAPL 10
  ledgerctl portfolio alice
  ledgerctl audit`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&s.dbPath, "db", "d", getEnv("SQLITE_PATH", "finance.db"), "path to SQLite ledger DB")
	flags.StringVarP(&s.quotesPath, "quotes", "q", getEnv("QUOTE_FILE", "quotes.yaml"), "path to static quotes YAML")
	flags.StringVar(&s.tz, "tz", getEnv("DISPLAY_TZ", "UTC"), "time zone for printed timestamps")

	root.AddCommand(
		newUsersCmd(s),
		newQuoteCmd(s),
		newPortfolioCmd(s),
		newTradeCmd(s, "buy"),
		newTradeCmd(s, "sell"),
		newDepositCmd(s),
		newHistoryCmd(s),
		newAuditCmd(s),
	)
	return root
}

// Execute runs ledgerctl with the process arguments
func Execute() error {
	return NewRootCommand().Execute()
}
