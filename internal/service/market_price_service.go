package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// Default JSON paths into the provider's quote document
const (
	DefaultPricePath  = "$.latestPrice"
	DefaultNamePath   = "$.companyName"
	DefaultSymbolPath = "$.symbol"
)

// MarketPriceConfig configures a MarketPriceService
type MarketPriceConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	PricePath  string
	NamePath   string
	SymbolPath string
}

// MarketPriceService fetches quotes from an HTTP quote provider.
// The quote for SYM is read from {BaseURL}/stock/SYM/quote?token={APIKey}.
type MarketPriceService struct {
	httpClient *http.Client
	cfg        MarketPriceConfig
}

// NewMarketPriceService creates a new MarketPriceService
func NewMarketPriceService(cfg MarketPriceConfig) *MarketPriceService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PricePath == "" {
		cfg.PricePath = DefaultPricePath
	}
	if cfg.NamePath == "" {
		cfg.NamePath = DefaultNamePath
	}
	if cfg.SymbolPath == "" {
		cfg.SymbolPath = DefaultSymbolPath
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &MarketPriceService{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg: cfg,
	}
}

// LookupQuote fetches the current quote for one symbol
func (s *MarketPriceService) LookupQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrUnknownSymbol)
	}

	addr := fmt.Sprintf("%s/stock/%s/quote?token=%s",
		s.cfg.BaseURL, url.PathEscape(symbol), url.QueryEscape(s.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: quote API status=%d, body=%s",
			domain.ErrUnknownSymbol, symbol, resp.StatusCode, truncate(string(body), 200))
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote for %s: %w", symbol, err)
	}

	priceVal, err := lookupPath(s.cfg.PricePath, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: no price: %v", domain.ErrUnknownSymbol, symbol, err)
	}
	price, err := toDecimal(priceVal)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnknownSymbol, symbol, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: %s: price %s is not positive", domain.ErrUnknownSymbol, symbol, price)
	}

	quote := &domain.Quote{
		Symbol: symbol,
		Price:  domain.NewMoney(price),
	}

	// name and canonical symbol are optional
	if v, err := lookupPath(s.cfg.NamePath, doc); err == nil {
		if name, ok := v.(string); ok {
			quote.Name = name
		}
	}
	if v, err := lookupPath(s.cfg.SymbolPath, doc); err == nil {
		if sym, ok := v.(string); ok && strings.TrimSpace(sym) != "" {
			quote.Symbol = domain.NormalizeSymbol(sym)
		}
	}

	return quote, nil
}

// lookupPath evaluates path and keeps the first element when the result is a list
func lookupPath(path string, doc any) (any, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("%s matched nothing", path)
		}
		v = list[0]
	}
	if v == nil {
		return nil, fmt.Errorf("%s is null", path)
	}
	return v, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case json.Number:
		return decimal.NewFromString(val.String())
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero, fmt.Errorf("price %q is not a number", val)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("price has unexpected type %T", v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ domain.QuoteService = (*MarketPriceService)(nil)
