package service

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"papertrade/internal/domain"
)

// StaticQuoteFile is the YAML layout read by LoadStaticQuotes:
//
//	quotes:
//	  - symbol: SYM
//	    name: Symbolic Inc.
//	    price: "50.00"
type StaticQuoteFile struct {
	Quotes []StaticQuoteEntry `yaml:"quotes"`
}

// StaticQuoteEntry is one row of a StaticQuoteFile
type StaticQuoteEntry struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Price  string `yaml:"price"`
}

// StaticQuoteService serves quotes from an in-memory table
type StaticQuoteService struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

// NewStaticQuoteService creates a service with the given quotes
func NewStaticQuoteService(quotes ...domain.Quote) *StaticQuoteService {
	s := &StaticQuoteService{quotes: make(map[string]domain.Quote)}
	for _, q := range quotes {
		s.SetQuote(q)
	}
	return s
}

// LoadStaticQuotes reads a StaticQuoteFile from path
func LoadStaticQuotes(path string) (*StaticQuoteService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote file: %w", err)
	}
	return ParseStaticQuotes(data)
}

// ParseStaticQuotes builds a service from YAML bytes
func ParseStaticQuotes(data []byte) (*StaticQuoteService, error) {
	var file StaticQuoteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse quote file: %w", err)
	}

	s := NewStaticQuoteService()
	for i, entry := range file.Quotes {
		symbol := domain.NormalizeSymbol(entry.Symbol)
		if symbol == "" {
			return nil, fmt.Errorf("quote %d: symbol is required", i)
		}
		price, err := domain.ParseMoney(entry.Price)
		if err != nil {
			return nil, fmt.Errorf("quote %s: %w", symbol, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("quote %s: price must be positive", symbol)
		}
		s.SetQuote(domain.Quote{Symbol: symbol, Name: entry.Name, Price: price})
	}
	return s, nil
}

// SetQuote adds or replaces the quote for q.Symbol
func (s *StaticQuoteService) SetQuote(q domain.Quote) {
	q.Symbol = domain.NormalizeSymbol(q.Symbol)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Symbol] = q
}

// Remove deletes a symbol so later lookups report it unknown
func (s *StaticQuoteService) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, domain.NormalizeSymbol(symbol))
}

// LookupQuote returns a copy of the stored quote
func (s *StaticQuoteService) LookupQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	q, ok := s.quotes[domain.NormalizeSymbol(symbol)]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	return &q, nil
}

var _ domain.QuoteService = (*StaticQuoteService)(nil)
