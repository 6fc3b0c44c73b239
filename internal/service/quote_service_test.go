package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/domain"
)

func TestParseStaticQuotes(t *testing.T) {
	svc, err := ParseStaticQuotes([]byte(`
quotes:
  - symbol: sym
    name: Symbolic Inc.
    price: "50.00"
  - symbol: ONE
    name: One Dollar Co.
    price: "1"
`))
	require.NoError(t, err)

	q, err := svc.LookupQuote(context.Background(), "SYM")
	require.NoError(t, err)
	assert.Equal(t, "SYM", q.Symbol)
	assert.Equal(t, "Symbolic Inc.", q.Name)
	assert.Equal(t, "50.00", q.Price.String())

	q, err = svc.LookupQuote(context.Background(), " one ")
	require.NoError(t, err)
	assert.Equal(t, "1.00", q.Price.String())

	_, err = svc.LookupQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)
}

func TestParseStaticQuotesRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"missing symbol": "quotes:\n  - price: \"1.00\"\n",
		"bad price":      "quotes:\n  - symbol: A\n    price: abc\n",
		"zero price":     "quotes:\n  - symbol: A\n    price: \"0\"\n",
		"not yaml":       "quotes: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStaticQuotes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadStaticQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quotes:\n  - symbol: ABC\n    price: \"12.34\"\n"), 0o600))

	svc, err := LoadStaticQuotes(path)
	require.NoError(t, err)
	q, err := svc.LookupQuote(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "12.34", q.Price.String())

	_, err = LoadStaticQuotes(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarketPriceServiceLookup(t *testing.T) {
	var gotPath, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"NFLX","companyName":"Netflix Inc.","latestPrice":312.555}`))
	}))
	defer srv.Close()

	svc := NewMarketPriceService(MarketPriceConfig{BaseURL: srv.URL + "/", APIKey: "secret"})
	q, err := svc.LookupQuote(context.Background(), "nflx")
	require.NoError(t, err)

	assert.Equal(t, "/stock/NFLX/quote", gotPath)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "NFLX", q.Symbol)
	assert.Equal(t, "Netflix Inc.", q.Name)
	assert.Equal(t, "312.56", q.Price.String())
}

func TestMarketPriceServiceCustomPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"ticker":"abc","last":"7.10"}]}`))
	}))
	defer srv.Close()

	svc := NewMarketPriceService(MarketPriceConfig{
		BaseURL:    srv.URL,
		PricePath:  "$.data[0].last",
		SymbolPath: "$.data[0].ticker",
	})
	q, err := svc.LookupQuote(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, "ABC", q.Symbol)
	assert.Equal(t, "", q.Name)
	assert.Equal(t, "7.10", q.Price.String())
}

func TestMarketPriceServiceFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Unknown symbol", http.StatusNotFound)
		},
		"no price": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol":"X"}`))
		},
		"null price": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol":"X","latestPrice":null}`))
		},
		"zero price": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol":"X","latestPrice":0}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			svc := NewMarketPriceService(MarketPriceConfig{BaseURL: srv.URL})
			_, err := svc.LookupQuote(context.Background(), "X")
			assert.Error(t, err)
		})
	}
}

func TestMarketPriceServiceHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	svc := NewMarketPriceService(MarketPriceConfig{BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.LookupQuote(ctx, "SLOW")
	assert.Error(t, err)
}
