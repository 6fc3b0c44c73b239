package http

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"papertrade/internal/delivery/http/dto"
	"papertrade/internal/domain"
	"papertrade/internal/middleware"
)

// TradingService is the ledger engine as seen by the HTTP layer
type TradingService interface {
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
	Portfolio(ctx context.Context, userID uuid.UUID) (*domain.ValuationSnapshot, error)
	History(ctx context.Context, userID uuid.UUID) ([]*domain.TransactionRecord, error)
	Buy(ctx context.Context, userID uuid.UUID, order domain.TradeOrder) (*domain.TradeReceipt, error)
	Sell(ctx context.Context, userID uuid.UUID, order domain.TradeOrder) (*domain.TradeReceipt, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount domain.Money) (domain.Money, error)
}

// requestTimeout bounds one ledger request, quote lookups included
const requestTimeout = 30 * time.Second

// PortfolioHandler serves the account's portfolio, trades and history
type PortfolioHandler struct {
	trading TradingService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(trading TradingService) *PortfolioHandler {
	return &PortfolioHandler{trading: trading}
}

// GetPortfolio values the account at current prices
// GET /api/portfolio
func (h *PortfolioHandler) GetPortfolio(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	valuation, err := h.trading.Portfolio(ctx, userID)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	out := dto.NewPortfolioOutput(valuation)
	if out.Partial {
		return SuccessMessageResponse(c, "Some holdings could not be priced", out)
	}
	return SuccessResponse(c, out)
}

// Buy purchases shares at the current price
// POST /api/portfolio/buy
func (h *PortfolioHandler) Buy(c echo.Context) error {
	return h.trade(c, h.trading.Buy, "Bought!")
}

// Sell sells held shares at the current price
// POST /api/portfolio/sell
func (h *PortfolioHandler) Sell(c echo.Context) error {
	return h.trade(c, h.trading.Sell, "Sold!")
}

type tradeFunc func(ctx context.Context, userID uuid.UUID, order domain.TradeOrder) (*domain.TradeReceipt, error)

func (h *PortfolioHandler) trade(c echo.Context, fn tradeFunc, message string) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.TradeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	order, err := req.Order()
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	receipt, err := fn(ctx, userID, order)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}
	return SuccessMessageResponse(c, message, dto.NewTradeOutput(receipt))
}

// Deposit adds cash to the account
// POST /api/portfolio/deposit
func (h *PortfolioHandler) Deposit(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.DepositRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	amount, err := req.ParsedAmount()
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	balance, err := h.trading.Deposit(ctx, userID, amount)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}
	return SuccessMessageResponse(c, "Deposited!", dto.BalanceOutput{
		Balance:        balance,
		BalanceDisplay: balance.Format(),
	})
}

// GetHistory lists the account's transactions, newest first
// GET /api/portfolio/history
func (h *PortfolioHandler) GetHistory(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	records, err := h.trading.History(ctx, userID)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}
	return SuccessResponse(c, dto.NewHistoryOutput(records))
}

// GetQuote looks up a symbol
// GET /api/quote?symbol=SYM
func (h *PortfolioHandler) GetQuote(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	quote, err := h.trading.Quote(ctx, c.QueryParam("symbol"))
	if err != nil {
		return LedgerErrorResponse(c, err)
	}
	return SuccessResponse(c, dto.NewQuoteOutput(quote))
}
