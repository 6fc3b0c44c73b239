package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	custommiddleware "papertrade/internal/middleware"
)

// HealthChecker reports whether the ledger store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	Auth             *custommiddleware.AuthProvider
	AuthHandler      *AuthHandler
	PortfolioHandler *PortfolioHandler
	AdminHandler     *AdminHandler
	Health           HealthChecker
}

// NoCache marks every response as uncacheable
func NoCache(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Expires", "0")
		h.Set("Pragma", "no-cache")
		return next(c)
	}
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(NoCache)

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if config.Health != nil {
			if err := config.Health.Ping(ctx); err != nil {
				return ErrorResponse(c, http.StatusServiceUnavailable, "Ledger store unreachable", err.Error())
			}
		}
		return SuccessResponse(c, map[string]interface{}{
			"status":    "healthy",
			"service":   "papertrade-api",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := e.Group("/api")

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		auth.POST("/login", config.AuthHandler.Login)
		auth.POST("/logout", config.AuthHandler.Logout)
		auth.POST("/register", config.AuthHandler.Register)
	}

	requireAuth := config.Auth.Middleware

	api.GET("/quote", config.PortfolioHandler.GetQuote, requireAuth)

	portfolio := api.Group("/portfolio", requireAuth)
	{
		portfolio.GET("", config.PortfolioHandler.GetPortfolio)
		portfolio.POST("/buy", config.PortfolioHandler.Buy)
		portfolio.POST("/sell", config.PortfolioHandler.Sell)
		portfolio.POST("/deposit", config.PortfolioHandler.Deposit)
		portfolio.GET("/history", config.PortfolioHandler.GetHistory)
	}

	admin := api.Group("/admin", requireAuth, custommiddleware.AdminMiddleware)
	{
		admin.GET("/users", config.AdminHandler.ListUsers)
		admin.POST("/audit", config.AdminHandler.TriggerAudit)
	}
}
