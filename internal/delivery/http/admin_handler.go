package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"papertrade/internal/delivery/http/dto"
	"papertrade/internal/domain"
	"papertrade/internal/service"
)

// Auditor runs a ledger audit over every account
type Auditor interface {
	RunAudit(ctx context.Context) (*service.AuditReport, error)
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	userRepo domain.UserRepository
	auditor  Auditor
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userRepo domain.UserRepository, auditor Auditor) *AdminHandler {
	return &AdminHandler{
		userRepo: userRepo,
		auditor:  auditor,
	}
}

// ListUsers returns every account with its cash balance
// GET /api/admin/users
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.userRepo.GetAll(ctx)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	out := make([]*dto.UserOutput, 0, len(users))
	for _, user := range users {
		out = append(out, dto.NewUserOutput(user))
	}
	return SuccessResponse(c, out)
}

// TriggerAudit replays every account ledger and reports violations
// POST /api/admin/audit
func (h *AdminHandler) TriggerAudit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	report, err := h.auditor.RunAudit(ctx)
	if err != nil {
		return LedgerErrorResponse(c, err)
	}

	if !report.Clean() {
		return SuccessMessageResponse(c, "Audit found problems", report)
	}
	return SuccessMessageResponse(c, "Audit clean", report)
}
