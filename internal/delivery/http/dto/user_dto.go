package dto

import (
	"papertrade/internal/domain"
	"papertrade/internal/utils"
)

// UserOutput represents user details in API responses
type UserOutput struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Role        string       `json:"role"`
	Cash        domain.Money `json:"cash"`
	CashDisplay string       `json:"cash_display"`
	CreatedAt   string       `json:"created_at"`
}

// NewUserOutput converts a domain user
func NewUserOutput(user *domain.User) *UserOutput {
	return &UserOutput{
		ID:          user.ID.String(),
		Username:    user.Username,
		Role:        user.Role,
		Cash:        user.Cash,
		CashDisplay: user.Cash.Format(),
		CreatedAt:   utils.FormatTimestamp(user.CreatedAt),
	}
}
