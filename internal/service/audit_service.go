package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"papertrade/internal/domain"
	"papertrade/internal/utils"
)

// AccountAudit is the audit outcome for one account
type AccountAudit struct {
	UserID     uuid.UUID                `json:"user_id"`
	Username   string                   `json:"username"`
	Cash       domain.Money             `json:"cash"`
	Records    int                      `json:"records"`
	Malformed  string                   `json:"malformed,omitempty"`
	Violations []domain.ReplayViolation `json:"violations,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// Clean reports whether the account passed every check
func (a AccountAudit) Clean() bool {
	return a.Malformed == "" && len(a.Violations) == 0 && a.Error == "" && !a.Cash.IsNegative()
}

// AuditReport summarizes one audit run across all accounts
type AuditReport struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  string         `json:"duration"`
	Accounts  int            `json:"accounts"`
	Problems  []AccountAudit `json:"problems"`
}

// Clean reports whether no account had a problem
func (r *AuditReport) Clean() bool {
	return len(r.Problems) == 0
}

// AuditService replays every account's log and reports accounts that break the ledger invariants.
// It never writes.
type AuditService struct {
	userRepo domain.UserRepository
	store    domain.LedgerStore
}

// NewAuditService creates a new AuditService
func NewAuditService(userRepo domain.UserRepository, store domain.LedgerStore) *AuditService {
	return &AuditService{
		userRepo: userRepo,
		store:    store,
	}
}

// AuditAccount replays one account
func (s *AuditService) AuditAccount(ctx context.Context, user *domain.User) AccountAudit {
	result := AccountAudit{UserID: user.ID, Username: user.Username}

	snap, err := s.store.ReadAccount(ctx, user.ID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Cash = snap.Cash
	result.Records = len(snap.Transactions)

	_, violations, err := domain.ReplayPositions(snap.Transactions)
	if err != nil {
		result.Malformed = err.Error()
		return result
	}
	result.Violations = violations
	return result
}

// RunAudit audits every account. The error is non-nil only when the account list cannot be read.
func (s *AuditService) RunAudit(ctx context.Context) (*AuditReport, error) {
	started := utils.Now()
	log.Println("[INFO] Audit: replaying account ledgers...")

	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	report := &AuditReport{
		StartedAt: started,
		Accounts:  len(users),
		Problems:  []AccountAudit{},
	}

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := s.AuditAccount(ctx, user)
		if result.Clean() {
			continue
		}

		report.Problems = append(report.Problems, result)
		switch {
		case result.Error != "":
			log.Printf("[ERR] Audit %s: %s", user.Username, result.Error)
		case result.Malformed != "":
			log.Printf("[WARN] Audit %s: malformed record: %s", user.Username, result.Malformed)
		default:
			for _, v := range result.Violations {
				log.Printf("[WARN] Audit %s: %s", user.Username, v)
			}
			if result.Cash.IsNegative() {
				log.Printf("[WARN] Audit %s: negative cash %s", user.Username, result.Cash)
			}
		}
	}

	report.Duration = time.Since(started).Round(time.Millisecond).String()

	if report.Clean() {
		log.Printf("[OK] Audit: %d account(s) clean (%s)", report.Accounts, report.Duration)
	} else {
		log.Printf("[WARN] Audit: %d of %d account(s) need attention", len(report.Problems), report.Accounts)
	}
	return report, nil
}
