package ops

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"papertrade/internal/service"
)

// Pinger reports whether the ledger store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Auditor runs a ledger audit over every account
type Auditor interface {
	RunAudit(ctx context.Context) (*service.AuditReport, error)
}

// auditTimeout bounds a manual audit run
const auditTimeout = 2 * time.Minute

// NewRouter builds the operator-only router: health and a manual audit trigger
func NewRouter(store Pinger, auditor Auditor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", handleHealth(store))
	r.Post("/audit/trigger", handleTriggerAudit(auditor))

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[WARN] Failed to write response: %v", err)
	}
}

func handleHealth(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		storeStatus := "healthy"
		if err := store.Ping(ctx); err != nil {
			log.Printf("[WARN] Health: store ping failed: %v", err)
			status, code = "degraded", http.StatusServiceUnavailable
			storeStatus = "unhealthy"
		}

		writeJSON(w, code, map[string]string{
			"status":    status,
			"service":   "papertrade-ops",
			"store":     storeStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// handleTriggerAudit starts an audit in the background, or runs it inline with ?wait=true
func handleTriggerAudit(auditor Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("[INFO] Manual audit triggered via ops API")

		if r.URL.Query().Get("wait") == "true" {
			report, err := auditor.RunAudit(r.Context())
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, report)
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
			defer cancel()
			if _, err := auditor.RunAudit(ctx); err != nil {
				log.Printf("[ERR] Manual audit failed: %v", err)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"message": "Audit triggered successfully",
			"status":  "processing",
		})
	}
}
