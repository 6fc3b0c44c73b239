package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/service"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type fakeAuditor struct {
	runs   atomic.Int32
	report *service.AuditReport
	err    error
}

func (a *fakeAuditor) RunAudit(ctx context.Context) (*service.AuditReport, error) {
	a.runs.Add(1)
	return a.report, a.err
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(fakePinger{}, &fakeAuditor{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["store"])

	rec = httptest.NewRecorder()
	NewRouter(fakePinger{err: errors.New("down")}, &fakeAuditor{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTriggerAuditAsync(t *testing.T) {
	auditor := &fakeAuditor{report: &service.AuditReport{}}
	rec := httptest.NewRecorder()
	NewRouter(fakePinger{}, auditor).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit/trigger", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Eventually(t, func() bool { return auditor.runs.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestTriggerAuditWait(t *testing.T) {
	auditor := &fakeAuditor{report: &service.AuditReport{Accounts: 3, Problems: []service.AccountAudit{}}}
	rec := httptest.NewRecorder()
	NewRouter(fakePinger{}, auditor).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit/trigger?wait=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var report service.AuditReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 3, report.Accounts)

	auditor.err = errors.New("no accounts table")
	rec = httptest.NewRecorder()
	NewRouter(fakePinger{}, auditor).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit/trigger?wait=true", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
